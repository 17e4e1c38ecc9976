// Package querylog keeps an append-only history of case searches for the
// operator surface.
package querylog

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"ecourts-backend/lib/querylog/db"
	"ecourts-backend/lib/telemetry"
	"ecourts-backend/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("ecourts.lib.querylog")

// TopStatesLimit is how many states Stats breaks the history down by.
const TopStatesLimit = 5

// DefaultRecentLimit is used by callers that do not pick a limit.
const DefaultRecentLimit = 50

type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

// Migrate creates the tables the store needs if they do not exist yet.
func (s Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, db.Schema)
	return err
}

// Entry is one search attempt.
type Entry struct {
	Id           int64           `json:"id"`
	Time         time.Time       `json:"time"`
	State        string          `json:"state,omitempty"`
	District     string          `json:"district,omitempty"`
	CourtComplex string          `json:"court_complex,omitempty"`
	CaseType     string          `json:"case_type,omitempty"`
	CaseNumber   string          `json:"case_number,omitempty"`
	CaseYear     string          `json:"case_year,omitempty"`
	Captcha      string          `json:"captcha_value,omitempty"`
	Request      json.RawMessage `json:"request"`
	// Response is nil when the search did not produce a case.
	Response json.RawMessage `json:"response,omitempty"`
	Success  bool            `json:"success"`
	Error    string          `json:"error,omitempty"`
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Log records an entry. It never fails the caller, a write that does not go
// through is only logged.
func (s Store) Log(ctx context.Context, entry Entry) {
	ctx, span := tracer.Start(ctx, "Log")
	defer span.End()
	span.SetAttributes(
		attribute.String("state", entry.State),
		attribute.String("district", entry.District),
		attribute.Bool("success", entry.Success),
	)

	if entry.Time.IsZero() {
		entry.Time = timezone.Now()
	}
	request := string(entry.Request)
	if request == "" {
		request = "{}"
	}
	var response sql.NullString
	if len(entry.Response) > 0 {
		response = sql.NullString{String: string(entry.Response), Valid: true}
	}
	var success int64
	if entry.Success {
		success = 1
	}

	err := s.qry.CreateQueryLog(ctx, db.CreateQueryLogParams{
		Time:         entry.Time.Unix(),
		State:        nullString(entry.State),
		District:     nullString(entry.District),
		CourtComplex: nullString(entry.CourtComplex),
		CaseType:     nullString(entry.CaseType),
		CaseNumber:   nullString(entry.CaseNumber),
		CaseYear:     nullString(entry.CaseYear),
		CaptchaValue: nullString(entry.Captcha),
		Request:      request,
		Response:     response,
		Success:      success,
		Error:        nullString(entry.Error),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write query log")
		slog.ErrorContext(ctx, "failed to write query log", "state", entry.State, "district", entry.District, "err", err)
	}
}

// Recent returns up to limit entries, newest first.
func (s Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	ctx, span := tracer.Start(ctx, "Recent")
	defer span.End()

	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := s.qry.GetRecentQueryLogs(ctx, int64(limit))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read query logs")
		return nil, err
	}

	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = Entry{
			Id:           r.ID,
			Time:         time.Unix(r.Time, 0).In(timezone.Location),
			State:        r.State.String,
			District:     r.District.String,
			CourtComplex: r.CourtComplex.String,
			CaseType:     r.CaseType.String,
			CaseNumber:   r.CaseNumber.String,
			CaseYear:     r.CaseYear.String,
			Captcha:      r.CaptchaValue.String,
			Request:      json.RawMessage(r.Request),
			Success:      r.Success == 1,
			Error:        r.Error.String,
		}
		if r.Response.Valid {
			entries[i].Response = json.RawMessage(r.Response.String)
		}
	}
	return entries, nil
}

type StateCount struct {
	State string `json:"state"`
	Count int64  `json:"count"`
}

type Stats struct {
	Total      int64 `json:"total_queries"`
	Successful int64 `json:"successful_queries"`
	Failed     int64 `json:"failed_queries"`
	// SuccessRate is a percentage, 0 when nothing was logged yet.
	SuccessRate float64      `json:"success_rate"`
	TopStates   []StateCount `json:"top_states"`
}

func (s Store) Stats(ctx context.Context) (Stats, error) {
	ctx, span := tracer.Start(ctx, "Stats")
	defer span.End()

	counts, err := s.qry.CountQueryLogs(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to count query logs")
		return Stats{}, err
	}
	topStates, err := s.qry.GetTopStates(ctx, TopStatesLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to count states")
		return Stats{}, err
	}

	stats := Stats{
		Total:      counts.Total,
		Successful: counts.Successful,
		Failed:     counts.Failed,
		TopStates:  make([]StateCount, len(topStates)),
	}
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Successful) / float64(stats.Total) * 100
	}
	for i, r := range topStates {
		stats.TopStates[i] = StateCount{State: r.State.String, Count: r.Count}
	}
	return stats, nil
}
