package casestatus

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"ecourts-backend/lib/htmlutil"
	"ecourts-backend/lib/querylog"
	"ecourts-backend/lib/scrapers/ecourts"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const sessionHeader = "X-Session-Id"

const maxLogLimit = 500

const (
	msgNotInitialized = "Scraper not initialized"
	msgNoCase         = "No case found or search failed"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		slog.Error("failed to write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}

// decodeBody reads a json body into out, an empty body leaves out untouched.
func decodeBody(r *http.Request, out any) error {
	err := json.NewDecoder(r.Body).Decode(out)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

type sessionRequest struct {
	SessionId string `json:"session_id"`
}

func sessionId(r *http.Request, body sessionRequest) string {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		id = body.SessionId
	}
	if id == "" {
		id = r.URL.Query().Get("session_id")
	}
	return id
}

func (s *Service) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) states(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"states":  s.directory.States(),
	})
}

type districtsRequest struct {
	State string `json:"state"`
}

func (s *Service) districts(w http.ResponseWriter, r *http.Request) {
	var req districtsRequest
	err := decodeBody(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	districts, ok := s.directory.Districts(req.State)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid state name")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"districts": districts,
	})
}

type initializeRequest struct {
	sessionRequest
	State    string `json:"state"`
	District string `json:"district"`
}

func (s *Service) initialize(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "initialize")
	defer span.End()

	var req initializeRequest
	err := decodeBody(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.State == "" || req.District == "" {
		writeError(w, http.StatusBadRequest, "State and district required")
		return
	}
	span.SetAttributes(
		attribute.String("state", req.State),
		attribute.String("district", req.District),
	)
	courtUrl, ok := s.directory.CourtUrl(req.State, req.District)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid state or district")
		return
	}

	opts := s.portal
	opts.BaseUrl = courtUrl
	client, err := ecourts.NewClient(opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid court url")
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error: %s", err.Error()))
		return
	}
	err = client.Initialize(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to initialize session")
		writeError(w, http.StatusBadGateway, "Failed to initialize session")
		return
	}

	// a re-initialization replaces the caller's previous session
	s.sessions.Remove(sessionId(r, req.sessionRequest))
	id := s.sessions.Add(&session{
		client:   client,
		state:    req.State,
		district: req.District,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"message":         fmt.Sprintf("Session initialized successfully for %s, %s", req.District, req.State),
		"session_id":      id,
		"court_complexes": client.Session.CourtComplexes,
	})
}

func (s *Service) lookupSession(w http.ResponseWriter, r *http.Request, body sessionRequest) (*session, bool) {
	sess, ok := s.sessions.Get(sessionId(r, body))
	if !ok {
		writeError(w, http.StatusBadRequest, msgNotInitialized)
		return nil, false
	}
	return sess, true
}

func (s *Service) courtComplexes(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r, sessionRequest{})
	if !ok {
		return
	}
	sess.mu.Lock()
	catalog := sess.client.Session.CourtComplexes
	sess.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"court_complexes": catalog,
	})
}

type caseTypesRequest struct {
	sessionRequest
	CourtComplex string `json:"court_complex_code"`
}

func (s *Service) caseTypes(w http.ResponseWriter, r *http.Request) {
	var req caseTypesRequest
	err := decodeBody(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	sess, ok := s.lookupSession(w, r, req.sessionRequest)
	if !ok {
		return
	}
	if req.CourtComplex == "" {
		writeError(w, http.StatusBadRequest, "Court complex code required")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	caseTypes, err := sess.client.CaseTypes(r.Context(), req.CourtComplex)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Error: %s", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"case_types": caseTypes,
	})
}

func (s *Service) captcha(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r, sessionRequest{})
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	image, contentType, err := sess.client.Captcha(r.Context())
	if err != nil {
		slog.WarnContext(r.Context(), "failed to get captcha", "state", sess.state, "district", sess.district, "err", err)
		writeError(w, http.StatusBadGateway, "Failed to get CAPTCHA")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"captcha_image": fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(image)),
	})
}

type searchRequest struct {
	sessionRequest
	State        string `json:"state"`
	District     string `json:"district"`
	CourtComplex string `json:"court_complex"`
	CaseType     string `json:"case_type"`
	CaseNumber   string `json:"case_number"`
	Year         string `json:"year"`
	Captcha      string `json:"captcha_value"`
}

// exactCode maps a label or code from catalog to its code. A value that only
// resembles a label is rejected, the message names the closest label.
func exactCode(catalog ecourts.Catalog, value, kind string) (code string, message string, ok bool) {
	_, code, ok = catalog.Lookup(value)
	if ok {
		return code, "", true
	}
	closest, _, ok := catalog.Resolve(value)
	if ok {
		return "", fmt.Sprintf("Unknown %s %q, did you mean %q?", kind, value, closest), false
	}
	return "", fmt.Sprintf("Unknown %s %q", kind, value), false
}

// caseTypeCode resolves a case type against the session's catalog, which is
// only trusted when it was fetched for the same court complex. Otherwise only
// numeric codes are accepted.
func caseTypeCode(session ecourts.Session, courtComplex, value string) (string, string, bool) {
	if session.CaseTypesScope == courtComplex {
		return exactCode(session.CaseTypes, value, "case type")
	}
	if htmlutil.IsDigits(value) {
		return value, "", true
	}
	return "", fmt.Sprintf("Case types of court complex %q were not loaded, pass a case type code", courtComplex), false
}

func (s *Service) search(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "search")
	defer span.End()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request")
		return
	}
	var req searchRequest
	err = json.Unmarshal(body, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	sess, ok := s.lookupSession(w, r, req.sessionRequest)
	if !ok {
		return
	}
	if req.State == "" {
		req.State = sess.state
	}
	if req.District == "" {
		req.District = sess.district
	}
	if strings.TrimSpace(req.CaseNumber) == "" || strings.TrimSpace(req.Year) == "" || strings.TrimSpace(req.Captcha) == "" {
		writeError(w, http.StatusBadRequest, "Case number, year and captcha are required")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	courtComplex, message, ok := exactCode(sess.client.Session.CourtComplexes, strings.TrimSpace(req.CourtComplex), "court complex")
	if !ok {
		writeError(w, http.StatusBadRequest, message)
		return
	}
	caseType, message, ok := caseTypeCode(sess.client.Session, courtComplex, strings.TrimSpace(req.CaseType))
	if !ok {
		writeError(w, http.StatusBadRequest, message)
		return
	}

	query := ecourts.CaseQuery{
		CourtComplex: courtComplex,
		CaseType:     caseType,
		CaseNumber:   strings.TrimSpace(req.CaseNumber),
		Year:         strings.TrimSpace(req.Year),
		Captcha:      strings.TrimSpace(req.Captcha),
	}
	span.SetAttributes(
		attribute.String("state", req.State),
		attribute.String("district", req.District),
		attribute.String("court_complex", query.CourtComplex),
		attribute.String("case_type", query.CaseType),
	)

	record, searchErr := sess.client.Search(ctx, query)

	entry := querylog.Entry{
		State:        req.State,
		District:     req.District,
		CourtComplex: query.CourtComplex,
		CaseType:     query.CaseType,
		CaseNumber:   query.CaseNumber,
		CaseYear:     query.Year,
		Captcha:      query.Captcha,
		Request:      json.RawMessage(body),
	}
	switch {
	case searchErr != nil:
		span.RecordError(searchErr)
		span.SetStatus(codes.Error, "search failed")
		entry.Error = searchErr.Error()
	case record == nil:
		entry.Error = msgNoCase
	default:
		entry.Success = true
		encoded, err := json.Marshal(record)
		if err == nil {
			entry.Response = encoded
		}
	}
	s.logQuery(ctx, entry)

	switch {
	case searchErr != nil:
		status := http.StatusBadGateway
		if errors.Is(searchErr, ecourts.ErrNotInitialized) {
			status = http.StatusBadRequest
		}
		writeError(w, status, fmt.Sprintf("Error: %s", searchErr.Error()))
	case record == nil:
		writeError(w, http.StatusOK, msgNoCase)
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"case_details": record,
		})
	}
}

func (s *Service) logs(w http.ResponseWriter, r *http.Request) {
	if s.queryLog == nil {
		writeError(w, http.StatusServiceUnavailable, "query log is disabled")
		return
	}
	limit := querylog.DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxLogLimit)
	}

	entries, err := s.queryLog.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error: %s", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"logs":    entries,
	})
}

func (s *Service) stats(w http.ResponseWriter, r *http.Request) {
	if s.queryLog == nil {
		writeError(w, http.StatusServiceUnavailable, "query log is disabled")
		return
	}
	stats, err := s.queryLog.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error: %s", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats":   stats,
	})
}
