// Package casestatus serves the json api used by the case search frontend and
// the operator dashboard.
package casestatus

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ecourts-backend/lib/directory"
	"ecourts-backend/lib/querylog"
	"ecourts-backend/lib/scrapers/ecourts"
	"ecourts-backend/lib/telemetry"
	"ecourts-backend/lib/util/serviceutil"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var tracer = telemetry.Tracer("ecourts.services.casestatus")

// QueryLog is the subset of querylog.Store the service needs.
type QueryLog interface {
	Log(ctx context.Context, entry querylog.Entry)
	Recent(ctx context.Context, limit int) ([]querylog.Entry, error)
	Stats(ctx context.Context) (querylog.Stats, error)
}

type Options struct {
	Directory directory.Directory
	QueryLog  QueryLog
	// Portal is copied for every new session, BaseUrl is filled in from the
	// directory.
	Portal ecourts.ClientOptions
	// protects /api/logs and /api/stats when set
	AdminToken string
	// defaults to 1024
	MaxSessions int
	// defaults to 20 minutes
	SessionTTL time.Duration
}

type Service struct {
	router    chi.Router
	directory directory.Directory
	queryLog  QueryLog
	portal    ecourts.ClientOptions
	sessions  sessionCache
	// pending query log writes
	logging sync.WaitGroup
}

func NewService(opts Options) *Service {
	maxSessions := opts.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 1024
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = time.Minute * 20
	}
	dir := opts.Directory
	if dir == nil {
		dir = directory.Directory{}
	}

	s := &Service{
		directory: dir,
		queryLog:  opts.QueryLog,
		portal:    opts.Portal,
		sessions:  newSessionCache(maxSessions, ttl),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Route("/api", func(r chi.Router) {
		r.Get("/states", s.states)
		r.Post("/districts", s.districts)
		r.Post("/initialize", s.initialize)
		r.Get("/court-complexes", s.courtComplexes)
		r.Post("/case-types", s.caseTypes)
		r.Get("/captcha", s.captcha)
		r.Post("/search", s.search)

		r.Group(func(r chi.Router) {
			r.Use(serviceutil.VerifyAccessToken(opts.AdminToken))
			r.Get("/logs", s.logs)
			r.Get("/stats", s.stats)
		})
	})

	s.router = r
	return s
}

// Handler returns the router wrapped in otel instrumentation.
func (s *Service) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "casestatus")
}

// logQuery writes entry to the query log in the background so the search
// response does not wait on the database.
func (s *Service) logQuery(ctx context.Context, entry querylog.Entry) {
	if s.queryLog == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.logging.Add(1)
	go func() {
		defer s.logging.Done()
		s.queryLog.Log(ctx, entry)
	}()
}

// Wait blocks until every pending query log write is done.
func (s *Service) Wait() {
	s.logging.Wait()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.DebugContext(
			r.Context(), "request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"request_id", middleware.GetReqID(r.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
