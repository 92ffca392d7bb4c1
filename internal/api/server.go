package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MikeSquared-Agency/pulse/internal/advisory"
	"github.com/MikeSquared-Agency/pulse/internal/aggregate"
	"github.com/MikeSquared-Agency/pulse/internal/dashboard"
	"github.com/MikeSquared-Agency/pulse/internal/reports"
	"github.com/MikeSquared-Agency/pulse/internal/scope"
	"github.com/MikeSquared-Agency/pulse/internal/store"
	"github.com/MikeSquared-Agency/pulse/internal/wellbeing"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// CallerHeader carries the authenticated caller's profile id.
const CallerHeader = "X-Caller-ID"

// ScopeResolver resolves the caller of a request.
type ScopeResolver interface {
	Resolve(ctx context.Context, callerID uuid.UUID) (scope.Scope, error)
}

// Metrics is the windowed read surface of the aggregator.
type Metrics interface {
	Trailing(days int) wellbeing.Range
	DailyMood(ctx context.Context, sc scope.Scope, r wellbeing.Range) ([]aggregate.DailyAggregate, error)
	Burnout7d(ctx context.Context, sc scope.Scope) (aggregate.BurnoutSummary, error)
	CriticalAlerts(ctx context.Context, sc scope.Scope, opts aggregate.AlertOptions) ([]aggregate.CriticalAlert, error)
	Preview(ctx context.Context, sc scope.Scope, days int, cycle *aggregate.Cycle) (aggregate.Preview, error)
}

// Dashboards loads the full dashboard of a scope.
type Dashboards interface {
	Load(ctx context.Context, sc scope.Scope, opts dashboard.Options) dashboard.Dashboard
}

// Advisor produces action plans.
type Advisor interface {
	Generate(ctx context.Context, sc scope.Scope, req advisory.Request) (advisory.Result, error)
}

// Reports manages cycle reports.
type Reports interface {
	Build(ctx context.Context, sc scope.Scope, c aggregate.Cycle, withSummary bool) (aggregate.CycleMetrics, error)
	Save(ctx context.Context, sc scope.Scope, c aggregate.Cycle, withSummary bool) (wellbeing.Report, error)
	List(ctx context.Context, sc scope.Scope) ([]wellbeing.Report, error)
	Delete(ctx context.Context, sc scope.Scope, id uuid.UUID) error
	DeleteAll(ctx context.Context, sc scope.Scope) (int64, error)
}

// Pinger reports store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the HTTP surface. Store is optional.
type Deps struct {
	Store      Pinger
	Scopes     ScopeResolver
	Metrics    Metrics
	Dashboards Dashboards
	Advisor    Advisor
	Reports    Reports
	Logger     *slog.Logger
}

type Server struct {
	router *chi.Mux
	port   int
	auth   Auth
	http   *http.Server
	deps   Deps
	logger *slog.Logger
}

func NewServer(port int, auth Auth, deps Deps) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router: router,
		port:   port,
		auth:   auth,
		deps:   deps,
		logger: logger,
	}

	router.Get("/health", s.health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.middleware())
		r.Use(s.scopeMiddleware)

		r.Get("/scope", s.getScope)
		r.Get("/dashboard", s.getDashboard)
		r.Get("/mood/daily", s.getDailyMood)
		r.Get("/burnout", s.getBurnout)
		r.Get("/alerts", s.getAlerts)
		r.Get("/preview", s.getPreview)
		r.Get("/cycles/{cycle}", s.getCycle)
		r.Get("/cycles/{cycle}/preview", s.getCyclePreview)
		r.Post("/advisory", s.postAdvisory)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", s.listReports)
			r.Post("/", s.saveReport)
			r.Delete("/", s.deleteAllReports)
			r.Delete("/{id}", s.deleteReport)
		})
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server starting", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

type scopeKey struct{}

// scopeMiddleware resolves the caller once and stores the scope in the request context.
func (s *Server) scopeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callerID, err := s.auth.callerID(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}

		sc, err := s.deps.Scopes.Resolve(r.Context(), callerID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), scopeKey{}, sc)))
	})
}

func scopeFrom(ctx context.Context) scope.Scope {
	sc, _ := ctx.Value(scopeKey{}).(scope.Scope)
	return sc
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

// classify maps a service error to an HTTP status and error code.
// Store failures are checked first since profile lookups wrap both.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, scope.ErrNotAuthenticated):
		return http.StatusUnauthorized, "not_authenticated"
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusBadGateway, "store_unavailable"
	case errors.Is(err, scope.ErrProfileMissing):
		return http.StatusForbidden, "profile_missing"
	case errors.Is(err, reports.ErrEmptyScope):
		return http.StatusForbidden, "scope_empty"
	case errors.Is(err, advisory.ErrUnavailable):
		return http.StatusServiceUnavailable, "advisory_unavailable"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, aggregate.ErrInvalidCycle):
		return http.StatusBadRequest, "invalid_cycle"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"code", code,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	writeError(w, status, code, err.Error())
}
