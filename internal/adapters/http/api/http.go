// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"

	"github.com/okian/huikao/internal/adapters/recordstore"
	service "github.com/okian/huikao/internal/app"
	"github.com/okian/huikao/internal/domain/export"
	"github.com/okian/huikao/internal/domain/filter"
	"github.com/okian/huikao/internal/domain/model"
	"github.com/okian/huikao/internal/domain/ordering"
	"github.com/okian/huikao/internal/domain/pagination"
	"github.com/okian/huikao/internal/domain/stats"
	"github.com/okian/huikao/internal/domain/types"
	"github.com/okian/huikao/pkg/logger"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "huikao_session"

const sessionMaxAge = 30 * 24 * time.Hour

// Session is the per-visitor state handled by the service.
type Session = service.Session

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Session(ctx context.Context, id string) (*Session, bool, error)

	Load(ctx context.Context, sess *Session, req service.LoadRequest) (types.View, error)
	View(sess *Session) types.View
	SetFilter(sess *Session, spec filter.Spec) types.View
	ResetFilters(sess *Session) types.View
	Displayed(sess *Session) []model.Entry

	Submit(ctx context.Context, sess *Session, req service.SubmitRequest) (service.SubmitResult, error)

	Stats(ctx context.Context, sess *Session, scope types.Scope) (types.StatsView, error)
	Comparison(ctx context.Context, sess *Session, scope types.Scope) (types.Comparison, error)
	AddCompare(sess *Session, school string) error
	RemoveCompare(sess *Session, school string) error
	ClearCompare(sess *Session)

	Favorites(ctx context.Context, sess *Session) ([]model.Entry, error)
	ToggleFavorite(ctx context.Context, sess *Session, id int64) (bool, error)
	RemoveFavorite(ctx context.Context, sess *Session, id int64) error
	ClearFavorites(ctx context.Context, sess *Session) error

	Preferences(ctx context.Context, sess *Session) (types.Preferences, error)
	SetPreferences(ctx context.Context, sess *Session, p types.Preferences) error
}

// Server wires HTTP routes for the board API.
type Server struct {
	deps   Dependencies
	now    func() time.Time
	logger logger.Logger

	healthHandler *HealthHandler
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		deps:          deps,
		now:           time.Now,
		logger:        logger.Get().Named("api"),
		healthHandler: NewHealthHandler(statsProvider),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("GET /departments", MetricsMiddleware(s.handleDepartments, "departments"))
	mux.HandleFunc("GET /calculator", MetricsMiddleware(s.handleCalculator, "calculator"))

	mux.HandleFunc("GET /entries", MetricsMiddleware(s.handleGetEntries, "entries"))
	mux.HandleFunc("POST /entries", MetricsMiddleware(s.handlePostEntry, "entries"))
	mux.HandleFunc("POST /filters/reset", MetricsMiddleware(s.handleResetFilters, "filters"))

	mux.HandleFunc("GET /stats", MetricsMiddleware(s.handleStats, "stats"))

	mux.HandleFunc("GET /compare", MetricsMiddleware(s.handleGetCompare, "compare"))
	mux.HandleFunc("DELETE /compare", MetricsMiddleware(s.handleClearCompare, "compare"))
	mux.HandleFunc("POST /compare/{school}", MetricsMiddleware(s.handleAddCompare, "compare"))
	mux.HandleFunc("DELETE /compare/{school}", MetricsMiddleware(s.handleRemoveCompare, "compare"))

	mux.HandleFunc("GET /favorites", MetricsMiddleware(s.handleGetFavorites, "favorites"))
	mux.HandleFunc("DELETE /favorites", MetricsMiddleware(s.handleClearFavorites, "favorites"))
	mux.HandleFunc("POST /favorites/{id}", MetricsMiddleware(s.handleToggleFavorite, "favorites"))
	mux.HandleFunc("DELETE /favorites/{id}", MetricsMiddleware(s.handleRemoveFavorite, "favorites"))

	mux.HandleFunc("GET /preferences", MetricsMiddleware(s.handleGetPreferences, "preferences"))
	mux.HandleFunc("PUT /preferences", MetricsMiddleware(s.handlePutPreferences, "preferences"))

	mux.HandleFunc("GET /export/{format}", MetricsMiddleware(s.handleExport, "export"))
}

// Handler wraps mux with request ids, panic recovery, compression and CORS.
func (s *Server) Handler(mux http.Handler) http.Handler {
	h := requestID(mux)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(true),
	)(h)
	h = handlers.CompressHandler(h)
	return handlers.CORS(
		handlers.AllowedHeaders([]string{"Content-Type", "X-Request-ID", "Idempotency-Key"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedOrigins([]string{"*"}),
	)(h)
}

// requestID propagates or assigns X-Request-ID and puts it on the context.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

type recoveryLogger struct{ l logger.Logger }

func (r recoveryLogger) Println(v ...any) {
	r.l.Error(context.Background(), "recovered from panic", logger.String("panic", fmt.Sprint(v...)))
}

// session resolves the caller's session, issuing a cookie for a new one.
// On failure the response is already written.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	sess, created, err := s.deps.Session(r.Context(), id)
	if err != nil {
		s.fail(w, r, Wrap("api.session", err))
		return nil, false
	}
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID(),
			Path:     "/",
			MaxAge:   int(sessionMaxAge.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess, true
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail maps err onto a status and writes it. Upstream failures carry the
// record store's own message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Error(err),
		)
	}
	var apiErr *recordstore.APIError
	if errors.As(err, &apiErr) {
		writeError(w, status, code, apiErr)
		return
	}
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrValidation),
		errors.Is(err, service.ErrVerificationRequired),
		errors.Is(err, service.ErrInvalidScope),
		errors.Is(err, filter.ErrInvalidSpec),
		errors.Is(err, ordering.ErrUnknownMode),
		errors.Is(err, pagination.ErrPageOutOfRange),
		errors.Is(err, pagination.ErrInvalidPageSize),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, stats.ErrEmptySchool):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrCooldown):
		return http.StatusTooManyRequests, "cooldown"
	case errors.Is(err, service.ErrQueueFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrEntryNotFound),
		errors.Is(err, stats.ErrNotSelected):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, stats.ErrSelectionFull), errors.Is(err, stats.ErrAlreadySelected):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrSuperseded):
		return http.StatusConflict, "superseded"
	case service.IsUpstream(err):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
