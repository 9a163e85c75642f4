// Package server exposes the pipeline over HTTP. Handlers parse, delegate,
// and encode; every decision about menus, scores, or reviews lives in the
// core packages.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/errors"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/logger"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/content"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/pipeline"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/review"
)

// Optimizer is the pipeline surface the server exposes.
type Optimizer interface {
	OptimizeExistingItems(ctx context.Context, restaurantID string, itemIDs []string) (*pipeline.BatchResult, error)
	SuggestNewItems(ctx context.Context, restaurantID string, constraints content.SuggestionConstraints) (*pipeline.SuggestionBatchResult, error)
}

// Reviewer applies review decisions.
type Reviewer interface {
	Review(ctx context.Context, decisions []review.Decision) []review.DecisionOutcome
}

// Dashboard serves the aggregated restaurant view.
type Dashboard interface {
	AggregateDashboard(ctx context.Context, restaurantID, timeframe string, page, limit int) (*models.DashboardSnapshot, error)
}

// Pinger reports backing-store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	optimizer Optimizer
	reviewer  Reviewer
	dashboard Dashboard
	pingers   map[string]Pinger
	logger    logger.Logger
}

func New(optimizer Optimizer, reviewer Reviewer, dashboard Dashboard, pingers map[string]Pinger, log logger.Logger) *Server {
	return &Server{
		optimizer: optimizer,
		reviewer:  reviewer,
		dashboard: dashboard,
		pingers:   pingers,
		logger:    log.With(map[string]interface{}{"component": "server"}),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/restaurants/{restaurantID}", func(r chi.Router) {
		r.Post("/optimizations", s.handleOptimize)
		r.Post("/suggestions", s.handleSuggest)
		r.Get("/dashboard", s.handleDashboard)
	})
	r.Post("/reviews", s.handleReviews)

	return r
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "restaurantID")

	var body struct {
		ItemIDs []string `json:"itemIds"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.optimizer.OptimizeExistingItems(r.Context(), restaurantID, body.ItemIDs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, result)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "restaurantID")

	var constraints content.SuggestionConstraints
	if err := decodeBody(r, &constraints); err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.optimizer.SuggestNewItems(r.Context(), restaurantID, constraints)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, result)
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Decisions []review.Decision `json:"decisions"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	if len(body.Decisions) == 0 {
		s.writeError(w, apperrors.NewInvalidRequest("decisions must not be empty"))
		return
	}

	outcomes := s.reviewer.Review(r.Context(), body.Decisions)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"outcomes": outcomes})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "restaurantID")

	page, err := queryInt(r, "page", 1)
	if err != nil {
		s.writeError(w, err)
		return
	}
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		s.writeError(w, err)
		return
	}

	snapshot, err := s.dashboard.AggregateDashboard(r.Context(), restaurantID,
		r.URL.Query().Get("timeframe"), page, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{}
	for name, pinger := range s.pingers {
		if err := pinger.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks[name] = "ok"
		}
	}
	s.writeJSON(w, status, map[string]interface{}{"checks": checks})
}

func decodeBody(r *http.Request, out interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return apperrors.NewInvalidRequest("malformed request body: " + err.Error())
	}
	return nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewInvalidRequest(name + " must be an integer")
	}
	return value, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("response encoding failed", map[string]interface{}{"error": err.Error()})
	}
}

func statusForCode(code apperrors.Code) int {
	switch code {
	case apperrors.CodeInvalidRequest:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeInvalidTransition:
		return http.StatusConflict
	case apperrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case apperrors.CodeTransientUpstream, apperrors.CodeGenerationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	status := statusForCode(code)
	if status >= 500 {
		s.logger.Error("request failed", map[string]interface{}{"code": string(code), "error": err.Error()})
	}
	s.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    string(code),
			"message": err.Error(),
		},
	})
}
