package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/errors"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/logger"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/content"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/pipeline"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/review"
)

type stubOptimizer struct {
	lastItemIDs []string
	err         error
}

func (s *stubOptimizer) OptimizeExistingItems(ctx context.Context, restaurantID string, itemIDs []string) (*pipeline.BatchResult, error) {
	s.lastItemIDs = itemIDs
	if s.err != nil {
		return nil, s.err
	}
	return &pipeline.BatchResult{RestaurantID: restaurantID, Pending: len(itemIDs)}, nil
}

func (s *stubOptimizer) SuggestNewItems(ctx context.Context, restaurantID string, constraints content.SuggestionConstraints) (*pipeline.SuggestionBatchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &pipeline.SuggestionBatchResult{RestaurantID: restaurantID}, nil
}

type stubReviewer struct {
	outcomes []review.DecisionOutcome
}

func (s *stubReviewer) Review(ctx context.Context, decisions []review.Decision) []review.DecisionOutcome {
	return s.outcomes
}

type stubDashboard struct {
	snapshot *models.DashboardSnapshot
	err      error
	page     int
	limit    int
}

func (s *stubDashboard) AggregateDashboard(ctx context.Context, restaurantID, timeframe string, page, limit int) (*models.DashboardSnapshot, error) {
	s.page, s.limit = page, limit
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshot, nil
}

type stubPinger struct{ err error }

func (s *stubPinger) Ping(ctx context.Context) error { return s.err }

func newTestServer(t *testing.T, optimizer *stubOptimizer, reviewer *stubReviewer, dashboard *stubDashboard, pingers map[string]Pinger) http.Handler {
	return New(optimizer, reviewer, dashboard, pingers, logger.NewTestLogger(t)).Router()
}

func TestHandleOptimize(t *testing.T) {
	optimizer := &stubOptimizer{}
	router := newTestServer(t, optimizer, &stubReviewer{}, &stubDashboard{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/restaurants/rest-1/optimizations",
		strings.NewReader(`{"itemIds":["item-1","item-2"]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"item-1", "item-2"}, optimizer.lastItemIDs)

	var body pipeline.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rest-1", body.RestaurantID)
}

func TestHandleOptimize_EmptyBodyMeansAllItems(t *testing.T) {
	optimizer := &stubOptimizer{}
	router := newTestServer(t, optimizer, &stubReviewer{}, &stubDashboard{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/restaurants/rest-1/optimizations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Nil(t, optimizer.lastItemIDs)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid request", apperrors.NewInvalidRequest("bad"), http.StatusBadRequest},
		{"not found", apperrors.NewNotFound("restaurant", "x"), http.StatusNotFound},
		{"generation failed", apperrors.NewGenerationFailed("cap", assert.AnError), http.StatusBadGateway},
		{"storage failed", apperrors.NewStorageFailed("op", assert.AnError), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestServer(t, &stubOptimizer{err: tc.err}, &stubReviewer{}, &stubDashboard{}, nil)

			req := httptest.NewRequest(http.MethodPost, "/restaurants/rest-1/optimizations", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error.Code)
		})
	}
}

func TestHandleDashboard_ParsesAndDefaultsPagination(t *testing.T) {
	dashboard := &stubDashboard{snapshot: &models.DashboardSnapshot{RestaurantID: "rest-1"}}
	router := newTestServer(t, &stubOptimizer{}, &stubReviewer{}, dashboard, nil)

	req := httptest.NewRequest(http.MethodGet, "/restaurants/rest-1/dashboard?page=2&limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, dashboard.page)
	assert.Equal(t, 10, dashboard.limit)

	req = httptest.NewRequest(http.MethodGet, "/restaurants/rest-1/dashboard", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, 1, dashboard.page)
	assert.Equal(t, 20, dashboard.limit)
}

func TestHandleDashboard_NonIntegerPageIsCallerError(t *testing.T) {
	router := newTestServer(t, &stubOptimizer{}, &stubReviewer{}, &stubDashboard{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/restaurants/rest-1/dashboard?page=abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleReviews(t *testing.T) {
	reviewer := &stubReviewer{outcomes: []review.DecisionOutcome{
		{RecordID: "opt-1", Status: models.StatusApproved},
	}}
	router := newTestServer(t, &stubOptimizer{}, reviewer, &stubDashboard{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/reviews",
		strings.NewReader(`{"decisions":[{"recordId":"opt-1","recordType":"optimization","approve":true}]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "opt-1")
}

func TestHandleReviews_EmptyBatchRejected(t *testing.T) {
	router := newTestServer(t, &stubOptimizer{}, &stubReviewer{}, &stubDashboard{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader(`{"decisions":[]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealthz(t *testing.T) {
	router := newTestServer(t, &stubOptimizer{}, &stubReviewer{}, &stubDashboard{},
		map[string]Pinger{"postgres": &stubPinger{}, "redis": &stubPinger{}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	router = newTestServer(t, &stubOptimizer{}, &stubReviewer{}, &stubDashboard{},
		map[string]Pinger{"postgres": &stubPinger{err: assert.AnError}})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
