package scoring

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/config"
	apperrors "github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/errors"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/logger"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/repository/memory"
)

type stubEnricher struct {
	enrichment *models.Enrichment
	err        error
	calls      int
}

func (s *stubEnricher) Enrich(ctx context.Context, entityID string, minRating float64) (*models.Enrichment, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.enrichment, nil
}

func defaultWeights() config.ScoringConfig {
	return config.ScoringConfig{
		PriceVsMedianWeight:       0.6,
		IngredientCostWeight:      0.4,
		PopularityWeight:          0.4,
		ProfitabilityWeight:       0.35,
		DemographicAffinityWeight: 0.25,
		DominantShareCutoff:       0.2,
	}
}

func testEngine(t *testing.T, restaurants *memory.RestaurantRepository, items *memory.MenuItemRepository, scores *memory.ScoreRepository, enricher Enricher) *Engine {
	return New(defaultWeights(), restaurants, items, scores, enricher, 4.0, logger.NewTestLogger(t))
}

func richEnrichment() *models.Enrichment {
	return &models.Enrichment{
		Profile: &models.TasteProfile{EntityID: "ent-1", PopularityPercentile: 0.8},
		Demographics: &models.DemographicsSnapshot{
			EntityID: "ent-1",
			Interests: []models.DemographicSegment{
				{Segment: "vegan", Share: 0.5},
				{Segment: "foodies", Share: 0.3},
			},
		},
	}
}

func TestComputeScores_AllScoresInRange(t *testing.T) {
	engine := testEngine(t, memory.NewRestaurantRepository(), memory.NewMenuItemRepository(), memory.NewScoreRepository(), &stubEnricher{})

	items := []*models.MenuItem{
		{ID: "a", Category: "entrees", Price: 0.5, Ingredients: make([]string, 30)},
		{ID: "b", Category: "entrees", Price: 200},
		{ID: "c", Category: "entrees", Price: 12},
	}

	for _, item := range items {
		for _, percentile := range []float64{-0.5, 0, 0.5, 1, 3} {
			enrichment := richEnrichment()
			enrichment.Profile.PopularityPercentile = percentile

			record := engine.ComputeScores(item, enrichment, items, nil, time.Now())

			for name, score := range map[string]float64{
				"popularity":     record.PopularityScore,
				"profitability":  record.ProfitabilityScore,
				"recommendation": record.RecommendationScore,
			} {
				assert.GreaterOrEqual(t, score, 0.0, "%s for item %s", name, item.ID)
				assert.LessOrEqual(t, score, 100.0, "%s for item %s", name, item.ID)
			}
		}
	}
}

func TestComputeScores_PopularityTracksPercentile(t *testing.T) {
	engine := testEngine(t, memory.NewRestaurantRepository(), memory.NewMenuItemRepository(), memory.NewScoreRepository(), &stubEnricher{})
	item := &models.MenuItem{ID: "a", Category: "entrees", Price: 10}

	low := richEnrichment()
	low.Profile.PopularityPercentile = 0.2
	high := richEnrichment()
	high.Profile.PopularityPercentile = 0.9

	lowRec := engine.ComputeScores(item, low, []*models.MenuItem{item}, nil, time.Now())
	highRec := engine.ComputeScores(item, high, []*models.MenuItem{item}, nil, time.Now())

	assert.Equal(t, 20.0, lowRec.PopularityScore)
	assert.Equal(t, 90.0, highRec.PopularityScore)
	assert.Greater(t, highRec.RecommendationScore, lowRec.RecommendationScore)
}

func TestComputeScores_MissingSignalsLandNeutral(t *testing.T) {
	engine := testEngine(t, memory.NewRestaurantRepository(), memory.NewMenuItemRepository(), memory.NewScoreRepository(), &stubEnricher{})
	item := &models.MenuItem{ID: "a", Category: "entrees", Price: 10}

	record := engine.ComputeScores(item, &models.Enrichment{}, []*models.MenuItem{item}, nil, time.Now())

	assert.Equal(t, 50.0, record.PopularityScore)
}

func TestComputeScores_TrendAppendOnly(t *testing.T) {
	engine := testEngine(t, memory.NewRestaurantRepository(), memory.NewMenuItemRepository(), memory.NewScoreRepository(), &stubEnricher{})
	item := &models.MenuItem{ID: "a", RestaurantID: "rest-1", Category: "entrees", Price: 10}

	t0 := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	first := engine.ComputeScores(item, richEnrichment(), []*models.MenuItem{item}, nil, t0)
	require.Len(t, first.Trend, 1)

	t1 := t0.AddDate(0, 1, 0)
	second := engine.ComputeScores(item, richEnrichment(), []*models.MenuItem{item}, first, t1)

	require.Len(t, second.Trend, 2)
	assert.Equal(t, first.Trend[0], second.Trend[0], "prior points must survive unchanged")
	assert.Equal(t, t1, second.Trend[1].Date)
	assert.Len(t, first.Trend, 1, "input record must not be mutated")
}

func TestDemographicAffinity_RewardsTagOverlap(t *testing.T) {
	engine := testEngine(t, memory.NewRestaurantRepository(), memory.NewMenuItemRepository(), memory.NewScoreRepository(), &stubEnricher{})
	enrichment := richEnrichment()

	veganItem := &models.MenuItem{ID: "a", Price: 10, Category: "entrees", DietaryTags: []string{"vegan"}}
	plainItem := &models.MenuItem{ID: "b", Price: 10, Category: "entrees"}

	veganRec := engine.ComputeScores(veganItem, enrichment, []*models.MenuItem{veganItem, plainItem}, nil, time.Now())
	plainRec := engine.ComputeScores(plainItem, enrichment, []*models.MenuItem{veganItem, plainItem}, nil, time.Now())

	assert.Greater(t, veganRec.RecommendationScore, plainRec.RecommendationScore)
}

func TestRecomputeAll_IsolatesFailures(t *testing.T) {
	restaurants := memory.NewRestaurantRepository()
	items := memory.NewMenuItemRepository()
	scores := memory.NewScoreRepository()

	restaurants.Put(&models.Restaurant{ID: "rest-ok", EntityID: "ent-ok"})
	restaurants.Put(&models.Restaurant{ID: "rest-bad", EntityID: "ent-bad"})
	restaurants.Put(&models.Restaurant{ID: "rest-unlinked"})

	require.NoError(t, items.Create(context.Background(), &models.MenuItem{
		ID: "item-1", RestaurantID: "rest-ok", Category: "entrees", Price: 10, Active: true,
	}))

	enricher := &enricherByEntity{
		good: richEnrichment(),
		fail: map[string]error{"ent-bad": errors.New("upstream down")},
	}
	engine := testEngine(t, restaurants, items, scores, enricher)

	report, err := engine.RecomputeAll(context.Background(), time.Now())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Restaurants)
	assert.Equal(t, 1, report.ItemsScored)
	assert.Equal(t, 1, report.Skipped, "unlinked restaurant is skipped, not failed")
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "rest-bad", report.Failures[0].RestaurantID)

	saved, err := scores.GetByMenuItemID(context.Background(), "item-1")
	require.NoError(t, err)
	assert.NotZero(t, saved.RecommendationScore)
}

type enricherByEntity struct {
	good *models.Enrichment
	fail map[string]error
}

func (s *enricherByEntity) Enrich(ctx context.Context, entityID string, minRating float64) (*models.Enrichment, error) {
	if err := s.fail[entityID]; err != nil {
		return nil, err
	}
	return s.good, nil
}

func TestAggregateDashboard_Pagination(t *testing.T) {
	restaurants := memory.NewRestaurantRepository()
	items := memory.NewMenuItemRepository()
	scores := memory.NewScoreRepository()
	engine := testEngine(t, restaurants, items, scores, &stubEnricher{})

	for i := 0; i < 15; i++ {
		id := fmt.Sprintf("item-%02d", i)
		require.NoError(t, items.Create(context.Background(), &models.MenuItem{
			ID: id, RestaurantID: "rest-1", Name: id, Category: "entrees", Price: 10,
		}))
		require.NoError(t, scores.Save(context.Background(), &models.ScoreRecord{
			MenuItemID:          id,
			RestaurantID:        "rest-1",
			PopularityScore:     50,
			ProfitabilityScore:  50,
			RecommendationScore: float64(100 - i),
			ComputedAt:          time.Now(),
		}))
	}

	snapshot, err := engine.AggregateDashboard(context.Background(), "rest-1", TimeframeMonth, 2, 10)

	require.NoError(t, err)
	assert.Equal(t, 15, snapshot.TotalItems)
	assert.Len(t, snapshot.TopPerformingItems, 5)
	assert.False(t, snapshot.HasNextPage)
	assert.True(t, snapshot.HasPreviousPage)
	// Page 2 starts at the 11th item by descending score.
	assert.Equal(t, "item-10", snapshot.TopPerformingItems[0].MenuItemID)
}

func TestAggregateDashboard_TiesBreakByItemID(t *testing.T) {
	restaurants := memory.NewRestaurantRepository()
	items := memory.NewMenuItemRepository()
	scores := memory.NewScoreRepository()
	engine := testEngine(t, restaurants, items, scores, &stubEnricher{})

	for _, id := range []string{"item-b", "item-a", "item-c"} {
		require.NoError(t, scores.Save(context.Background(), &models.ScoreRecord{
			MenuItemID: id, RestaurantID: "rest-1", RecommendationScore: 70, ComputedAt: time.Now(),
		}))
	}

	snapshot, err := engine.AggregateDashboard(context.Background(), "rest-1", "", 1, 10)

	require.NoError(t, err)
	require.Len(t, snapshot.TopPerformingItems, 3)
	assert.Equal(t, "item-a", snapshot.TopPerformingItems[0].MenuItemID)
	assert.Equal(t, "item-b", snapshot.TopPerformingItems[1].MenuItemID)
	assert.Equal(t, "item-c", snapshot.TopPerformingItems[2].MenuItemID)
}

func TestAggregateDashboard_ValidatesCallerInput(t *testing.T) {
	engine := testEngine(t, memory.NewRestaurantRepository(), memory.NewMenuItemRepository(), memory.NewScoreRepository(), &stubEnricher{})

	cases := []struct {
		name      string
		timeframe string
		page      int
		limit     int
	}{
		{"zero page", TimeframeMonth, 0, 10},
		{"zero limit", TimeframeMonth, 1, 0},
		{"limit too large", TimeframeMonth, 1, 101},
		{"bad timeframe", "decade", 1, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.AggregateDashboard(context.Background(), "rest-1", tc.timeframe, tc.page, tc.limit)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidRequest))
		})
	}
}

func TestAggregateDashboard_CategoryBreakdownAndAverages(t *testing.T) {
	restaurants := memory.NewRestaurantRepository()
	items := memory.NewMenuItemRepository()
	scores := memory.NewScoreRepository()
	engine := testEngine(t, restaurants, items, scores, &stubEnricher{})

	fixtures := []struct {
		id       string
		category string
		rec      float64
	}{
		{"item-1", "entrees", 80},
		{"item-2", "entrees", 60},
		{"item-3", "sides", 40},
	}
	for _, f := range fixtures {
		require.NoError(t, items.Create(context.Background(), &models.MenuItem{
			ID: f.id, RestaurantID: "rest-1", Name: f.id, Category: f.category, Price: 10,
		}))
		require.NoError(t, scores.Save(context.Background(), &models.ScoreRecord{
			MenuItemID: f.id, RestaurantID: "rest-1",
			PopularityScore: 50, ProfitabilityScore: 50, RecommendationScore: f.rec,
			ComputedAt: time.Now(),
		}))
	}

	snapshot, err := engine.AggregateDashboard(context.Background(), "rest-1", TimeframeYear, 1, 10)

	require.NoError(t, err)
	assert.InDelta(t, 60.0, snapshot.AverageRecommendation, 1e-9)
	require.Len(t, snapshot.Categories, 2)
	assert.Equal(t, "entrees", snapshot.Categories[0].Category)
	assert.InDelta(t, 70.0, snapshot.Categories[0].AverageScore, 1e-9)
	assert.Equal(t, "sides", snapshot.Categories[1].Category)
	require.Len(t, snapshot.BottomItems, 3)
	assert.Equal(t, "item-3", snapshot.BottomItems[0].MenuItemID)
}
