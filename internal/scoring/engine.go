// Package scoring derives per-item performance scores from enrichment data
// and aggregates them into restaurant dashboards. The formulas are policy
// tuned through config weights; the hard guarantees are the [0,100] range and
// the append-only trend series.
package scoring

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/config"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/logger"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/repository"
)

// Engine computes and persists scores.
type Engine struct {
	cfg         config.ScoringConfig
	restaurants repository.RestaurantRepository
	items       repository.MenuItemRepository
	scores      repository.ScoreRepository
	enricher    Enricher
	minRating   float64
	logger      logger.Logger
}

// Enricher is the slice of the taste-graph client the engine needs.
type Enricher interface {
	Enrich(ctx context.Context, entityID string, minRating float64) (*models.Enrichment, error)
}

func New(cfg config.ScoringConfig, restaurants repository.RestaurantRepository, items repository.MenuItemRepository, scores repository.ScoreRepository, enricher Enricher, minRating float64, log logger.Logger) *Engine {
	return &Engine{
		cfg:         cfg,
		restaurants: restaurants,
		items:       items,
		scores:      scores,
		enricher:    enricher,
		minRating:   minRating,
		logger:      log.With(map[string]interface{}{"component": "scoring"}),
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ComputeScores builds a fresh ScoreRecord for one item. categoryItems is
// the restaurant's full item list, used for the category price median. prior
// may be nil; when present its trend series is carried forward and extended,
// never rewritten.
func (e *Engine) ComputeScores(item *models.MenuItem, enrichment *models.Enrichment, categoryItems []*models.MenuItem, prior *models.ScoreRecord, now time.Time) *models.ScoreRecord {
	popularity := e.popularityScore(enrichment)
	profitability := e.profitabilityScore(item, categoryItems)
	recommendation := e.recommendationScore(popularity, profitability, e.demographicAffinity(item, enrichment))

	record := &models.ScoreRecord{
		MenuItemID:          item.ID,
		RestaurantID:        item.RestaurantID,
		PopularityScore:     popularity,
		ProfitabilityScore:  profitability,
		RecommendationScore: recommendation,
		ComputedAt:          now,
	}

	if prior != nil {
		record.Trend = append(record.Trend, prior.Trend...)
	}
	record.Trend = append(record.Trend, models.TrendPoint{
		Date:   now,
		Metric: "recommendation",
		Value:  recommendation,
	})
	return record
}

// popularityScore scales the taste-graph percentile to 0..100. No profile
// means no signal, which lands in the middle rather than at the bottom.
func (e *Engine) popularityScore(enrichment *models.Enrichment) float64 {
	if enrichment == nil || enrichment.Profile == nil || enrichment.Profile.EntityID == "" {
		return 50
	}
	return clamp(enrichment.Profile.PopularityPercentile * 100)
}

// profitabilityScore blends price position against the category median with
// an ingredient-count cost proxy.
func (e *Engine) profitabilityScore(item *models.MenuItem, categoryItems []*models.MenuItem) float64 {
	median := categoryMedianPrice(item.Category, categoryItems)

	priceScore := 50.0
	if median > 0 {
		// At the median: 50. Twice the median: 100. Half: 25.
		priceScore = clamp(50 * (item.Price / median))
	}

	ingredientScore := clamp(100 - 10*float64(len(item.Ingredients)))

	wPrice := e.cfg.PriceVsMedianWeight
	wCost := e.cfg.IngredientCostWeight
	if wPrice+wCost <= 0 {
		wPrice, wCost = 0.6, 0.4
	}
	return clamp((wPrice*priceScore + wCost*ingredientScore) / (wPrice + wCost))
}

func categoryMedianPrice(category string, items []*models.MenuItem) float64 {
	var prices []float64
	for _, it := range items {
		if strings.EqualFold(it.Category, category) && it.Price > 0 {
			prices = append(prices, it.Price)
		}
	}
	if len(prices) == 0 {
		return 0
	}
	sort.Float64s(prices)
	mid := len(prices) / 2
	if len(prices)%2 == 1 {
		return prices[mid]
	}
	return (prices[mid-1] + prices[mid]) / 2
}

// demographicAffinity measures how well the item's dietary tags and name
// overlap with the dominant audience segments. No demographics means a
// neutral 50.
func (e *Engine) demographicAffinity(item *models.MenuItem, enrichment *models.Enrichment) float64 {
	if enrichment == nil || enrichment.Demographics == nil {
		return 50
	}
	cutoff := e.cfg.DominantShareCutoff
	if cutoff <= 0 {
		cutoff = 0.2
	}
	dominant := enrichment.Demographics.DominantSegments(cutoff)
	if len(dominant) == 0 {
		return 50
	}

	itemTerms := map[string]bool{}
	for _, tag := range item.DietaryTags {
		itemTerms[models.NormalizeName(tag)] = true
	}
	for _, word := range strings.Fields(models.NormalizeName(item.Name)) {
		itemTerms[word] = true
	}

	matched := 0
	for _, segment := range dominant {
		for _, word := range strings.Fields(models.NormalizeName(segment)) {
			if itemTerms[word] {
				matched++
				break
			}
		}
	}
	return clamp(float64(matched) / float64(len(dominant)) * 100)
}

func (e *Engine) recommendationScore(popularity, profitability, affinity float64) float64 {
	wPop := e.cfg.PopularityWeight
	wProf := e.cfg.ProfitabilityWeight
	wDemo := e.cfg.DemographicAffinityWeight
	if wPop+wProf+wDemo <= 0 {
		wPop, wProf, wDemo = 0.4, 0.35, 0.25
	}
	return clamp((wPop*popularity + wProf*profitability + wDemo*affinity) / (wPop + wProf + wDemo))
}
