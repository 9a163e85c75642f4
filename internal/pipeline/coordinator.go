// Package pipeline composes enrichment, content generation, scoring, and
// persistence into the two batch operations callers actually invoke. The
// pipeline enriches once per restaurant, fans out per item under a
// concurrency cap, and persists each item's pending record the moment that
// item completes, so a mid-batch failure or deadline keeps everything
// finished so far.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/errors"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/logger"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/metrics"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/observability"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/content"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/repository"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/review"
)

// Item outcome statuses in batch manifests.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Enricher is the taste-graph surface the coordinator needs.
type Enricher interface {
	Enrich(ctx context.Context, entityID string, minRating float64) (*models.Enrichment, error)
}

// Generator is the content surface the coordinator needs.
type Generator interface {
	EnhanceDescription(ctx context.Context, item *models.MenuItem, profile *models.TasteProfile, targetAudience []string) (*content.DescriptionEnhancement, error)
	GenerateItemSuggestions(ctx context.Context, restaurant *models.Restaurant, trending []models.SpecialtyDish, existingItems []string, constraints content.SuggestionConstraints) (*content.SuggestionSet, error)
}

// Scorer is the scoring surface the coordinator needs.
type Scorer interface {
	ScoreItems(ctx context.Context, items []*models.MenuItem, allItems []*models.MenuItem, enrichment *models.Enrichment, now time.Time) (map[string]*models.ScoreRecord, error)
}

// Config bounds one coordinator instance.
type Config struct {
	Concurrency         int
	SuggestionCount     int
	OperationTimeout    time.Duration
	MinRating           float64
	DominantShareCutoff float64
}

func (c *Config) applyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 5
	}
	if c.SuggestionCount <= 0 {
		c.SuggestionCount = 5
	}
	if c.DominantShareCutoff <= 0 {
		c.DominantShareCutoff = 0.2
	}
}

// ItemOutcome is one line of a batch manifest.
type ItemOutcome struct {
	ItemID         string `json:"itemId"`
	Status         string `json:"status"`
	OptimizationID string `json:"optimizationId,omitempty"`
	Error          string `json:"error,omitempty"`
}

// BatchResult is the manifest of one OptimizeExistingItems run. Partial
// completion is a valid result: completed items are persisted and reported
// even when others failed.
type BatchResult struct {
	RestaurantID string        `json:"restaurantId"`
	Outcomes     []ItemOutcome `json:"outcomes"`
	Pending      int           `json:"pending"`
	Warnings     []string      `json:"warnings,omitempty"`
	StartedAt    time.Time     `json:"startedAt"`
	Duration     time.Duration `json:"duration"`
}

// SuggestionBatchResult is the manifest of one SuggestNewItems run.
type SuggestionBatchResult struct {
	RestaurantID string                      `json:"restaurantId"`
	Created      []models.MenuItemSuggestion `json:"created"`
	Duplicates   []string                    `json:"duplicates,omitempty"`
	Warnings     []string                    `json:"warnings,omitempty"`
	StartedAt    time.Time                   `json:"startedAt"`
	Duration     time.Duration               `json:"duration"`
}

type Coordinator struct {
	cfg           Config
	restaurants   repository.RestaurantRepository
	items         repository.MenuItemRepository
	optimizations repository.OptimizationRepository
	suggestions   repository.SuggestionRepository
	enricher      Enricher
	generator     Generator
	scorer        Scorer
	notifier      *review.Notifier
	obs           *observability.Observability
	logger        logger.Logger
	now           func() time.Time
	newID         func() string
}

func New(cfg Config, restaurants repository.RestaurantRepository, items repository.MenuItemRepository, optimizations repository.OptimizationRepository, suggestions repository.SuggestionRepository, enricher Enricher, generator Generator, scorer Scorer, notifier *review.Notifier, obs *observability.Observability, log logger.Logger) *Coordinator {
	cfg.applyDefaults()
	return &Coordinator{
		cfg:           cfg,
		restaurants:   restaurants,
		items:         items,
		optimizations: optimizations,
		suggestions:   suggestions,
		enricher:      enricher,
		generator:     generator,
		scorer:        scorer,
		notifier:      notifier,
		obs:           obs,
		logger:        log.With(map[string]interface{}{"component": "pipeline"}),
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

func (c *Coordinator) linkedRestaurant(ctx context.Context, restaurantID string) (*models.Restaurant, error) {
	restaurant, err := c.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if restaurant.EntityID == "" {
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("restaurant %s has no taste-graph link", restaurantID))
	}
	return restaurant, nil
}

func (c *Coordinator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.OperationTimeout > 0 {
		return context.WithTimeout(ctx, c.cfg.OperationTimeout)
	}
	return context.WithCancel(ctx)
}

// OptimizeExistingItems runs the enhancement flow over the restaurant's
// items. An empty itemIDs means every active item. The enrichment snapshot
// is fetched once and shared across the restaurant's items only.
func (c *Coordinator) OptimizeExistingItems(ctx context.Context, restaurantID string, itemIDs []string) (*BatchResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	started := c.now()
	result := &BatchResult{RestaurantID: restaurantID, StartedAt: started}
	defer func() {
		result.Duration = time.Since(started)
		if c.obs != nil {
			c.obs.RecordRunDuration(ctx, "optimize", result.Duration)
		}
	}()

	restaurant, err := c.linkedRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	allItems, err := c.items.GetActiveByRestaurantID(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	targets, preOutcomes := selectTargets(allItems, itemIDs)
	result.Outcomes = append(result.Outcomes, preOutcomes...)

	enrichment, err := c.enricher.Enrich(ctx, restaurant.EntityID, c.cfg.MinRating)
	if err != nil {
		if c.obs != nil {
			c.obs.RecordRun(ctx, "optimize", "failed")
		}
		return nil, err
	}
	enrichment.RestaurantID = restaurantID
	result.Warnings = append(result.Warnings, enrichment.Warnings...)

	var targetAudience []string
	if enrichment.Demographics != nil {
		targetAudience = enrichment.Demographics.DominantSegments(c.cfg.DominantShareCutoff)
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.cfg.Concurrency)

	for _, item := range targets {
		item := item
		group.Go(func() error {
			outcome := c.optimizeOne(groupCtx, restaurant, item, allItems, enrichment, targetAudience)
			metrics.PipelineItemsProcessed.WithLabelValues("optimize", outcome.Status).Inc()
			mu.Lock()
			result.Outcomes = append(result.Outcomes, outcome)
			if outcome.Status == OutcomeCompleted {
				result.Pending++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	if c.obs != nil {
		c.obs.RecordRun(ctx, "optimize", "completed")
	}
	if c.notifier != nil {
		c.notifier.PendingCreated(context.WithoutCancel(ctx), restaurantID, result.Pending, 0)
	}

	c.logger.Info("optimization batch finished", map[string]interface{}{
		"restaurant_id": restaurantID,
		"targets":       len(targets),
		"pending":       result.Pending,
	})
	return result, nil
}

// selectTargets resolves the requested item IDs against the active item
// list. Unknown IDs come back as failed outcomes rather than sinking the
// batch.
func selectTargets(active []*models.MenuItem, itemIDs []string) ([]*models.MenuItem, []ItemOutcome) {
	if len(itemIDs) == 0 {
		return active, nil
	}

	byID := make(map[string]*models.MenuItem, len(active))
	for _, item := range active {
		byID[item.ID] = item
	}

	var targets []*models.MenuItem
	var outcomes []ItemOutcome
	seen := map[string]bool{}
	for _, id := range itemIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if item, ok := byID[id]; ok {
			targets = append(targets, item)
		} else {
			outcomes = append(outcomes, ItemOutcome{
				ItemID: id,
				Status: OutcomeFailed,
				Error:  "not an active item of this restaurant",
			})
		}
	}
	return targets, outcomes
}

func (c *Coordinator) optimizeOne(ctx context.Context, restaurant *models.Restaurant, item *models.MenuItem, allItems []*models.MenuItem, enrichment *models.Enrichment, targetAudience []string) ItemOutcome {
	if err := ctx.Err(); err != nil {
		return ItemOutcome{ItemID: item.ID, Status: OutcomeSkipped, Error: fmt.Sprintf("deadline reached: %v", err)}
	}

	enhancement, err := c.generator.EnhanceDescription(ctx, item, enrichment.Profile, targetAudience)
	if err != nil {
		return ItemOutcome{ItemID: item.ID, Status: OutcomeFailed, Error: err.Error()}
	}

	if _, err := c.scorer.ScoreItems(ctx, []*models.MenuItem{item}, allItems, enrichment, c.now()); err != nil {
		return ItemOutcome{ItemID: item.ID, Status: OutcomeFailed, Error: err.Error()}
	}

	opt := &models.OptimizedMenuItem{
		ID:                  c.newID(),
		RestaurantID:        restaurant.ID,
		MenuItemID:          item.ID,
		ProposedName:        enhancement.ProposedName,
		ProposedDescription: enhancement.ProposedDescription,
		Rationale:           enhancement.Rationale,
		DemographicInsights: enhancement.DemographicInsights,
		Status:              models.StatusPending,
		Audit:               enhancement.Audit,
		CreatedAt:           c.now(),
	}
	if err := c.optimizations.Create(ctx, opt); err != nil {
		return ItemOutcome{ItemID: item.ID, Status: OutcomeFailed, Error: err.Error()}
	}

	return ItemOutcome{ItemID: item.ID, Status: OutcomeCompleted, OptimizationID: opt.ID}
}

// SuggestNewItems proposes new menu items seeded by the specialty-dish
// ranking of similar restaurants, deduplicated against the live menu by
// normalized name, and persists survivors as pending suggestions.
func (c *Coordinator) SuggestNewItems(ctx context.Context, restaurantID string, constraints content.SuggestionConstraints) (*SuggestionBatchResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	started := c.now()
	result := &SuggestionBatchResult{RestaurantID: restaurantID, StartedAt: started}
	defer func() {
		result.Duration = time.Since(started)
		if c.obs != nil {
			c.obs.RecordRunDuration(ctx, "suggest", result.Duration)
		}
	}()

	restaurant, err := c.linkedRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	activeItems, err := c.items.GetActiveByRestaurantID(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	existingNames := make([]string, 0, len(activeItems))
	existing := make(map[string]bool, len(activeItems))
	for _, item := range activeItems {
		existingNames = append(existingNames, item.Name)
		existing[models.NormalizeName(item.Name)] = true
	}

	enrichment, err := c.enricher.Enrich(ctx, restaurant.EntityID, c.cfg.MinRating)
	if err != nil {
		if c.obs != nil {
			c.obs.RecordRun(ctx, "suggest", "failed")
		}
		return nil, err
	}
	result.Warnings = append(result.Warnings, enrichment.Warnings...)

	var trending []models.SpecialtyDish
	if enrichment.Similar != nil {
		trending = enrichment.Similar.SpecialtyDishes
	}

	if constraints.Count <= 0 {
		constraints.Count = c.cfg.SuggestionCount
	}
	set, err := c.generator.GenerateItemSuggestions(ctx, restaurant, trending, existingNames, constraints)
	if err != nil {
		if c.obs != nil {
			c.obs.RecordRun(ctx, "suggest", "failed")
		}
		return nil, err
	}

	for _, candidate := range set.Items {
		normalized := models.NormalizeName(candidate.Name)
		if normalized == "" || existing[normalized] {
			result.Duplicates = append(result.Duplicates, candidate.Name)
			metrics.PipelineItemsProcessed.WithLabelValues("suggest", OutcomeSkipped).Inc()
			continue
		}
		existing[normalized] = true

		sug := models.MenuItemSuggestion{
			ID:                c.newID(),
			RestaurantID:      restaurantID,
			Name:              candidate.Name,
			Description:       candidate.Description,
			EstimatedPrice:    candidate.EstimatedPrice,
			Category:          candidate.Category,
			InspirationSource: candidate.InspirationSource,
			Status:            models.StatusPending,
			Audit:             set.Audit,
			CreatedAt:         c.now(),
		}
		if err := c.suggestions.Create(ctx, &sug); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("suggestion %q not persisted: %v", candidate.Name, err))
			metrics.PipelineItemsProcessed.WithLabelValues("suggest", OutcomeFailed).Inc()
			continue
		}
		metrics.PipelineItemsProcessed.WithLabelValues("suggest", OutcomeCompleted).Inc()
		result.Created = append(result.Created, sug)
	}

	if c.obs != nil {
		c.obs.RecordRun(ctx, "suggest", "completed")
	}
	if c.notifier != nil {
		c.notifier.PendingCreated(context.WithoutCancel(ctx), restaurantID, 0, len(result.Created))
	}

	c.logger.Info("suggestion batch finished", map[string]interface{}{
		"restaurant_id": restaurantID,
		"created":       len(result.Created),
		"duplicates":    len(result.Duplicates),
	})
	return result, nil
}
