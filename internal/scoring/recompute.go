package scoring

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/errors"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
)

// RecomputeFailure records one restaurant that could not be scored.
type RecomputeFailure struct {
	RestaurantID string `json:"restaurantId"`
	Reason       string `json:"reason"`
}

// RecomputeReport summarizes one full recompute pass.
type RecomputeReport struct {
	StartedAt   time.Time          `json:"startedAt"`
	Duration    time.Duration      `json:"duration"`
	Restaurants int                `json:"restaurants"`
	ItemsScored int                `json:"itemsScored"`
	Skipped     int                `json:"skipped"`
	Failures    []RecomputeFailure `json:"failures,omitempty"`
}

// RecomputeAll rescores every restaurant. One restaurant's failure never
// stops the pass; failures come back aggregated in the report. The returned
// error is non-nil only when the restaurant list itself cannot be read.
func (e *Engine) RecomputeAll(ctx context.Context, now time.Time) (*RecomputeReport, error) {
	started := time.Now()
	report := &RecomputeReport{StartedAt: now}

	ids, err := e.restaurants.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	for _, restaurantID := range ids {
		if err := ctx.Err(); err != nil {
			report.Failures = append(report.Failures, RecomputeFailure{
				RestaurantID: restaurantID,
				Reason:       fmt.Sprintf("pass aborted: %v", err),
			})
			break
		}

		scored, err := e.RecomputeRestaurant(ctx, restaurantID, now)
		switch {
		case err == nil:
			report.Restaurants++
			report.ItemsScored += scored
		case apperrors.IsCode(err, apperrors.CodeInvalidRequest):
			// Unlinked restaurants are expected; they simply have no
			// taste-graph data yet.
			report.Skipped++
		default:
			report.Failures = append(report.Failures, RecomputeFailure{
				RestaurantID: restaurantID,
				Reason:       err.Error(),
			})
			e.logger.Error("recompute failed for restaurant", map[string]interface{}{
				"restaurant_id": restaurantID,
				"error":         err.Error(),
			})
		}
	}

	report.Duration = time.Since(started)
	e.logger.Info("recompute pass finished", map[string]interface{}{
		"restaurants":  report.Restaurants,
		"items_scored": report.ItemsScored,
		"skipped":      report.Skipped,
		"failures":     len(report.Failures),
	})
	return report, nil
}

// RecomputeRestaurant rescores all active items of one restaurant and
// returns how many items were scored.
func (e *Engine) RecomputeRestaurant(ctx context.Context, restaurantID string, now time.Time) (int, error) {
	restaurant, err := e.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return 0, err
	}
	if restaurant.EntityID == "" {
		return 0, apperrors.NewInvalidRequest(fmt.Sprintf("restaurant %s has no taste-graph link", restaurantID))
	}

	enrichment, err := e.enricher.Enrich(ctx, restaurant.EntityID, e.minRating)
	if err != nil {
		return 0, err
	}

	items, err := e.items.GetActiveByRestaurantID(ctx, restaurantID)
	if err != nil {
		return 0, err
	}

	scored := 0
	for _, item := range items {
		prior, err := e.scores.GetByMenuItemID(ctx, item.ID)
		if err != nil && !apperrors.IsCode(err, apperrors.CodeNotFound) {
			return scored, err
		}

		record := e.ComputeScores(item, enrichment, items, prior, now)
		if err := e.scores.Save(ctx, record); err != nil {
			return scored, err
		}
		scored++
	}
	return scored, nil
}

// ScoreItems computes and persists records for an explicit item list using an
// already-fetched enrichment. Used by the pipeline, which enriches once per
// restaurant.
func (e *Engine) ScoreItems(ctx context.Context, items []*models.MenuItem, allItems []*models.MenuItem, enrichment *models.Enrichment, now time.Time) (map[string]*models.ScoreRecord, error) {
	out := make(map[string]*models.ScoreRecord, len(items))
	for _, item := range items {
		prior, err := e.scores.GetByMenuItemID(ctx, item.ID)
		if err != nil && !apperrors.IsCode(err, apperrors.CodeNotFound) {
			return out, err
		}

		record := e.ComputeScores(item, enrichment, allItems, prior, now)
		if err := e.scores.Save(ctx, record); err != nil {
			return out, err
		}
		out[item.ID] = record
	}
	return out, nil
}
