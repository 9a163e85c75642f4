// Package repository defines the storage contracts the pipeline depends on.
// Implementations assume last-write-wins per key; secondary-index queries
// return rows in insertion order.
package repository

import (
	"context"
	"time"

	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
)

type RestaurantRepository interface {
	GetByID(ctx context.Context, id string) (*models.Restaurant, error)
	ListIDs(ctx context.Context) ([]string, error)
	UpdateEntityID(ctx context.Context, id, entityID string) error
}

type MenuItemRepository interface {
	GetByID(ctx context.Context, id string) (*models.MenuItem, error)
	GetByRestaurantID(ctx context.Context, restaurantID string) ([]*models.MenuItem, error)
	GetActiveByRestaurantID(ctx context.Context, restaurantID string) ([]*models.MenuItem, error)
	Create(ctx context.Context, item *models.MenuItem) error
	// UpdateContent is the explicit materialization write used when an
	// optimization is approved.
	UpdateContent(ctx context.Context, id, name, description string) error
}

type OptimizationRepository interface {
	Create(ctx context.Context, opt *models.OptimizedMenuItem) error
	GetByID(ctx context.Context, id string) (*models.OptimizedMenuItem, error)
	GetByRestaurantID(ctx context.Context, restaurantID string) ([]*models.OptimizedMenuItem, error)
	GetByStatus(ctx context.Context, restaurantID string, status models.ReviewStatus) ([]*models.OptimizedMenuItem, error)
	// TransitionStatus flips a pending record to a terminal status. It is a
	// compare-and-set: the update applies only while the row is still
	// pending, and the return value reports whether a row was claimed.
	TransitionStatus(ctx context.Context, id string, next models.ReviewStatus, reviewedBy string, at time.Time) (bool, error)
}

type SuggestionRepository interface {
	Create(ctx context.Context, sug *models.MenuItemSuggestion) error
	GetByID(ctx context.Context, id string) (*models.MenuItemSuggestion, error)
	GetByRestaurantID(ctx context.Context, restaurantID string) ([]*models.MenuItemSuggestion, error)
	GetByStatus(ctx context.Context, restaurantID string, status models.ReviewStatus) ([]*models.MenuItemSuggestion, error)
	TransitionStatus(ctx context.Context, id string, next models.ReviewStatus, reviewedBy string, at time.Time) (bool, error)
}

type ScoreRepository interface {
	GetByMenuItemID(ctx context.Context, menuItemID string) (*models.ScoreRecord, error)
	GetByRestaurantID(ctx context.Context, restaurantID string) ([]*models.ScoreRecord, error)
	// Save upserts the record keyed by menu item id. The caller appends to
	// the trend series before saving; prior points are never rewritten.
	Save(ctx context.Context, record *models.ScoreRecord) error
}
