// Package memory holds in-memory repository implementations. They back unit
// tests and the local dev mode; semantics mirror the postgres package,
// including insertion-order listing and the pending-only transition guard.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/errors"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
)

type RestaurantRepository struct {
	mu          sync.RWMutex
	restaurants map[string]*models.Restaurant
	order       []string
}

func NewRestaurantRepository() *RestaurantRepository {
	return &RestaurantRepository{restaurants: map[string]*models.Restaurant{}}
}

func (r *RestaurantRepository) Put(rest *models.Restaurant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.restaurants[rest.ID]; !ok {
		r.order = append(r.order, rest.ID)
	}
	cp := *rest
	r.restaurants[rest.ID] = &cp
}

func (r *RestaurantRepository) GetByID(_ context.Context, id string) (*models.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rest, ok := r.restaurants[id]
	if !ok {
		return nil, apperrors.NewNotFound("restaurant", id)
	}
	cp := *rest
	return &cp, nil
}

func (r *RestaurantRepository) ListIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.order...), nil
}

func (r *RestaurantRepository) UpdateEntityID(_ context.Context, id, entityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rest, ok := r.restaurants[id]
	if !ok {
		return apperrors.NewNotFound("restaurant", id)
	}
	rest.EntityID = entityID
	return nil
}

type MenuItemRepository struct {
	mu    sync.RWMutex
	items map[string]*models.MenuItem
	order []string
}

func NewMenuItemRepository() *MenuItemRepository {
	return &MenuItemRepository{items: map[string]*models.MenuItem{}}
}

func (r *MenuItemRepository) GetByID(_ context.Context, id string) (*models.MenuItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, apperrors.NewNotFound("menu item", id)
	}
	cp := *item
	return &cp, nil
}

func (r *MenuItemRepository) GetByRestaurantID(_ context.Context, restaurantID string) ([]*models.MenuItem, error) {
	return r.filter(func(item *models.MenuItem) bool {
		return item.RestaurantID == restaurantID
	}), nil
}

func (r *MenuItemRepository) GetActiveByRestaurantID(_ context.Context, restaurantID string) ([]*models.MenuItem, error) {
	return r.filter(func(item *models.MenuItem) bool {
		return item.RestaurantID == restaurantID && item.Active
	}), nil
}

func (r *MenuItemRepository) filter(keep func(*models.MenuItem) bool) []*models.MenuItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.MenuItem
	for _, id := range r.order {
		if item := r.items[id]; keep(item) {
			cp := *item
			out = append(out, &cp)
		}
	}
	return out
}

func (r *MenuItemRepository) Create(_ context.Context, item *models.MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		r.order = append(r.order, item.ID)
	}
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *MenuItemRepository) UpdateContent(_ context.Context, id, name, description string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return apperrors.NewNotFound("menu item", id)
	}
	item.Name = name
	item.Description = description
	item.UpdatedAt = time.Now()
	return nil
}

type OptimizationRepository struct {
	mu    sync.Mutex
	opts  map[string]*models.OptimizedMenuItem
	order []string
}

func NewOptimizationRepository() *OptimizationRepository {
	return &OptimizationRepository{opts: map[string]*models.OptimizedMenuItem{}}
}

func (r *OptimizationRepository) Create(_ context.Context, opt *models.OptimizedMenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.opts[opt.ID]; !ok {
		r.order = append(r.order, opt.ID)
	}
	cp := *opt
	r.opts[opt.ID] = &cp
	return nil
}

func (r *OptimizationRepository) GetByID(_ context.Context, id string) (*models.OptimizedMenuItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	opt, ok := r.opts[id]
	if !ok {
		return nil, apperrors.NewNotFound("optimization", id)
	}
	cp := *opt
	return &cp, nil
}

func (r *OptimizationRepository) GetByRestaurantID(_ context.Context, restaurantID string) ([]*models.OptimizedMenuItem, error) {
	return r.filter(func(opt *models.OptimizedMenuItem) bool {
		return opt.RestaurantID == restaurantID
	}), nil
}

func (r *OptimizationRepository) GetByStatus(_ context.Context, restaurantID string, status models.ReviewStatus) ([]*models.OptimizedMenuItem, error) {
	return r.filter(func(opt *models.OptimizedMenuItem) bool {
		return opt.RestaurantID == restaurantID && opt.Status == status
	}), nil
}

func (r *OptimizationRepository) filter(keep func(*models.OptimizedMenuItem) bool) []*models.OptimizedMenuItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.OptimizedMenuItem
	for _, id := range r.order {
		if opt := r.opts[id]; keep(opt) {
			cp := *opt
			out = append(out, &cp)
		}
	}
	return out
}

func (r *OptimizationRepository) TransitionStatus(_ context.Context, id string, next models.ReviewStatus, reviewedBy string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	opt, ok := r.opts[id]
	if !ok || opt.Status != models.StatusPending {
		return false, nil
	}
	opt.Status = next
	opt.ReviewedBy = reviewedBy
	opt.ReviewedAt = &at
	return true, nil
}

type SuggestionRepository struct {
	mu    sync.Mutex
	sugs  map[string]*models.MenuItemSuggestion
	order []string
}

func NewSuggestionRepository() *SuggestionRepository {
	return &SuggestionRepository{sugs: map[string]*models.MenuItemSuggestion{}}
}

func (r *SuggestionRepository) Create(_ context.Context, sug *models.MenuItemSuggestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sugs[sug.ID]; !ok {
		r.order = append(r.order, sug.ID)
	}
	cp := *sug
	r.sugs[sug.ID] = &cp
	return nil
}

func (r *SuggestionRepository) GetByID(_ context.Context, id string) (*models.MenuItemSuggestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sug, ok := r.sugs[id]
	if !ok {
		return nil, apperrors.NewNotFound("suggestion", id)
	}
	cp := *sug
	return &cp, nil
}

func (r *SuggestionRepository) GetByRestaurantID(_ context.Context, restaurantID string) ([]*models.MenuItemSuggestion, error) {
	return r.filter(func(sug *models.MenuItemSuggestion) bool {
		return sug.RestaurantID == restaurantID
	}), nil
}

func (r *SuggestionRepository) GetByStatus(_ context.Context, restaurantID string, status models.ReviewStatus) ([]*models.MenuItemSuggestion, error) {
	return r.filter(func(sug *models.MenuItemSuggestion) bool {
		return sug.RestaurantID == restaurantID && sug.Status == status
	}), nil
}

func (r *SuggestionRepository) filter(keep func(*models.MenuItemSuggestion) bool) []*models.MenuItemSuggestion {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.MenuItemSuggestion
	for _, id := range r.order {
		if sug := r.sugs[id]; keep(sug) {
			cp := *sug
			out = append(out, &cp)
		}
	}
	return out
}

func (r *SuggestionRepository) TransitionStatus(_ context.Context, id string, next models.ReviewStatus, reviewedBy string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sug, ok := r.sugs[id]
	if !ok || sug.Status != models.StatusPending {
		return false, nil
	}
	sug.Status = next
	sug.ReviewedBy = reviewedBy
	sug.ReviewedAt = &at
	return true, nil
}

type ScoreRepository struct {
	mu      sync.RWMutex
	records map[string]*models.ScoreRecord
}

func NewScoreRepository() *ScoreRepository {
	return &ScoreRepository{records: map[string]*models.ScoreRecord{}}
}

func (r *ScoreRepository) GetByMenuItemID(_ context.Context, menuItemID string) (*models.ScoreRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[menuItemID]
	if !ok {
		return nil, apperrors.NewNotFound("score record", menuItemID)
	}
	cp := *rec
	cp.Trend = append([]models.TrendPoint{}, rec.Trend...)
	return &cp, nil
}

func (r *ScoreRepository) GetByRestaurantID(_ context.Context, restaurantID string) ([]*models.ScoreRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.ScoreRecord
	for _, rec := range r.records {
		if rec.RestaurantID != restaurantID {
			continue
		}
		cp := *rec
		cp.Trend = append([]models.TrendPoint{}, rec.Trend...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Compare(out[i].MenuItemID, out[j].MenuItemID) < 0
	})
	return out, nil
}

func (r *ScoreRepository) Save(_ context.Context, record *models.ScoreRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *record
	cp.Trend = append([]models.TrendPoint{}, record.Trend...)
	r.records[record.MenuItemID] = &cp
	return nil
}
