package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	apperrors "github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/errors"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
)

type OptimizationRepository struct {
	db *sql.DB
}

func NewOptimizationRepository(db *sql.DB) *OptimizationRepository {
	return &OptimizationRepository{db: db}
}

const optimizationColumns = `id, restaurant_id, menu_item_id, proposed_name,
	proposed_description, rationale, demographic_insights, status,
	provider, model, prompt_variant, generated_at, created_at, reviewed_at,
	COALESCE(reviewed_by, '')`

func scanOptimization(row interface{ Scan(...interface{}) error }) (*models.OptimizedMenuItem, error) {
	var opt models.OptimizedMenuItem
	var reviewedAt sql.NullTime
	err := row.Scan(
		&opt.ID, &opt.RestaurantID, &opt.MenuItemID, &opt.ProposedName,
		&opt.ProposedDescription, &opt.Rationale,
		pq.Array(&opt.DemographicInsights), &opt.Status,
		&opt.Audit.Provider, &opt.Audit.Model, &opt.Audit.PromptVariant,
		&opt.Audit.GeneratedAt, &opt.CreatedAt, &reviewedAt, &opt.ReviewedBy,
	)
	if err != nil {
		return nil, err
	}
	if reviewedAt.Valid {
		opt.ReviewedAt = &reviewedAt.Time
	}
	return &opt, nil
}

func (r *OptimizationRepository) Create(ctx context.Context, opt *models.OptimizedMenuItem) error {
	query := `
		INSERT INTO optimized_menu_items (id, restaurant_id, menu_item_id,
			proposed_name, proposed_description, rationale, demographic_insights,
			status, provider, model, prompt_variant, generated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		opt.ID, opt.RestaurantID, opt.MenuItemID,
		opt.ProposedName, opt.ProposedDescription, opt.Rationale,
		pq.Array(opt.DemographicInsights),
		opt.Status, opt.Audit.Provider, opt.Audit.Model, opt.Audit.PromptVariant,
		opt.Audit.GeneratedAt, opt.CreatedAt,
	)
	if err != nil {
		return apperrors.NewStorageFailed("create optimization", err)
	}
	return nil
}

func (r *OptimizationRepository) GetByID(ctx context.Context, id string) (*models.OptimizedMenuItem, error) {
	query := `SELECT ` + optimizationColumns + ` FROM optimized_menu_items WHERE id = $1`

	opt, err := scanOptimization(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFound("optimization", id)
	}
	if err != nil {
		return nil, apperrors.NewStorageFailed("get optimization", err)
	}
	return opt, nil
}

func (r *OptimizationRepository) GetByRestaurantID(ctx context.Context, restaurantID string) ([]*models.OptimizedMenuItem, error) {
	query := `SELECT ` + optimizationColumns + `
		FROM optimized_menu_items
		WHERE restaurant_id = $1
		ORDER BY created_at, id`
	return r.queryOptimizations(ctx, query, restaurantID)
}

func (r *OptimizationRepository) GetByStatus(ctx context.Context, restaurantID string, status models.ReviewStatus) ([]*models.OptimizedMenuItem, error) {
	query := `SELECT ` + optimizationColumns + `
		FROM optimized_menu_items
		WHERE restaurant_id = $1 AND status = $2
		ORDER BY created_at, id`
	return r.queryOptimizations(ctx, query, restaurantID, string(status))
}

func (r *OptimizationRepository) queryOptimizations(ctx context.Context, query string, args ...interface{}) ([]*models.OptimizedMenuItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageFailed("query optimizations", err)
	}
	defer rows.Close()

	var opts []*models.OptimizedMenuItem
	for rows.Next() {
		opt, err := scanOptimization(rows)
		if err != nil {
			return nil, apperrors.NewStorageFailed("scan optimization", err)
		}
		opts = append(opts, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageFailed("query optimizations", err)
	}
	return opts, nil
}

// TransitionStatus claims the row only while it is still pending, so two
// concurrent reviewers cannot both win.
func (r *OptimizationRepository) TransitionStatus(ctx context.Context, id string, next models.ReviewStatus, reviewedBy string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE optimized_menu_items
		 SET status = $1, reviewed_by = $2, reviewed_at = $3
		 WHERE id = $4 AND status = 'pending'`,
		string(next), reviewedBy, at, id,
	)
	if err != nil {
		return false, apperrors.NewStorageFailed("transition optimization", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.NewStorageFailed("transition optimization", err)
	}
	return affected == 1, nil
}
