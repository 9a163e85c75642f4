package postgres

import (
	"context"
	"database/sql"
	"time"

	apperrors "github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/errors"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
)

type SuggestionRepository struct {
	db *sql.DB
}

func NewSuggestionRepository(db *sql.DB) *SuggestionRepository {
	return &SuggestionRepository{db: db}
}

const suggestionColumns = `id, restaurant_id, name, description, estimated_price,
	category, inspiration_source, status, provider, model, prompt_variant,
	generated_at, created_at, reviewed_at, COALESCE(reviewed_by, '')`

func scanSuggestion(row interface{ Scan(...interface{}) error }) (*models.MenuItemSuggestion, error) {
	var sug models.MenuItemSuggestion
	var reviewedAt sql.NullTime
	err := row.Scan(
		&sug.ID, &sug.RestaurantID, &sug.Name, &sug.Description,
		&sug.EstimatedPrice, &sug.Category, &sug.InspirationSource, &sug.Status,
		&sug.Audit.Provider, &sug.Audit.Model, &sug.Audit.PromptVariant,
		&sug.Audit.GeneratedAt, &sug.CreatedAt, &reviewedAt, &sug.ReviewedBy,
	)
	if err != nil {
		return nil, err
	}
	if reviewedAt.Valid {
		sug.ReviewedAt = &reviewedAt.Time
	}
	return &sug, nil
}

func (r *SuggestionRepository) Create(ctx context.Context, sug *models.MenuItemSuggestion) error {
	query := `
		INSERT INTO menu_item_suggestions (id, restaurant_id, name, description,
			estimated_price, category, inspiration_source, status,
			provider, model, prompt_variant, generated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		sug.ID, sug.RestaurantID, sug.Name, sug.Description,
		sug.EstimatedPrice, sug.Category, sug.InspirationSource, sug.Status,
		sug.Audit.Provider, sug.Audit.Model, sug.Audit.PromptVariant,
		sug.Audit.GeneratedAt, sug.CreatedAt,
	)
	if err != nil {
		return apperrors.NewStorageFailed("create suggestion", err)
	}
	return nil
}

func (r *SuggestionRepository) GetByID(ctx context.Context, id string) (*models.MenuItemSuggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM menu_item_suggestions WHERE id = $1`

	sug, err := scanSuggestion(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFound("suggestion", id)
	}
	if err != nil {
		return nil, apperrors.NewStorageFailed("get suggestion", err)
	}
	return sug, nil
}

func (r *SuggestionRepository) GetByRestaurantID(ctx context.Context, restaurantID string) ([]*models.MenuItemSuggestion, error) {
	query := `SELECT ` + suggestionColumns + `
		FROM menu_item_suggestions
		WHERE restaurant_id = $1
		ORDER BY created_at, id`
	return r.querySuggestions(ctx, query, restaurantID)
}

func (r *SuggestionRepository) GetByStatus(ctx context.Context, restaurantID string, status models.ReviewStatus) ([]*models.MenuItemSuggestion, error) {
	query := `SELECT ` + suggestionColumns + `
		FROM menu_item_suggestions
		WHERE restaurant_id = $1 AND status = $2
		ORDER BY created_at, id`
	return r.querySuggestions(ctx, query, restaurantID, string(status))
}

func (r *SuggestionRepository) querySuggestions(ctx context.Context, query string, args ...interface{}) ([]*models.MenuItemSuggestion, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageFailed("query suggestions", err)
	}
	defer rows.Close()

	var sugs []*models.MenuItemSuggestion
	for rows.Next() {
		sug, err := scanSuggestion(rows)
		if err != nil {
			return nil, apperrors.NewStorageFailed("scan suggestion", err)
		}
		sugs = append(sugs, sug)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageFailed("query suggestions", err)
	}
	return sugs, nil
}

func (r *SuggestionRepository) TransitionStatus(ctx context.Context, id string, next models.ReviewStatus, reviewedBy string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE menu_item_suggestions
		 SET status = $1, reviewed_by = $2, reviewed_at = $3
		 WHERE id = $4 AND status = 'pending'`,
		string(next), reviewedBy, at, id,
	)
	if err != nil {
		return false, apperrors.NewStorageFailed("transition suggestion", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.NewStorageFailed("transition suggestion", err)
	}
	return affected == 1, nil
}
