package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	apperrors "github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/errors"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
)

type MenuItemRepository struct {
	db *sql.DB
}

func NewMenuItemRepository(db *sql.DB) *MenuItemRepository {
	return &MenuItemRepository{db: db}
}

const menuItemColumns = `id, restaurant_id, name, description, price, category,
	ingredients, dietary_tags, active, ai_generated, created_at, updated_at`

func scanMenuItem(row interface{ Scan(...interface{}) error }) (*models.MenuItem, error) {
	var item models.MenuItem
	err := row.Scan(
		&item.ID, &item.RestaurantID, &item.Name, &item.Description,
		&item.Price, &item.Category,
		pq.Array(&item.Ingredients), pq.Array(&item.DietaryTags),
		&item.Active, &item.AIGenerated, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *MenuItemRepository) GetByID(ctx context.Context, id string) (*models.MenuItem, error) {
	query := `SELECT ` + menuItemColumns + ` FROM menu_items WHERE id = $1`

	item, err := scanMenuItem(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFound("menu item", id)
	}
	if err != nil {
		return nil, apperrors.NewStorageFailed("get menu item", err)
	}
	return item, nil
}

func (r *MenuItemRepository) GetByRestaurantID(ctx context.Context, restaurantID string) ([]*models.MenuItem, error) {
	query := `SELECT ` + menuItemColumns + `
		FROM menu_items
		WHERE restaurant_id = $1
		ORDER BY created_at, id`
	return r.queryItems(ctx, query, restaurantID)
}

func (r *MenuItemRepository) GetActiveByRestaurantID(ctx context.Context, restaurantID string) ([]*models.MenuItem, error) {
	query := `SELECT ` + menuItemColumns + `
		FROM menu_items
		WHERE restaurant_id = $1 AND active
		ORDER BY created_at, id`
	return r.queryItems(ctx, query, restaurantID)
}

func (r *MenuItemRepository) queryItems(ctx context.Context, query string, args ...interface{}) ([]*models.MenuItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageFailed("query menu items", err)
	}
	defer rows.Close()

	var items []*models.MenuItem
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, apperrors.NewStorageFailed("scan menu item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageFailed("query menu items", err)
	}
	return items, nil
}

func (r *MenuItemRepository) Create(ctx context.Context, item *models.MenuItem) error {
	query := `
		INSERT INTO menu_items (id, restaurant_id, name, description, price, category,
			ingredients, dietary_tags, active, ai_generated, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.RestaurantID, item.Name, item.Description,
		item.Price, item.Category,
		pq.Array(item.Ingredients), pq.Array(item.DietaryTags),
		item.Active, item.AIGenerated, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewStorageFailed("create menu item", err)
	}
	return nil
}

func (r *MenuItemRepository) UpdateContent(ctx context.Context, id, name, description string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE menu_items SET name = $1, description = $2, updated_at = NOW() WHERE id = $3`,
		name, description, id,
	)
	if err != nil {
		return apperrors.NewStorageFailed("update menu item content", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewStorageFailed("update menu item content", err)
	}
	if affected == 0 {
		return apperrors.NewNotFound("menu item", id)
	}
	return nil
}
