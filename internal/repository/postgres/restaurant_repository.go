// Package postgres implements the repository contracts on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"

	apperrors "github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/errors"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
)

type RestaurantRepository struct {
	db *sql.DB
}

func NewRestaurantRepository(db *sql.DB) *RestaurantRepository {
	return &RestaurantRepository{db: db}
}

func (r *RestaurantRepository) GetByID(ctx context.Context, id string) (*models.Restaurant, error) {
	query := `
		SELECT id, name, city, state, cuisine, COALESCE(entity_id, '')
		FROM restaurants
		WHERE id = $1`

	var rest models.Restaurant
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rest.ID, &rest.Name, &rest.City, &rest.State, &rest.Cuisine, &rest.EntityID,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFound("restaurant", id)
	}
	if err != nil {
		return nil, apperrors.NewStorageFailed("get restaurant", err)
	}
	return &rest, nil
}

func (r *RestaurantRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM restaurants ORDER BY created_at, id`)
	if err != nil {
		return nil, apperrors.NewStorageFailed("list restaurants", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewStorageFailed("scan restaurant id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageFailed("list restaurants", err)
	}
	return ids, nil
}

func (r *RestaurantRepository) UpdateEntityID(ctx context.Context, id, entityID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE restaurants SET entity_id = $1, updated_at = NOW() WHERE id = $2`,
		entityID, id,
	)
	if err != nil {
		return apperrors.NewStorageFailed("update restaurant entity id", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewStorageFailed("update restaurant entity id", err)
	}
	if affected == 0 {
		return apperrors.NewNotFound("restaurant", id)
	}
	return nil
}
