package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	apperrors "github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/errors"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
)

// ScoreRepository stores one row per menu item; the trend series rides along
// as jsonb so recompute can append without a second table.
type ScoreRepository struct {
	db *sql.DB
}

func NewScoreRepository(db *sql.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

func scanScore(row interface{ Scan(...interface{}) error }) (*models.ScoreRecord, error) {
	var rec models.ScoreRecord
	var trend []byte
	err := row.Scan(
		&rec.MenuItemID, &rec.RestaurantID,
		&rec.PopularityScore, &rec.ProfitabilityScore, &rec.RecommendationScore,
		&trend, &rec.ComputedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(trend) > 0 {
		if err := json.Unmarshal(trend, &rec.Trend); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

func (r *ScoreRepository) GetByMenuItemID(ctx context.Context, menuItemID string) (*models.ScoreRecord, error) {
	query := `
		SELECT menu_item_id, restaurant_id, popularity_score, profitability_score,
			recommendation_score, trend, computed_at
		FROM score_records
		WHERE menu_item_id = $1`

	rec, err := scanScore(r.db.QueryRowContext(ctx, query, menuItemID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFound("score record", menuItemID)
	}
	if err != nil {
		return nil, apperrors.NewStorageFailed("get score record", err)
	}
	return rec, nil
}

func (r *ScoreRepository) GetByRestaurantID(ctx context.Context, restaurantID string) ([]*models.ScoreRecord, error) {
	query := `
		SELECT menu_item_id, restaurant_id, popularity_score, profitability_score,
			recommendation_score, trend, computed_at
		FROM score_records
		WHERE restaurant_id = $1
		ORDER BY menu_item_id`

	rows, err := r.db.QueryContext(ctx, query, restaurantID)
	if err != nil {
		return nil, apperrors.NewStorageFailed("query score records", err)
	}
	defer rows.Close()

	var recs []*models.ScoreRecord
	for rows.Next() {
		rec, err := scanScore(rows)
		if err != nil {
			return nil, apperrors.NewStorageFailed("scan score record", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageFailed("query score records", err)
	}
	return recs, nil
}

func (r *ScoreRepository) Save(ctx context.Context, record *models.ScoreRecord) error {
	trend, err := json.Marshal(record.Trend)
	if err != nil {
		return apperrors.NewStorageFailed("encode trend", err)
	}

	query := `
		INSERT INTO score_records (menu_item_id, restaurant_id, popularity_score,
			profitability_score, recommendation_score, trend, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (menu_item_id) DO UPDATE SET
			popularity_score = EXCLUDED.popularity_score,
			profitability_score = EXCLUDED.profitability_score,
			recommendation_score = EXCLUDED.recommendation_score,
			trend = EXCLUDED.trend,
			computed_at = EXCLUDED.computed_at`

	_, err = r.db.ExecContext(ctx, query,
		record.MenuItemID, record.RestaurantID,
		record.PopularityScore, record.ProfitabilityScore, record.RecommendationScore,
		trend, record.ComputedAt,
	)
	if err != nil {
		return apperrors.NewStorageFailed("save score record", err)
	}
	return nil
}
