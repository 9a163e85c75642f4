package scoring

import (
	"context"
	"fmt"
	"sort"
	"time"

	apperrors "github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/errors"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
)

// Timeframes accepted by AggregateDashboard.
const (
	TimeframeMonth   = "month"
	TimeframeQuarter = "quarter"
	TimeframeYear    = "year"
)

const bottomItemCount = 5

func timeframeWindow(timeframe string, now time.Time) (time.Time, error) {
	switch timeframe {
	case "", TimeframeMonth:
		return now.AddDate(0, -1, 0), nil
	case TimeframeQuarter:
		return now.AddDate(0, -3, 0), nil
	case TimeframeYear:
		return now.AddDate(-1, 0, 0), nil
	default:
		return time.Time{}, apperrors.NewInvalidRequest(fmt.Sprintf("unknown timeframe %q", timeframe))
	}
}

// AggregateDashboard builds the restaurant-level rollup. Ranking is by
// recommendation score descending with item-ID ascending as the tie-break,
// so two runs over the same records always paginate identically.
func (e *Engine) AggregateDashboard(ctx context.Context, restaurantID, timeframe string, page, limit int) (*models.DashboardSnapshot, error) {
	if page < 1 {
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("page must be >= 1, got %d", page))
	}
	if limit < 1 || limit > 100 {
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("limit must be in [1,100], got %d", limit))
	}
	if timeframe == "" {
		timeframe = TimeframeMonth
	}
	since, err := timeframeWindow(timeframe, time.Now())
	if err != nil {
		return nil, err
	}

	records, err := e.scores.GetByRestaurantID(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	items, err := e.items.GetByRestaurantID(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	itemsByID := map[string]*models.MenuItem{}
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	ranked := make([]models.RankedItem, 0, len(records))
	var sumPop, sumProf, sumRec float64
	for _, rec := range records {
		entry := models.RankedItem{
			MenuItemID:          rec.MenuItemID,
			RecommendationScore: rec.RecommendationScore,
		}
		if item := itemsByID[rec.MenuItemID]; item != nil {
			entry.Name = item.Name
			entry.Category = item.Category
		}
		ranked = append(ranked, entry)
		sumPop += rec.PopularityScore
		sumProf += rec.ProfitabilityScore
		sumRec += rec.RecommendationScore
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].RecommendationScore != ranked[j].RecommendationScore {
			return ranked[i].RecommendationScore > ranked[j].RecommendationScore
		}
		return ranked[i].MenuItemID < ranked[j].MenuItemID
	})

	total := len(ranked)
	snapshot := &models.DashboardSnapshot{
		RestaurantID:    restaurantID,
		Timeframe:       timeframe,
		TotalItems:      total,
		Page:            page,
		Limit:           limit,
		HasNextPage:     page*limit < total,
		HasPreviousPage: page > 1 && total > 0,
	}
	if total > 0 {
		snapshot.AveragePopularity = sumPop / float64(total)
		snapshot.AverageProfitability = sumProf / float64(total)
		snapshot.AverageRecommendation = sumRec / float64(total)
	}

	start := (page - 1) * limit
	if start < total {
		end := start + limit
		if end > total {
			end = total
		}
		snapshot.TopPerformingItems = append([]models.RankedItem{}, ranked[start:end]...)
	} else {
		snapshot.TopPerformingItems = []models.RankedItem{}
	}

	bottom := bottomItemCount
	if bottom > total {
		bottom = total
	}
	for i := 0; i < bottom; i++ {
		snapshot.BottomItems = append(snapshot.BottomItems, ranked[total-1-i])
	}

	snapshot.Categories = categoryBreakdown(ranked)
	snapshot.MonthlyTrend = monthlyTrend(records, since)
	return snapshot, nil
}

func categoryBreakdown(ranked []models.RankedItem) []models.CategoryBreakdown {
	type agg struct {
		count int
		sum   float64
	}
	byCategory := map[string]*agg{}
	for _, item := range ranked {
		category := item.Category
		if category == "" {
			category = "uncategorized"
		}
		a := byCategory[category]
		if a == nil {
			a = &agg{}
			byCategory[category] = a
		}
		a.count++
		a.sum += item.RecommendationScore
	}

	out := make([]models.CategoryBreakdown, 0, len(byCategory))
	for category, a := range byCategory {
		out = append(out, models.CategoryBreakdown{
			Category:     category,
			ItemCount:    a.count,
			AverageScore: a.sum / float64(a.count),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

func monthlyTrend(records []*models.ScoreRecord, since time.Time) []models.MonthlyTrendPoint {
	type agg struct {
		count int
		sum   float64
	}
	byMonth := map[string]*agg{}
	for _, rec := range records {
		for _, point := range rec.Trend {
			if point.Metric != "recommendation" || point.Date.Before(since) {
				continue
			}
			month := point.Date.Format("2006-01")
			a := byMonth[month]
			if a == nil {
				a = &agg{}
				byMonth[month] = a
			}
			a.count++
			a.sum += point.Value
		}
	}

	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)

	out := make([]models.MonthlyTrendPoint, 0, len(months))
	for _, month := range months {
		a := byMonth[month]
		out = append(out, models.MonthlyTrendPoint{
			Month:        month,
			AverageScore: a.sum / float64(a.count),
		})
	}
	return out
}
