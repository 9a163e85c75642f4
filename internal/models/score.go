// internal/models/score.go
package models

import "time"

// TrendPoint is one dated metric observation. The trend series is
// append-only; recompute never rewrites prior points.
type TrendPoint struct {
	Date   time.Time `json:"date"`
	Metric string    `json:"metric"`
	Value  float64   `json:"value"`
}

// ScoreRecord holds the three per-item scores plus the ordered trend series.
// Scores are always clamped to [0,100].
type ScoreRecord struct {
	MenuItemID          string       `json:"menuItemId"`
	RestaurantID        string       `json:"restaurantId"`
	PopularityScore     float64      `json:"popularityScore"`
	ProfitabilityScore  float64      `json:"profitabilityScore"`
	RecommendationScore float64      `json:"recommendationScore"`
	Trend               []TrendPoint `json:"trend"`
	ComputedAt          time.Time    `json:"computedAt"`
}

// RankedItem is a dashboard row: an item with its recommendation score.
type RankedItem struct {
	MenuItemID          string  `json:"menuItemId"`
	Name                string  `json:"name"`
	Category            string  `json:"category"`
	RecommendationScore float64 `json:"recommendationScore"`
}

// CategoryBreakdown aggregates scores within one menu category.
type CategoryBreakdown struct {
	Category     string  `json:"category"`
	ItemCount    int     `json:"itemCount"`
	AverageScore float64 `json:"averageScore"`
}

// MonthlyTrendPoint is a restaurant-level monthly rollup.
type MonthlyTrendPoint struct {
	Month        string  `json:"month"` // YYYY-MM
	AverageScore float64 `json:"averageScore"`
}

// DashboardSnapshot is the restaurant-level rollup returned to callers.
// Pagination applies to TopPerformingItems; totals and page booleans let the
// caller render controls without re-counting.
type DashboardSnapshot struct {
	RestaurantID          string              `json:"restaurantId"`
	Timeframe             string              `json:"timeframe"`
	AveragePopularity     float64             `json:"averagePopularity"`
	AverageProfitability  float64             `json:"averageProfitability"`
	AverageRecommendation float64             `json:"averageRecommendation"`
	TopPerformingItems    []RankedItem        `json:"topPerformingItems"`
	BottomItems           []RankedItem        `json:"bottomItems"`
	Categories            []CategoryBreakdown `json:"categories"`
	MonthlyTrend          []MonthlyTrendPoint `json:"monthlyTrend"`
	TotalItems            int                 `json:"totalItems"`
	Page                  int                 `json:"page"`
	Limit                 int                 `json:"limit"`
	HasNextPage           bool                `json:"hasNextPage"`
	HasPreviousPage       bool                `json:"hasPreviousPage"`
}
