// internal/models/menu_item.go
package models

import (
	"strings"
	"time"
)

// MenuItem is a live menu entry owned by a restaurant. AI output never
// touches one of these directly; it arrives through an approved
// OptimizedMenuItem or MenuItemSuggestion.
type MenuItem struct {
	ID           string    `json:"id"`
	RestaurantID string    `json:"restaurantId"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	Category     string    `json:"category"`
	Ingredients  []string  `json:"ingredients"`
	DietaryTags  []string  `json:"dietaryTags"`
	Active       bool      `json:"active"`
	AIGenerated  bool      `json:"aiGenerated"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Restaurant carries the profile fields the pipeline needs; full restaurant
// records live with the upload/CRUD service.
type Restaurant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	City     string `json:"city"`
	State    string `json:"state"`
	Cuisine  string `json:"cuisine"`
	EntityID string `json:"entityId"` // taste-graph entity id, empty until linked
}

// NormalizeName lowercases, trims, and collapses interior whitespace so
// "Carnitas  Tacos " and "carnitas tacos" compare equal. Used for suggestion
// dedupe and specialty-dish grouping.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), " ")
}
