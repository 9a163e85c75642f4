// internal/models/taste.go
package models

import "time"

// CandidateEntity is one taste-graph search hit, ordered upstream by
// relevance.
type CandidateEntity struct {
	EntityID  string  `json:"entityId"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Relevance float64 `json:"relevance"`
}

// SimilarRestaurant is one entry from a similar-entity lookup.
type SimilarRestaurant struct {
	EntityID        string   `json:"entityId"`
	Name            string   `json:"name"`
	Rating          float64  `json:"rating"`
	Popularity      float64  `json:"popularity"` // upstream percentile, 0..1
	SpecialtyDishes []string `json:"specialtyDishes"`
}

// SpecialtyDish is a dish name recurring across similar restaurants, ranked
// by how many restaurants report it and how popular those restaurants are.
type SpecialtyDish struct {
	Name            string  `json:"name"` // normalized
	RestaurantCount int     `json:"restaurantCount"`
	Popularity      float64 `json:"popularity"` // mean popularity of reporting restaurants
}

// SimilarSet is an immutable fetch result from the similar-entity endpoint.
// Re-fetching produces a new snapshot; entries are never updated in place.
type SimilarSet struct {
	EntityID        string              `json:"entityId"`
	MinRatingFilter float64             `json:"minRatingFilter"`
	Restaurants     []SimilarRestaurant `json:"restaurants"`
	SpecialtyDishes []SpecialtyDish     `json:"specialtyDishes"`
	RetrievedAt     time.Time           `json:"retrievedAt"`
}

// DemographicSegment is one slice of a demographics breakdown.
type DemographicSegment struct {
	Segment string  `json:"segment"`
	Share   float64 `json:"share"` // 0..1
}

// DemographicsSnapshot is an immutable fetch result from the demographics
// endpoint.
type DemographicsSnapshot struct {
	EntityID     string               `json:"entityId"`
	AgeGroups    []DemographicSegment `json:"ageGroups"`
	Interests    []DemographicSegment `json:"interests"`
	DiningStyles []DemographicSegment `json:"diningStyles"`
	RetrievedAt  time.Time            `json:"retrievedAt"`
}

// DominantSegments returns segment names with share at or above the cutoff,
// across all breakdown dimensions.
func (d *DemographicsSnapshot) DominantSegments(cutoff float64) []string {
	var out []string
	for _, group := range [][]DemographicSegment{d.AgeGroups, d.Interests, d.DiningStyles} {
		for _, seg := range group {
			if seg.Share >= cutoff {
				out = append(out, seg.Segment)
			}
		}
	}
	return out
}

// TasteProfile summarizes the taste-graph view of a single restaurant used
// when prompting content providers.
type TasteProfile struct {
	EntityID             string    `json:"entityId"`
	PopularityPercentile float64   `json:"popularityPercentile"` // 0..1
	Cuisine              string    `json:"cuisine"`
	RetrievedAt          time.Time `json:"retrievedAt"`
}

// Enrichment bundles everything a single pipeline run fetched for one
// restaurant. Reused across that run's items, never across restaurants.
type Enrichment struct {
	RestaurantID string                `json:"restaurantId"`
	Similar      *SimilarSet           `json:"similar,omitempty"`
	Demographics *DemographicsSnapshot `json:"demographics,omitempty"`
	Profile      *TasteProfile         `json:"profile,omitempty"`
	Warnings     []string              `json:"warnings,omitempty"`
}
