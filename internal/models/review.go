// internal/models/review.go
package models

import "time"

// ReviewStatus is the gate applied to AI-generated records before they touch
// live menu data.
type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusApproved ReviewStatus = "approved"
	StatusRejected ReviewStatus = "rejected"
)

// Valid reports whether s is one of the three known states.
func (s ReviewStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s allows no further transitions.
func (s ReviewStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransitionTo reports whether s -> next is a legal transition. Only
// pending records move, and only to a terminal state.
func (s ReviewStatus) CanTransitionTo(next ReviewStatus) bool {
	return s == StatusPending && next.Terminal()
}

// GenerationAudit records which provider and prompt variant produced a piece
// of AI content.
type GenerationAudit struct {
	Provider      string    `json:"provider"`
	Model         string    `json:"model"`
	PromptVariant string    `json:"promptVariant"`
	GeneratedAt   time.Time `json:"generatedAt"`
}

// OptimizedMenuItem pairs a live item with an AI-proposed replacement.
// Created pending by the pipeline, transitioned exactly once by the review
// workflow, kept forever for audit.
type OptimizedMenuItem struct {
	ID                  string          `json:"id"`
	RestaurantID        string          `json:"restaurantId"`
	MenuItemID          string          `json:"menuItemId"`
	ProposedName        string          `json:"proposedName"`
	ProposedDescription string          `json:"proposedDescription"`
	Rationale           string          `json:"rationale"`
	DemographicInsights []string        `json:"demographicInsights"`
	Status              ReviewStatus    `json:"status"`
	Audit               GenerationAudit `json:"audit"`
	CreatedAt           time.Time       `json:"createdAt"`
	ReviewedAt          *time.Time      `json:"reviewedAt,omitempty"`
	ReviewedBy          string          `json:"reviewedBy,omitempty"`
}

// MenuItemSuggestion is a wholly new candidate item seeded from the
// specialty-dish ranking. Same lifecycle as OptimizedMenuItem.
type MenuItemSuggestion struct {
	ID                string          `json:"id"`
	RestaurantID      string          `json:"restaurantId"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	EstimatedPrice    float64         `json:"estimatedPrice"`
	Category          string          `json:"category"`
	InspirationSource string          `json:"inspirationSource"` // specialty dish or trend that seeded it
	Status            ReviewStatus    `json:"status"`
	Audit             GenerationAudit `json:"audit"`
	CreatedAt         time.Time       `json:"createdAt"`
	ReviewedAt        *time.Time      `json:"reviewedAt,omitempty"`
	ReviewedBy        string          `json:"reviewedBy,omitempty"`
}

// Recommendation is an AI-written explanation of why a set of items suits a
// customer profile.
type Recommendation struct {
	ItemIDs     []string        `json:"itemIds"`
	Explanation string          `json:"explanation"`
	Audit       GenerationAudit `json:"audit"`
}
