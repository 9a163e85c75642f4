package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/errors"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/logger"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/metrics"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
	"github.com/xeipuuv/gojsonschema"
)

// Capability names, used for metrics and error details.
const (
	CapabilityEnhanceDescription    = "enhance_description"
	CapabilityExplainRecommendation = "explain_recommendation"
	CapabilityGenerateSuggestions   = "generate_suggestions"
)

// Prompt variants recorded in audit metadata so output can be traced back to
// the prompt that produced it.
const (
	enhanceVariant = "enhance-v2"
	explainVariant = "explain-v1"
	suggestVariant = "suggest-v1"
)

const systemPrompt = "You are a culinary copywriter for restaurant menus. " +
	"Respond with a single JSON object and nothing else."

// DescriptionEnhancement is the parsed output of EnhanceDescription.
type DescriptionEnhancement struct {
	ProposedName        string                 `json:"proposedName"`
	ProposedDescription string                 `json:"proposedDescription"`
	Rationale           string                 `json:"rationale"`
	DemographicInsights []string               `json:"demographicInsights"`
	Audit               models.GenerationAudit `json:"audit"`
}

// SuggestedItem is one candidate new menu item from GenerateItemSuggestions.
type SuggestedItem struct {
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	EstimatedPrice    float64 `json:"estimatedPrice"`
	Category          string  `json:"category"`
	InspirationSource string  `json:"inspirationSource"`
}

// SuggestionSet bundles the suggestions with the audit of the provider that
// produced them.
type SuggestionSet struct {
	Items []SuggestedItem        `json:"items"`
	Audit models.GenerationAudit `json:"audit"`
}

// SuggestionConstraints narrows what GenerateItemSuggestions may propose.
type SuggestionConstraints struct {
	Count        int      `json:"count"`
	Category     string   `json:"category,omitempty"`
	MaxPrice     float64  `json:"maxPrice,omitempty"`
	DietaryFocus []string `json:"dietaryFocus,omitempty"`
}

// Orchestrator runs each request through the configured providers in order
// and returns the first output that satisfies the capability's contract.
// Transport errors, quota errors, and contract-violating output all mean the
// same thing: try the next provider.
type Orchestrator struct {
	providers []Provider
	logger    logger.Logger
	now       func() time.Time
}

func NewOrchestrator(providers []Provider, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		providers: providers,
		logger:    log.With(map[string]interface{}{"component": "content"}),
		now:       time.Now,
	}
}

func (o *Orchestrator) generate(ctx context.Context, capability, variant string, req GenerationRequest, contract *gojsonschema.Schema, out interface{}) (models.GenerationAudit, error) {
	if len(o.providers) == 0 {
		return models.GenerationAudit{}, apperrors.NewGenerationFailed(capability, errors.New("no providers configured"))
	}

	var lastErr error
	for _, provider := range o.providers {
		if err := ctx.Err(); err != nil {
			break
		}

		result, err := provider.Generate(ctx, req)
		if err == nil {
			doc := stripCodeFence(result.Text)
			if err = validateAgainst(contract, doc); err == nil {
				if err = json.Unmarshal([]byte(doc), out); err == nil {
					return models.GenerationAudit{
						Provider:      provider.Name(),
						Model:         result.Model,
						PromptVariant: variant,
						GeneratedAt:   o.now().UTC(),
					}, nil
				}
			}
		}

		lastErr = fmt.Errorf("provider %s: %w", provider.Name(), err)
		metrics.GenerationFallbacks.WithLabelValues(capability, provider.Name()).Inc()
		o.logger.Warn("provider failed, falling through", map[string]interface{}{
			"capability": capability,
			"provider":   provider.Name(),
			"error":      err.Error(),
		})
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return models.GenerationAudit{}, apperrors.NewGenerationFailed(capability, lastErr)
}

// EnhanceDescription asks for an improved name and description for one live
// item, informed by the restaurant's taste profile and target audience.
func (o *Orchestrator) EnhanceDescription(ctx context.Context, item *models.MenuItem, profile *models.TasteProfile, targetAudience []string) (*DescriptionEnhancement, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Improve this menu item for a %s restaurant.\n", orUnknown(profile.Cuisine))
	fmt.Fprintf(&sb, "Item: %s\nCurrent description: %s\nPrice: %.2f\nCategory: %s\n",
		item.Name, item.Description, item.Price, item.Category)
	if len(item.Ingredients) > 0 {
		fmt.Fprintf(&sb, "Ingredients: %s\n", strings.Join(item.Ingredients, ", "))
	}
	if len(targetAudience) > 0 {
		fmt.Fprintf(&sb, "Target audience segments: %s\n", strings.Join(targetAudience, ", "))
	}
	sb.WriteString(`Return JSON: {"proposedName": string, "proposedDescription": string, ` +
		`"rationale": string, "demographicInsights": [string]}`)

	var enhancement DescriptionEnhancement
	audit, err := o.generate(ctx, CapabilityEnhanceDescription, enhanceVariant,
		GenerationRequest{System: systemPrompt, Prompt: sb.String()},
		enhancementContract, &enhancement)
	if err != nil {
		return nil, err
	}
	enhancement.Audit = audit
	return &enhancement, nil
}

// ExplainRecommendation writes a short explanation of why the given items
// suit a customer profile. Taste profiles, when known for an item's
// restaurant, give the model cuisine context.
func (o *Orchestrator) ExplainRecommendation(ctx context.Context, customerProfile string, items []*models.MenuItem, profiles map[string]*models.TasteProfile) (*models.Recommendation, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Customer profile: %s\nRecommended items:\n", customerProfile)
	itemIDs := make([]string, 0, len(items))
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
		fmt.Fprintf(&sb, "- %s: %s", item.Name, item.Description)
		if p := profiles[item.RestaurantID]; p != nil && p.Cuisine != "" {
			fmt.Fprintf(&sb, " (%s)", p.Cuisine)
		}
		sb.WriteString("\n")
	}
	sb.WriteString(`Explain why these fit. Return JSON: {"explanation": string}`)

	var parsed struct {
		Explanation string `json:"explanation"`
	}
	audit, err := o.generate(ctx, CapabilityExplainRecommendation, explainVariant,
		GenerationRequest{System: systemPrompt, Prompt: sb.String()},
		explanationContract, &parsed)
	if err != nil {
		return nil, err
	}
	return &models.Recommendation{ItemIDs: itemIDs, Explanation: parsed.Explanation, Audit: audit}, nil
}

// GenerateItemSuggestions proposes new menu items seeded by what similar
// restaurants are known for.
func (o *Orchestrator) GenerateItemSuggestions(ctx context.Context, restaurant *models.Restaurant, trending []models.SpecialtyDish, existingItems []string, constraints SuggestionConstraints) (*SuggestionSet, error) {
	count := constraints.Count
	if count <= 0 {
		count = 5
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Propose %d new menu items for %s, a %s restaurant in %s, %s.\n",
		count, restaurant.Name, orUnknown(restaurant.Cuisine), restaurant.City, restaurant.State)
	if len(trending) > 0 {
		sb.WriteString("Dishes similar restaurants are known for, most common first:\n")
		for _, dish := range trending {
			fmt.Fprintf(&sb, "- %s (served by %d similar restaurants)\n", dish.Name, dish.RestaurantCount)
		}
	}
	if len(existingItems) > 0 {
		fmt.Fprintf(&sb, "Already on the menu, do not repeat: %s\n", strings.Join(existingItems, ", "))
	}
	if constraints.Category != "" {
		fmt.Fprintf(&sb, "Category: %s\n", constraints.Category)
	}
	if constraints.MaxPrice > 0 {
		fmt.Fprintf(&sb, "Keep estimated prices at or under %.2f.\n", constraints.MaxPrice)
	}
	if len(constraints.DietaryFocus) > 0 {
		fmt.Fprintf(&sb, "Dietary focus: %s\n", strings.Join(constraints.DietaryFocus, ", "))
	}
	sb.WriteString(`Return JSON: {"suggestions": [{"name": string, "description": string, ` +
		`"estimatedPrice": number, "category": string, "inspirationSource": string}]}`)

	var parsed struct {
		Suggestions []SuggestedItem `json:"suggestions"`
	}
	audit, err := o.generate(ctx, CapabilityGenerateSuggestions, suggestVariant,
		GenerationRequest{System: systemPrompt, Prompt: sb.String()},
		suggestionsContract, &parsed)
	if err != nil {
		return nil, err
	}
	return &SuggestionSet{Items: parsed.Suggestions, Audit: audit}, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "general"
	}
	return s
}
