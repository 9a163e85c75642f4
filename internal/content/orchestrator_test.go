package content

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/config"
	apperrors "github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/errors"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/logger"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/ratelimit"
)

type stubProvider struct {
	name string
	text string
	err  error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &GenerationResult{Text: s.text, Model: s.name + "-model"}, nil
}

var testItem = &models.MenuItem{
	ID:           "item-1",
	RestaurantID: "rest-1",
	Name:         "Carnitas Tacos",
	Description:  "pork tacos",
	Price:        12.5,
	Category:     "entrees",
	Ingredients:  []string{"pork", "tortilla"},
}

const validEnhancement = `{"proposedName":"Heritage Carnitas Tacos",
	"proposedDescription":"citrus-braised pork on handmade tortillas",
	"rationale":"leans into what nearby taquerias are known for",
	"demographicInsights":["popular with 25-34 foodies"]}`

func TestEnhanceDescription_FirstProviderWins(t *testing.T) {
	o := NewOrchestrator([]Provider{
		&stubProvider{name: "primary", text: validEnhancement},
		&stubProvider{name: "secondary", err: errors.New("should not be called")},
	}, logger.NewTestLogger(t))

	enhancement, err := o.EnhanceDescription(context.Background(), testItem, &models.TasteProfile{Cuisine: "mexican"}, nil)

	require.NoError(t, err)
	assert.Equal(t, "Heritage Carnitas Tacos", enhancement.ProposedName)
	assert.Equal(t, "primary", enhancement.Audit.Provider)
	assert.Equal(t, "primary-model", enhancement.Audit.Model)
	assert.Equal(t, "enhance-v2", enhancement.Audit.PromptVariant)
	assert.False(t, enhancement.Audit.GeneratedAt.IsZero())
}

func TestEnhanceDescription_FallsThroughOnFailure(t *testing.T) {
	o := NewOrchestrator([]Provider{
		&stubProvider{name: "primary", err: apperrors.NewTransientUpstream("provider-primary", errors.New("timeout"))},
		&stubProvider{name: "secondary", text: validEnhancement},
	}, logger.NewTestLogger(t))

	enhancement, err := o.EnhanceDescription(context.Background(), testItem, &models.TasteProfile{}, nil)

	require.NoError(t, err)
	assert.Equal(t, "secondary", enhancement.Audit.Provider,
		"audit must name the provider that actually produced the output")
}

func TestEnhanceDescription_SchemaViolationIsProviderFailure(t *testing.T) {
	o := NewOrchestrator([]Provider{
		&stubProvider{name: "primary", text: `{"proposedName":"x"}`},
		&stubProvider{name: "secondary", text: validEnhancement},
	}, logger.NewTestLogger(t))

	enhancement, err := o.EnhanceDescription(context.Background(), testItem, &models.TasteProfile{}, nil)

	require.NoError(t, err)
	assert.Equal(t, "secondary", enhancement.Audit.Provider)
}

func TestEnhanceDescription_ExhaustionSurfacesGenerationFailed(t *testing.T) {
	o := NewOrchestrator([]Provider{
		&stubProvider{name: "primary", err: errors.New("down")},
		&stubProvider{name: "secondary", text: `not even json`},
	}, logger.NewTestLogger(t))

	_, err := o.EnhanceDescription(context.Background(), testItem, &models.TasteProfile{}, nil)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeGenerationFailed))
}

func TestEnhanceDescription_CodeFencedOutputAccepted(t *testing.T) {
	o := NewOrchestrator([]Provider{
		&stubProvider{name: "primary", text: "```json\n" + validEnhancement + "\n```"},
	}, logger.NewTestLogger(t))

	enhancement, err := o.EnhanceDescription(context.Background(), testItem, &models.TasteProfile{}, nil)

	require.NoError(t, err)
	assert.Equal(t, "Heritage Carnitas Tacos", enhancement.ProposedName)
}

func TestGenerateItemSuggestions_ValidatesContract(t *testing.T) {
	missingPrice := `{"suggestions":[{"name":"Elote","description":"street corn"}]}`
	valid := `{"suggestions":[{"name":"Elote","description":"street corn","estimatedPrice":6.5,
		"category":"sides","inspirationSource":"elote"}]}`

	o := NewOrchestrator([]Provider{
		&stubProvider{name: "primary", text: missingPrice},
		&stubProvider{name: "secondary", text: valid},
	}, logger.NewTestLogger(t))

	set, err := o.GenerateItemSuggestions(context.Background(), &models.Restaurant{Name: "Taqueria"},
		nil, nil, SuggestionConstraints{Count: 1})

	require.NoError(t, err)
	require.Len(t, set.Items, 1)
	assert.Equal(t, 6.5, set.Items[0].EstimatedPrice)
	assert.Equal(t, "secondary", set.Audit.Provider)
}

func TestExplainRecommendation(t *testing.T) {
	o := NewOrchestrator([]Provider{
		&stubProvider{name: "primary", text: `{"explanation":"light, shareable plates fit a casual group"}`},
	}, logger.NewTestLogger(t))

	rec, err := o.ExplainRecommendation(context.Background(), "casual group dinner",
		[]*models.MenuItem{testItem},
		map[string]*models.TasteProfile{testItem.RestaurantID: {Cuisine: "mexican"}})

	require.NoError(t, err)
	assert.Equal(t, []string{"item-1"}, rec.ItemIDs)
	assert.NotEmpty(t, rec.Explanation)
}

func TestHTTPProvider_TimeoutFallsThroughToNext(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer slow.Close()

	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key-2", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"model":"fast-1","choices":[{"message":{"content":` +
			`"{\"proposedName\":\"New\",\"proposedDescription\":\"desc\",\"rationale\":\"r\"}"}}]}`))
	}))
	defer fast.Close()

	httpClient := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: 1000,
		Burst:             100,
		MaxRetries:        1,
		RetryBaseDelay:    time.Millisecond,
	}, logger.NewTestLogger(t))

	o := NewOrchestrator([]Provider{
		NewHTTPProvider(config.ProviderConfig{Name: "slow", BaseURL: slow.URL, APIKey: "key-1", Model: "slow-1", Timeout: 50}, httpClient),
		NewHTTPProvider(config.ProviderConfig{Name: "fast", BaseURL: fast.URL, APIKey: "key-2", Model: "fast-1", Timeout: 5000}, httpClient),
	}, logger.NewTestLogger(t))

	enhancement, err := o.EnhanceDescription(context.Background(), testItem, &models.TasteProfile{}, nil)

	require.NoError(t, err)
	assert.Equal(t, "fast", enhancement.Audit.Provider)
	assert.Equal(t, "fast-1", enhancement.Audit.Model)
}
