package tastegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
)

func TestRankSpecialtyDishes_GroupsCaseInsensitively(t *testing.T) {
	restaurants := []models.SimilarRestaurant{
		{Name: "Taqueria Uno", Popularity: 0.9, SpecialtyDishes: []string{"Carnitas Tacos", "Elote"}},
		{Name: "Taqueria Dos", Popularity: 0.6, SpecialtyDishes: []string{"carnitas tacos"}},
		{Name: "Taqueria Tres", Popularity: 0.3, SpecialtyDishes: []string{"CARNITAS  TACOS", "Elote"}},
	}

	dishes := RankSpecialtyDishes(restaurants)

	require.NotEmpty(t, dishes)
	assert.Equal(t, "carnitas tacos", dishes[0].Name)
	assert.Equal(t, 3, dishes[0].RestaurantCount)
	assert.InDelta(t, 0.6, dishes[0].Popularity, 1e-9)

	assert.Equal(t, "elote", dishes[1].Name)
	assert.Equal(t, 2, dishes[1].RestaurantCount)
}

func TestRankSpecialtyDishes_Deterministic(t *testing.T) {
	restaurants := []models.SimilarRestaurant{
		{Name: "A", Popularity: 0.5, SpecialtyDishes: []string{"pho", "banh mi", "spring rolls"}},
		{Name: "B", Popularity: 0.5, SpecialtyDishes: []string{"banh mi", "pho"}},
		{Name: "C", Popularity: 0.5, SpecialtyDishes: []string{"spring rolls"}},
	}

	first := RankSpecialtyDishes(restaurants)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, RankSpecialtyDishes(restaurants))
	}

	// Equal count and popularity falls back to name order.
	assert.Equal(t, "banh mi", first[0].Name)
	assert.Equal(t, "pho", first[1].Name)
}

func TestRankSpecialtyDishes_DuplicateWithinRestaurantCountsOnce(t *testing.T) {
	restaurants := []models.SimilarRestaurant{
		{Name: "A", Popularity: 0.8, SpecialtyDishes: []string{"ramen", "Ramen", "ramen "}},
	}

	dishes := RankSpecialtyDishes(restaurants)

	require.Len(t, dishes, 1)
	assert.Equal(t, 1, dishes[0].RestaurantCount)
	assert.InDelta(t, 0.8, dishes[0].Popularity, 1e-9)
}

func TestRankSpecialtyDishes_EmptyInput(t *testing.T) {
	assert.Empty(t, RankSpecialtyDishes(nil))
	assert.Empty(t, RankSpecialtyDishes([]models.SimilarRestaurant{{Name: "A"}}))
}
