package tastegraph

import (
	"sort"

	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
)

// RankSpecialtyDishes groups the dishes reported by similar restaurants and
// ranks them. Grouping is case-insensitive on the normalized name; a
// restaurant reporting the same dish twice counts once. Order is restaurant
// count desc, then mean popularity of the reporting restaurants desc, then
// name asc, so equal inputs always rank identically.
func RankSpecialtyDishes(restaurants []models.SimilarRestaurant) []models.SpecialtyDish {
	type bucket struct {
		count         int
		popularitySum float64
	}
	buckets := map[string]*bucket{}

	for _, r := range restaurants {
		seen := map[string]bool{}
		for _, dish := range r.SpecialtyDishes {
			name := models.NormalizeName(dish)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			b := buckets[name]
			if b == nil {
				b = &bucket{}
				buckets[name] = b
			}
			b.count++
			b.popularitySum += r.Popularity
		}
	}

	dishes := make([]models.SpecialtyDish, 0, len(buckets))
	for name, b := range buckets {
		dishes = append(dishes, models.SpecialtyDish{
			Name:            name,
			RestaurantCount: b.count,
			Popularity:      b.popularitySum / float64(b.count),
		})
	}

	sort.Slice(dishes, func(i, j int) bool {
		if dishes[i].RestaurantCount != dishes[j].RestaurantCount {
			return dishes[i].RestaurantCount > dishes[j].RestaurantCount
		}
		if dishes[i].Popularity != dishes[j].Popularity {
			return dishes[i].Popularity > dishes[j].Popularity
		}
		return dishes[i].Name < dishes[j].Name
	})
	return dishes
}
