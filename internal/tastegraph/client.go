// Package tastegraph talks to the external taste-graph service and turns its
// responses into the enrichment snapshots the pipeline consumes.
package tastegraph

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/config"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/logger"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/ratelimit"
)

const serviceName = "taste-graph"

// Client fetches entity, similarity, and demographics data. All outbound
// calls ride the shared rate-limited client; responses become immutable
// snapshots, optionally cached.
type Client struct {
	cfg    config.TasteAPIConfig
	http   *ratelimit.Client
	cache  *SnapshotCache
	logger logger.Logger
	now    func() time.Time
}

// New creates a Client. cache may be nil, which disables snapshot caching.
func New(cfg config.TasteAPIConfig, httpClient *ratelimit.Client, cache *SnapshotCache, log logger.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		cache:  cache,
		logger: log.With(map[string]interface{}{"component": "tastegraph"}),
		now:    time.Now,
	}
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("x-api-key", c.cfg.APIKey)
	return h
}

type searchResponse struct {
	Entities []struct {
		EntityID  string  `json:"entity_id"`
		Name      string  `json:"name"`
		Address   string  `json:"address"`
		Relevance float64 `json:"relevance"`
	} `json:"entities"`
}

// SearchEntities looks up taste-graph candidates for a restaurant by name and
// locality. Upstream relevance order is preserved; an empty result is a valid
// answer, not an error.
func (c *Client) SearchEntities(ctx context.Context, name, city, state string) ([]models.CandidateEntity, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("city", city)
	q.Set("state", state)

	var resp searchResponse
	endpoint := fmt.Sprintf("%s/v1/entities/search?%s", c.cfg.BaseURL, q.Encode())
	if err := c.http.GetJSON(ctx, serviceName, endpoint, c.header(), &resp); err != nil {
		return nil, err
	}

	candidates := make([]models.CandidateEntity, 0, len(resp.Entities))
	for _, e := range resp.Entities {
		candidates = append(candidates, models.CandidateEntity{
			EntityID:  e.EntityID,
			Name:      e.Name,
			Address:   e.Address,
			Relevance: e.Relevance,
		})
	}
	return candidates, nil
}

type similarResponse struct {
	Restaurants []struct {
		EntityID        string   `json:"entity_id"`
		Name            string   `json:"name"`
		Rating          float64  `json:"rating"`
		Popularity      float64  `json:"popularity"`
		SpecialtyDishes []string `json:"specialty_dishes"`
	} `json:"restaurants"`
}

// FindSimilar fetches restaurants similar to entityID filtered to minRating
// and derives the specialty-dish ranking. The returned snapshot is immutable;
// a later call produces a new one.
func (c *Client) FindSimilar(ctx context.Context, entityID string, minRating float64) (*models.SimilarSet, error) {
	if c.cache != nil {
		if set, ok := c.cache.GetSimilar(ctx, entityID, minRating); ok {
			return set, nil
		}
	}

	q := url.Values{}
	q.Set("min_rating", fmt.Sprintf("%g", minRating))

	var resp similarResponse
	endpoint := fmt.Sprintf("%s/v1/entities/%s/similar?%s", c.cfg.BaseURL, url.PathEscape(entityID), q.Encode())
	if err := c.http.GetJSON(ctx, serviceName, endpoint, c.header(), &resp); err != nil {
		return nil, err
	}

	set := &models.SimilarSet{
		EntityID:        entityID,
		MinRatingFilter: minRating,
		RetrievedAt:     c.now().UTC(),
	}
	for _, r := range resp.Restaurants {
		set.Restaurants = append(set.Restaurants, models.SimilarRestaurant{
			EntityID:        r.EntityID,
			Name:            r.Name,
			Rating:          r.Rating,
			Popularity:      r.Popularity,
			SpecialtyDishes: r.SpecialtyDishes,
		})
	}
	set.SpecialtyDishes = RankSpecialtyDishes(set.Restaurants)

	if c.cache != nil {
		c.cache.PutSimilar(ctx, set)
	}
	return set, nil
}

type demographicsResponse struct {
	AgeGroups    []segment `json:"age_groups"`
	Interests    []segment `json:"interests"`
	DiningStyles []segment `json:"dining_styles"`
}

type segment struct {
	Segment string  `json:"segment"`
	Share   float64 `json:"share"`
}

// GetDemographics fetches the audience breakdown for an entity.
func (c *Client) GetDemographics(ctx context.Context, entityID string) (*models.DemographicsSnapshot, error) {
	if c.cache != nil {
		if snap, ok := c.cache.GetDemographics(ctx, entityID); ok {
			return snap, nil
		}
	}

	var resp demographicsResponse
	endpoint := fmt.Sprintf("%s/v1/entities/%s/demographics", c.cfg.BaseURL, url.PathEscape(entityID))
	if err := c.http.GetJSON(ctx, serviceName, endpoint, c.header(), &resp); err != nil {
		return nil, err
	}

	snap := &models.DemographicsSnapshot{
		EntityID:     entityID,
		AgeGroups:    toSegments(resp.AgeGroups),
		Interests:    toSegments(resp.Interests),
		DiningStyles: toSegments(resp.DiningStyles),
		RetrievedAt:  c.now().UTC(),
	}

	if c.cache != nil {
		c.cache.PutDemographics(ctx, snap)
	}
	return snap, nil
}

func toSegments(in []segment) []models.DemographicSegment {
	out := make([]models.DemographicSegment, 0, len(in))
	for _, s := range in {
		out = append(out, models.DemographicSegment{Segment: s.Segment, Share: s.Share})
	}
	return out
}

type profileResponse struct {
	PopularityPercentile float64 `json:"popularity_percentile"`
	Cuisine              string  `json:"cuisine"`
}

// GetProfile fetches the popularity/cuisine summary for an entity.
func (c *Client) GetProfile(ctx context.Context, entityID string) (*models.TasteProfile, error) {
	var resp profileResponse
	endpoint := fmt.Sprintf("%s/v1/entities/%s/profile", c.cfg.BaseURL, url.PathEscape(entityID))
	if err := c.http.GetJSON(ctx, serviceName, endpoint, c.header(), &resp); err != nil {
		return nil, err
	}
	return &models.TasteProfile{
		EntityID:             entityID,
		PopularityPercentile: resp.PopularityPercentile,
		Cuisine:              resp.Cuisine,
		RetrievedAt:          c.now().UTC(),
	}, nil
}

// Enrich assembles the full enrichment bundle for one entity. A similarity
// failure fails the call; demographics and profile failures degrade to empty
// values plus a warning so one flaky endpoint does not sink a pipeline run.
func (c *Client) Enrich(ctx context.Context, entityID string, minRating float64) (*models.Enrichment, error) {
	similar, err := c.FindSimilar(ctx, entityID, minRating)
	if err != nil {
		return nil, err
	}

	enrichment := &models.Enrichment{Similar: similar}

	demographics, err := c.GetDemographics(ctx, entityID)
	if err != nil {
		c.logger.Warn("demographics unavailable, continuing without", map[string]interface{}{
			"entity_id": entityID,
			"error":     err.Error(),
		})
		demographics = &models.DemographicsSnapshot{EntityID: entityID, RetrievedAt: c.now().UTC()}
		enrichment.Warnings = append(enrichment.Warnings, fmt.Sprintf("demographics unavailable: %v", err))
	}
	enrichment.Demographics = demographics

	profile, err := c.GetProfile(ctx, entityID)
	if err != nil {
		c.logger.Warn("taste profile unavailable, continuing without", map[string]interface{}{
			"entity_id": entityID,
			"error":     err.Error(),
		})
		profile = &models.TasteProfile{EntityID: entityID, RetrievedAt: c.now().UTC()}
		enrichment.Warnings = append(enrichment.Warnings, fmt.Sprintf("taste profile unavailable: %v", err))
	}
	enrichment.Profile = profile

	return enrichment, nil
}
