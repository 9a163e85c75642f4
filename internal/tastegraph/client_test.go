package tastegraph

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/config"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/database"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/logger"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/ratelimit"
)

func newHTTPClient(t *testing.T) *ratelimit.Client {
	return ratelimit.New(ratelimit.Config{
		RequestsPerSecond: 1000,
		Burst:             100,
		MaxRetries:        1,
		RetryBaseDelay:    time.Millisecond,
	}, logger.NewTestLogger(t))
}

func newRedisCache(t *testing.T, ttl time.Duration) (*SnapshotCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb, err := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })
	return NewSnapshotCache(rdb, ttl, logger.NewTestLogger(t)), mr
}

func TestSearchEntities_PreservesUpstreamOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "El Farolito", r.URL.Query().Get("name"))
		_, _ = w.Write([]byte(`{"entities":[
			{"entity_id":"ent-2","name":"El Farolito","relevance":0.98},
			{"entity_id":"ent-1","name":"El Farolito Express","relevance":0.71}
		]}`))
	}))
	defer server.Close()

	client := New(config.TasteAPIConfig{BaseURL: server.URL, APIKey: "test-key"},
		newHTTPClient(t), nil, logger.NewTestLogger(t))

	candidates, err := client.SearchEntities(context.Background(), "El Farolito", "San Francisco", "CA")

	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "ent-2", candidates[0].EntityID)
	assert.Equal(t, "ent-1", candidates[1].EntityID)
}

func TestSearchEntities_EmptyResultIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"entities":[]}`))
	}))
	defer server.Close()

	client := New(config.TasteAPIConfig{BaseURL: server.URL}, newHTTPClient(t), nil, logger.NewTestLogger(t))

	candidates, err := client.SearchEntities(context.Background(), "Nowhere", "", "")

	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func fakeTasteGraph(t *testing.T, similarCalls, demographicsCalls *int32, demographicsStatus func() int) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/entities/ent-1/similar", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(similarCalls, 1)
		_, _ = w.Write([]byte(`{"restaurants":[
			{"entity_id":"ent-9","name":"Taqueria Uno","rating":4.5,"popularity":0.9,"specialty_dishes":["Carnitas Tacos"]},
			{"entity_id":"ent-8","name":"Taqueria Dos","rating":4.2,"popularity":0.6,"specialty_dishes":["carnitas tacos","Elote"]}
		]}`))
	})
	mux.HandleFunc("/v1/entities/ent-1/demographics", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(demographicsCalls, 1)
		if status := demographicsStatus(); status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write([]byte(`{"age_groups":[{"segment":"25-34","share":0.4}],
			"interests":[{"segment":"foodies","share":0.3}],"dining_styles":[]}`))
	})
	mux.HandleFunc("/v1/entities/ent-1/profile", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"popularity_percentile":0.82,"cuisine":"mexican"}`))
	})
	return httptest.NewServer(mux)
}

func TestFindSimilar_DerivesSpecialtyRanking(t *testing.T) {
	var similarCalls, demographicsCalls int32
	server := fakeTasteGraph(t, &similarCalls, &demographicsCalls, func() int { return http.StatusOK })
	defer server.Close()

	client := New(config.TasteAPIConfig{BaseURL: server.URL, MinRating: 4.0},
		newHTTPClient(t), nil, logger.NewTestLogger(t))

	set, err := client.FindSimilar(context.Background(), "ent-1", 4.0)

	require.NoError(t, err)
	assert.Equal(t, "ent-1", set.EntityID)
	assert.Equal(t, 4.0, set.MinRatingFilter)
	assert.False(t, set.RetrievedAt.IsZero())
	require.NotEmpty(t, set.SpecialtyDishes)
	assert.Equal(t, "carnitas tacos", set.SpecialtyDishes[0].Name)
	assert.Equal(t, 2, set.SpecialtyDishes[0].RestaurantCount)
}

func TestFindSimilar_SnapshotCachedUntilTTL(t *testing.T) {
	var similarCalls, demographicsCalls int32
	server := fakeTasteGraph(t, &similarCalls, &demographicsCalls, func() int { return http.StatusOK })
	defer server.Close()

	cache, mr := newRedisCache(t, time.Minute)
	client := New(config.TasteAPIConfig{BaseURL: server.URL},
		newHTTPClient(t), cache, logger.NewTestLogger(t))

	first, err := client.FindSimilar(context.Background(), "ent-1", 4.0)
	require.NoError(t, err)
	second, err := client.FindSimilar(context.Background(), "ent-1", 4.0)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&similarCalls), "second read must come from cache")
	assert.Equal(t, first.RetrievedAt, second.RetrievedAt)

	// A different rating filter is a different snapshot.
	_, err = client.FindSimilar(context.Background(), "ent-1", 4.5)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&similarCalls))

	// After expiry the client fetches a new snapshot rather than refreshing
	// the old one.
	mr.FastForward(2 * time.Minute)
	_, err = client.FindSimilar(context.Background(), "ent-1", 4.0)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&similarCalls))
}

func TestEnrich_DemographicsFailureDegrades(t *testing.T) {
	var similarCalls, demographicsCalls int32
	server := fakeTasteGraph(t, &similarCalls, &demographicsCalls, func() int { return http.StatusInternalServerError })
	defer server.Close()

	client := New(config.TasteAPIConfig{BaseURL: server.URL},
		newHTTPClient(t), nil, logger.NewTestLogger(t))

	enrichment, err := client.Enrich(context.Background(), "ent-1", 4.0)

	require.NoError(t, err, "demographics failure must not fail enrichment")
	require.NotNil(t, enrichment.Similar)
	require.NotNil(t, enrichment.Demographics)
	assert.Empty(t, enrichment.Demographics.AgeGroups)
	assert.NotEmpty(t, enrichment.Warnings)
	assert.Equal(t, 0.82, enrichment.Profile.PopularityPercentile)
}

func TestEnrich_SimilarFailureFailsTheCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(config.TasteAPIConfig{BaseURL: server.URL},
		newHTTPClient(t), nil, logger.NewTestLogger(t))

	_, err := client.Enrich(context.Background(), "ent-1", 4.0)

	require.Error(t, err)
}
