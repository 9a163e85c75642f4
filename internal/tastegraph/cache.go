package tastegraph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/database"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/logger"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
)

// SnapshotCache keeps enrichment snapshots in redis for the configured TTL.
// Entries are written once and never updated; expiry is the only way out, and
// a re-fetch after expiry stores a brand-new snapshot. Similar-set keys carry
// the minRating filter so different filters never share an entry.
//
// Cache failures are logged and treated as misses; the upstream call is the
// fallback.
type SnapshotCache struct {
	redis  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewSnapshotCache(redis *database.RedisClient, ttl time.Duration, log logger.Logger) *SnapshotCache {
	return &SnapshotCache{
		redis:  redis,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{"component": "snapshot-cache"}),
	}
}

func similarKey(entityID string, minRating float64) string {
	return fmt.Sprintf("tastegraph:similar:%s:%g", entityID, minRating)
}

func demographicsKey(entityID string) string {
	return fmt.Sprintf("tastegraph:demographics:%s", entityID)
}

func (c *SnapshotCache) GetSimilar(ctx context.Context, entityID string, minRating float64) (*models.SimilarSet, bool) {
	var set models.SimilarSet
	if !c.get(ctx, similarKey(entityID, minRating), &set) {
		return nil, false
	}
	return &set, true
}

func (c *SnapshotCache) PutSimilar(ctx context.Context, set *models.SimilarSet) {
	c.put(ctx, similarKey(set.EntityID, set.MinRatingFilter), set)
}

func (c *SnapshotCache) GetDemographics(ctx context.Context, entityID string) (*models.DemographicsSnapshot, bool) {
	var snap models.DemographicsSnapshot
	if !c.get(ctx, demographicsKey(entityID), &snap) {
		return nil, false
	}
	return &snap, true
}

func (c *SnapshotCache) PutDemographics(ctx context.Context, snap *models.DemographicsSnapshot) {
	c.put(ctx, demographicsKey(snap.EntityID), snap)
}

func (c *SnapshotCache) get(ctx context.Context, key string, out interface{}) bool {
	raw, err := c.redis.Get(ctx, key)
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		c.logger.Warn("corrupt cache entry dropped", map[string]interface{}{"key": key})
		_ = c.redis.Del(ctx, key)
		return false
	}
	return true
}

func (c *SnapshotCache) put(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("snapshot not cacheable", map[string]interface{}{"key": key, "error": err.Error()})
		return
	}
	if err := c.redis.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("snapshot cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
