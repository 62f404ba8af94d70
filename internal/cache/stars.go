package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zfogg/tinyforum/backend/internal/logger"
	"github.com/zfogg/tinyforum/backend/internal/metrics"
	"go.uber.org/zap"
)

const (
	starKeyPrefix = "forum:stars:"
	starCacheName = "stars"
	// StarTTL bounds how stale a cached star list can get if an
	// invalidation is lost.
	StarTTL = 10 * time.Minute
)

// StarCache keeps each user's starred thread ids in Redis. A nil
// *StarCache, or one without a client, behaves as a permanent miss.
type StarCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewStarCache returns a cache backed by rc. rc may be nil.
func NewStarCache(rc *RedisClient) *StarCache {
	return &StarCache{redis: rc, ttl: StarTTL}
}

func starKey(userID string) string { return starKeyPrefix + userID }

func (c *StarCache) enabled() bool {
	return c != nil && c.redis != nil && c.redis.client != nil
}

// Get returns the cached ids and whether the cache had an entry.
func (c *StarCache) Get(ctx context.Context, userID string) ([]string, bool) {
	if !c.enabled() {
		return nil, false
	}
	m := metrics.Get()
	raw, err := c.redis.Get(ctx, starKey(userID))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.Warn("Star cache read failed", logger.WithUserID(userID), zap.Error(err))
		}
		m.CacheMissesTotal.WithLabelValues(starCacheName).Inc()
		return nil, false
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		logger.Log.Warn("Star cache entry is corrupt", logger.WithUserID(userID), zap.Error(err))
		m.CacheMissesTotal.WithLabelValues(starCacheName).Inc()
		return nil, false
	}
	m.CacheHitsTotal.WithLabelValues(starCacheName).Inc()
	return ids, true
}

// Set stores ids for userID.
func (c *StarCache) Set(ctx context.Context, userID string, ids []string) {
	if !c.enabled() {
		return
	}
	if ids == nil {
		ids = []string{}
	}
	payload, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := c.redis.SetEx(ctx, starKey(userID), payload, c.ttl); err != nil {
		logger.Log.Warn("Star cache write failed", logger.WithUserID(userID), zap.Error(err))
	}
}

// Invalidate drops the entry for userID.
func (c *StarCache) Invalidate(ctx context.Context, userID string) {
	if !c.enabled() {
		return
	}
	if err := c.redis.Del(ctx, starKey(userID)); err != nil {
		logger.Log.Warn("Star cache invalidation failed", logger.WithUserID(userID), zap.Error(err))
	}
}
