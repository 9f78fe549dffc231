package catalog

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aura-webinar/client/internal/models"
)

const cacheKey = "catalog:webinars"

// RedisCache caches catalog snapshots in Redis. Cache failures are logged and
// treated as misses; the catalog falls through to the backend.
type RedisCache struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewRedisCache creates a Redis-backed catalog cache.
func NewRedisCache(rdb *goredis.Client, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{rdb: rdb, logger: logger}
}

// Get returns the cached snapshot, if any.
func (c *RedisCache) Get(ctx context.Context) ([]models.Webinar, bool) {
	data, err := c.rdb.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.logger.Warn("catalog cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var webinars []models.Webinar
	if err := json.Unmarshal(data, &webinars); err != nil {
		c.logger.Warn("catalog cache corrupt, ignoring", zap.Error(err))
		return nil, false
	}
	return webinars, true
}

// Set stores a snapshot with the given TTL.
func (c *RedisCache) Set(ctx context.Context, webinars []models.Webinar, ttl time.Duration) {
	data, err := json.Marshal(webinars)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", zap.Error(err))
	}
}
