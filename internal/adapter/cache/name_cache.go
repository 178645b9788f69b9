// internal/adapter/cache/name_cache.go

package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cb671/streetsafe-server/internal/domain/geo"
	"github.com/cb671/streetsafe-server/internal/logger"
	"github.com/cb671/streetsafe-server/internal/metrics"
)

// NameCache stores cell display names in Redis.
// A cache built on a nil client misses on every lookup.
type NameCache struct {
	rc     *redis.Client
	ttl    time.Duration
	prefix string
}

// OpenRedis opens a Redis client, or returns nil when addr is empty
func OpenRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// NewNameCache creates a new name cache
func NewNameCache(rc *redis.Client, ttl time.Duration) *NameCache {
	return &NameCache{
		rc:     rc,
		ttl:    ttl,
		prefix: "streetsafe:name:",
	}
}

// Get returns the cached name of a cell
func (c *NameCache) Get(ctx context.Context, cell geo.Cell) (string, bool) {
	if c == nil || c.rc == nil {
		return "", false
	}

	name, err := c.rc.Get(ctx, c.prefix+string(cell)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.L().WithError(err).Warn("name_cache_get_error")
		}
		metrics.NameCacheMissesTotal.Inc()
		return "", false
	}

	metrics.NameCacheHitsTotal.Inc()
	return name, true
}

// Set stores the name of a cell
func (c *NameCache) Set(ctx context.Context, cell geo.Cell, name string) {
	if c == nil || c.rc == nil {
		return
	}

	if err := c.rc.Set(ctx, c.prefix+string(cell), name, c.ttl).Err(); err != nil {
		logger.L().WithError(err).Warn("name_cache_set_error")
	}
}
