package directory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"repair-recommender/internal/common/logger"
	"repair-recommender/internal/common/metrics"
	"repair-recommender/internal/models"

	"github.com/redis/go-redis/v9"
)

const DefaultCacheKeyPrefix = "directory:"

// Cached is a read-through Redis cache in front of another Directory.
// Cache failures never fail a read; they fall through to the wrapped
// directory.
type Cached struct {
	next   Directory
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

func NewCached(next Directory, client redis.Cmdable, ttl time.Duration, prefix string, log logger.Logger) *Cached {
	if prefix == "" {
		prefix = DefaultCacheKeyPrefix
	}
	return &Cached{
		next:   next,
		client: client,
		ttl:    ttl,
		prefix: prefix,
		logger: log.WithFields(map[string]interface{}{"component": "directory-cache"}),
	}
}

func (c *Cached) ActiveRepairers(ctx context.Context, q Query) ([]models.RepairerProfile, error) {
	q = q.canonical()
	key := c.prefix + q.key()

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []models.RepairerProfile
		decodeErr := json.Unmarshal(raw, &cached)
		if decodeErr == nil {
			metrics.RecordCacheLookup(metrics.CacheHit)
			return cached, nil
		}
		c.logger.Warn("discarding unreadable cache entry", map[string]interface{}{
			"key":   key,
			"error": decodeErr.Error(),
		})
		metrics.RecordCacheLookup(metrics.CacheMiss)
	case errors.Is(err, redis.Nil):
		metrics.RecordCacheLookup(metrics.CacheMiss)
	default:
		metrics.RecordCacheLookup(metrics.CacheError)
		c.logger.Warn("directory cache unavailable, reading through", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return c.next.ActiveRepairers(ctx, q)
	}

	repairers, err := c.next.ActiveRepairers(ctx, q)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, repairers)
	return repairers, nil
}

func (c *Cached) store(ctx context.Context, key string, repairers []models.RepairerProfile) {
	payload, err := json.Marshal(repairers)
	if err != nil {
		c.logger.Warn("cannot encode cache entry", map[string]interface{}{"key": key, "error": err.Error()})
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("cannot write cache entry", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

// Invalidate drops every cached query. Call it after the directory changes.
func (c *Cached) Invalidate(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 200).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}
