package activityreport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "activityreport:version"

// Cache stores built reports in Redis under a global version. Bumping the
// version orphans every cached report at once.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Key composes the versioned cache key of req.
func (c *Cache) Key(ctx context.Context, req Request) (string, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", req.CacheKey(), ver), nil
}

// Get loads a cached report. ok is false on a miss.
func (c *Cache) Get(ctx context.Context, key string) (Report, bool, error) {
	if c == nil || c.client == nil {
		return Report{}, false, nil
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Report{}, false, nil
	}
	if err != nil {
		return Report{}, false, err
	}
	var rep Report
	if err := json.Unmarshal(payload, &rep); err != nil {
		return Report{}, false, err
	}
	return rep, true, nil
}

// Put stores rep under key for the configured TTL.
func (c *Cache) Put(ctx context.Context, key string, rep Report) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Bump invalidates every cached report by incrementing the version.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

// Invalidate lets ledger and service desk writes drop cached reports.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.Bump(ctx)
}
