package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wannasleep66/vibe-barter-sub001/internal/rank"
)

// RedisCache stores ranked pages as JSON values with a native Redis TTL.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache returns a ResultCache backed by rdb.
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// Get fetches and decodes the page for key, reporting a miss for absent or
// undecodable entries.
func (c *RedisCache) Get(ctx context.Context, key Key) (*rank.Result, bool, error) {
	raw, err := c.rdb.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var result rank.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		// A corrupt entry behaves like a miss; it will be overwritten.
		return nil, false, nil
	}
	return &result, true, nil
}

// Set writes the page with the given TTL, DefaultTTL if unset.
func (c *RedisCache) Set(ctx context.Context, key Key, value *rank.Result, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cached result: %w", err)
	}
	if err := c.rdb.Set(ctx, key.String(), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// InvalidateViewer scans the viewer's key prefix and deletes every match.
func (c *RedisCache) InvalidateViewer(ctx context.Context, viewerID string) error {
	iter := c.rdb.Scan(ctx, 0, viewerPrefix(viewerID)+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
