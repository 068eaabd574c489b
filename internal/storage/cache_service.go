package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheService stores JSON values in Redis under namespaced keys
type CacheService struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewCacheService creates a new cache service with a default TTL
func NewCacheService(redis *RedisCache, ttl time.Duration) *CacheService {
	return &CacheService{
		redis: redis,
		ttl:   ttl,
	}
}

// CacheKeyType represents different types of cache keys
type CacheKeyType string

const (
	// CacheKeyPrice is for historical price lookups
	CacheKeyPrice CacheKeyType = "price"
	// CacheKeyCurrentPrice is for the latest quote of a symbol
	CacheKeyCurrentPrice CacheKeyType = "price_current"
)

// GenerateCacheKey generates a cache key for a given type and parameters
// Format: <type>:<param1>:<param2>:...
func (c *CacheService) GenerateCacheKey(keyType CacheKeyType, params ...string) string {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, string(keyType))
	for _, param := range params {
		parts = append(parts, strings.ToLower(param))
	}
	return strings.Join(parts, ":")
}

// Set stores a value in cache with the default TTL
func (c *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return c.SetWithTTL(ctx, key, value, c.ttl)
}

// SetWithTTL stores a value in cache with a custom TTL
func (c *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.redis.Set(ctx, key, data, ttl)
}

// Get retrieves a value from cache into dest. A missing key is a miss, not an error.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get from cache: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return true, nil
}

// Invalidate removes one or more keys from cache
func (c *CacheService) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...)
}

// InvalidatePattern removes all keys matching a pattern, e.g. "price:usdy:*"
func (c *CacheService) InvalidatePattern(ctx context.Context, pattern string) error {
	keys, err := c.redis.Keys(ctx, pattern)
	if err != nil {
		return fmt.Errorf("failed to find keys matching pattern: %w", err)
	}
	return c.Invalidate(ctx, keys...)
}
