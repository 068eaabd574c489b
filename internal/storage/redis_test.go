package storage

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T, ttl time.Duration) (*CacheService, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCacheFromClient(client)
	t.Cleanup(func() { _ = cache.Close() })

	return NewCacheService(cache, ttl), mr
}

func TestCacheService_GenerateCacheKey(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)

	assert.Equal(t, "price:usdy:1704879000", cache.GenerateCacheKey(CacheKeyPrice, "USDY", "1704879000"))
	assert.Equal(t, "price_current:usdy", cache.GenerateCacheKey(CacheKeyCurrentPrice, "USDY"))
}

func TestCacheService_SetGet(t *testing.T) {
	cache, mr := setupTestCache(t, time.Minute)
	ctx := testContext(t)

	type payload struct {
		Name string `json:"name"`
	}

	require.NoError(t, cache.Set(ctx, "k", payload{Name: "x"}))
	assert.Equal(t, time.Minute, mr.TTL("k"))

	var got payload
	hit, err := cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "x", got.Name)

	hit, err = cache.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheService_Invalidate(t *testing.T) {
	cache, mr := setupTestCache(t, time.Minute)
	ctx := testContext(t)

	require.NoError(t, cache.Set(ctx, "price:usdy:1", 1))
	require.NoError(t, cache.Set(ctx, "price:usdy:2", 2))
	require.NoError(t, cache.Set(ctx, "price_current:usdy", 3))

	require.NoError(t, cache.InvalidatePattern(ctx, "price:usdy:*"))
	assert.False(t, mr.Exists("price:usdy:1"))
	assert.False(t, mr.Exists("price:usdy:2"))
	assert.True(t, mr.Exists("price_current:usdy"))

	require.NoError(t, cache.Invalidate(ctx, "price_current:usdy"))
	assert.False(t, mr.Exists("price_current:usdy"))
	require.NoError(t, cache.Invalidate(ctx))
}

func TestCacheService_CorruptEntry(t *testing.T) {
	cache, mr := setupTestCache(t, time.Minute)
	require.NoError(t, mr.Set("k", "{not json"))

	var dest map[string]string
	hit, err := cache.Get(testContext(t), "k", &dest)
	assert.Error(t, err)
	assert.False(t, hit)
}
