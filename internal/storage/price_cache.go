package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/savings-metrics/internal/logging"
	"github.com/savings-metrics/internal/models"
)

// PriceSource quotes one symbol historically and now
type PriceSource interface {
	PriceAt(ctx context.Context, at time.Time) (models.PricePoint, error)
	CurrentPrice(ctx context.Context) (models.PricePoint, error)
}

// CachedPriceSource memoizes a PriceSource in Redis. Historical quotes are kept for
// historyTTL, the current quote for currentTTL. Only successful lookups are cached,
// and cache failures fall through to the source.
type CachedPriceSource struct {
	source     PriceSource
	cache      *CacheService
	symbol     string
	historyTTL time.Duration
	currentTTL time.Duration
}

// NewCachedPriceSource wraps source with a Redis cache
func NewCachedPriceSource(source PriceSource, cache *CacheService, symbol string, historyTTL, currentTTL time.Duration) *CachedPriceSource {
	return &CachedPriceSource{
		source:     source,
		cache:      cache,
		symbol:     symbol,
		historyTTL: historyTTL,
		currentTTL: currentTTL,
	}
}

// PriceAt returns the cached quote for at, filling the cache from the source on a miss
func (c *CachedPriceSource) PriceAt(ctx context.Context, at time.Time) (models.PricePoint, error) {
	key := c.cache.GenerateCacheKey(CacheKeyPrice, c.symbol, strconv.FormatInt(at.Unix(), 10))
	return c.lookup(ctx, key, c.historyTTL, func() (models.PricePoint, error) {
		return c.source.PriceAt(ctx, at)
	})
}

// CurrentPrice returns the cached latest quote, filling the cache from the source on a miss
func (c *CachedPriceSource) CurrentPrice(ctx context.Context) (models.PricePoint, error) {
	key := c.cache.GenerateCacheKey(CacheKeyCurrentPrice, c.symbol)
	return c.lookup(ctx, key, c.currentTTL, func() (models.PricePoint, error) {
		return c.source.CurrentPrice(ctx)
	})
}

// Invalidate drops every cached quote of the symbol, e.g. after new price points are recorded
func (c *CachedPriceSource) Invalidate(ctx context.Context) error {
	if err := c.cache.InvalidatePattern(ctx, c.cache.GenerateCacheKey(CacheKeyPrice, c.symbol)+":*"); err != nil {
		return err
	}
	return c.cache.Invalidate(ctx, c.cache.GenerateCacheKey(CacheKeyCurrentPrice, c.symbol))
}

func (c *CachedPriceSource) lookup(ctx context.Context, key string, ttl time.Duration, fetch func() (models.PricePoint, error)) (models.PricePoint, error) {
	logger := logging.FromContext(ctx).WithField("key", key)

	var cached models.PricePoint
	hit, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		logger.WithError(err).Warn("Price cache read failed")
	} else if hit && cached.Valid() {
		return cached, nil
	}

	point, err := fetch()
	if err != nil {
		return models.PricePoint{}, err
	}

	if ttl > 0 && point.Valid() {
		if err := c.cache.SetWithTTL(ctx, key, point, ttl); err != nil {
			logger.WithError(err).Warn("Price cache write failed")
		}
	}
	return point, nil
}
