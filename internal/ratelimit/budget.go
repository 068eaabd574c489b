// Package ratelimit provides a Redis-coordinated call budget shared by every
// replica calling the same upstream.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/savings-metrics/internal/logging"
)

// Default budget configuration values.
const (
	DefaultWindowSize = time.Second
	DefaultKeyTTL     = 2 * time.Second // window + buffer
	keyPrefix         = "budget:"
)

// consumeScript atomically checks and increments the window counter
var consumeScript = redis.NewScript(`
	local key = KEYS[1]
	local n = tonumber(ARGV[1])
	local limit = tonumber(ARGV[2])
	local ttl = tonumber(ARGV[3])

	local used = tonumber(redis.call('GET', key) or '0')
	if used + n > limit then
		return {0, used}
	end

	redis.call('INCRBY', key, n)
	redis.call('EXPIRE', key, ttl)
	return {1, used + n}
`)

// CallBudget limits calls per fixed window across processes sharing one Redis
type CallBudget struct {
	redis      redis.Cmdable
	name       string
	limit      int
	windowSize time.Duration
	keyTTL     time.Duration
	now        func() time.Time
}

// CallBudgetConfig holds configuration for the call budget.
type CallBudgetConfig struct {
	// Redis coordinates consumption across replicas. Required.
	Redis redis.Cmdable

	// Name namespaces the counters, e.g. "chain_rpc".
	Name string

	// Limit is the number of calls allowed per window.
	Limit int

	// WindowSize defaults to one second.
	WindowSize time.Duration
}

// Validate checks if the configuration is valid.
func (c *CallBudgetConfig) Validate() error {
	if c.Redis == nil {
		return errors.New("redis client is required")
	}
	if c.Name == "" {
		return errors.New("budget name is required")
	}
	if c.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", c.Limit)
	}
	if c.WindowSize < 0 {
		return errors.New("window size cannot be negative")
	}
	return nil
}

// NewCallBudget creates a new budget with the given configuration.
func NewCallBudget(cfg *CallBudgetConfig) (*CallBudget, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	windowSize := cfg.WindowSize
	if windowSize == 0 {
		windowSize = DefaultWindowSize
	}
	keyTTL := 2 * windowSize
	if keyTTL < DefaultKeyTTL {
		keyTTL = DefaultKeyTTL
	}

	return &CallBudget{
		redis:      cfg.Redis,
		name:       cfg.Name,
		limit:      cfg.Limit,
		windowSize: windowSize,
		keyTTL:     keyTTL,
		now:        time.Now,
	}, nil
}

// windowStart returns the current window aligned to the window size
func (b *CallBudget) windowStart() time.Time {
	return b.now().Truncate(b.windowSize)
}

func (b *CallBudget) key(window time.Time) string {
	return keyPrefix + b.name + ":" + strconv.FormatInt(window.UnixMilli(), 10)
}

// TryConsume attempts to take n calls from the current window.
// When denied it returns how long until the next window opens.
// A Redis failure is reported as an error and consumes nothing.
func (b *CallBudget) TryConsume(ctx context.Context, n int) (bool, time.Duration, error) {
	if n <= 0 {
		return true, 0, nil
	}

	window := b.windowStart()
	ttlSeconds := int(b.keyTTL.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	result, err := consumeScript.Run(ctx, b.redis, []string{b.key(window)}, n, b.limit, ttlSeconds).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("failed to consume %s budget: %w", b.name, err)
	}

	if result[0] == 1 {
		return true, 0, nil
	}
	return false, b.untilNextWindow(window), nil
}

// untilNextWindow returns the time until the window after window starts
func (b *CallBudget) untilNextWindow(window time.Time) time.Duration {
	wait := window.Add(b.windowSize).Sub(b.now())
	if wait < 0 {
		wait = 0
	}
	// small buffer so the retry lands in the new window
	return wait + time.Millisecond
}

// Wait blocks until n calls fit in a window or ctx is done. If Redis is
// unreachable the call proceeds unbudgeted rather than stalling the request.
func (b *CallBudget) Wait(ctx context.Context, n int) error {
	for {
		allowed, wait, err := b.TryConsume(ctx, n)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.FromContext(ctx).WithError(err).WithField("budget", b.name).Warn("Call budget unavailable, proceeding without it")
			return nil
		}
		if allowed {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Limit returns the configured calls per window.
func (b *CallBudget) Limit() int {
	return b.limit
}
