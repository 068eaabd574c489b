package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithExponentialBackoff_SucceedsAfterRetry(t *testing.T) {
	calls := 0
	result := WithExponentialBackoff(context.Background(), fastConfig(3), func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("flaky")
		}
		return nil
	})

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, calls)
	assert.NoError(t, result.LastError)
}

func TestWithExponentialBackoff_StopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("not found")
	cfg := fastConfig(5)
	cfg.Retryable = func(err error) bool { return !errors.Is(err, permanent) }

	calls := 0
	err := Do(context.Background(), cfg, func(ctx context.Context, attempt int) error {
		calls++
		return permanent
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, permanent)
}

func TestWithExponentialBackoff_ExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	err := Do(context.Background(), fastConfig(2), func(ctx context.Context, attempt int) error {
		return boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestWithExponentialBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(5)
	cfg.InitialDelay = time.Hour
	cfg.MaxDelay = time.Hour

	result := WithExponentialBackoff(ctx, cfg, func(ctx context.Context, attempt int) error {
		cancel()
		return errors.New("unavailable")
	})

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.ErrorIs(t, result.LastError, context.Canceled)
}

func TestCalculateDelay(t *testing.T) {
	cfg := &RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, calculateDelay(cfg, 1))
	assert.Equal(t, 200*time.Millisecond, calculateDelay(cfg, 2))
	assert.Equal(t, 300*time.Millisecond, calculateDelay(cfg, 3))
}
