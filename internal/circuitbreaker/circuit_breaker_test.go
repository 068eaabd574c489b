package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errUpstream = errors.New("upstream down")

func newTestBreaker(clock *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker(&Config{
		Name:             "prices",
		MaxFailures:      3,
		FailureThreshold: 0.5,
		Timeout:          time.Minute,
		HalfOpenMaxCalls: 1,
		IsFailure:        func(err error) bool { return errors.Is(err, errUpstream) },
	})
	cb.now = func() time.Time { return *clock }
	return cb
}

func fail(context.Context) error    { return errUpstream }
func succeed(context.Context) error { return nil }

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	cb := newTestBreaker(&clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, fail), errUpstream)
	}
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	cb := newTestBreaker(&clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, fail)
	}
	clock = clock.Add(2 * time.Minute)

	assert.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	cb := newTestBreaker(&clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, fail)
	}
	clock = clock.Add(2 * time.Minute)

	assert.ErrorIs(t, cb.Execute(ctx, fail), errUpstream)
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_IgnoresNonFailures(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	cb := newTestBreaker(&clock)
	notFound := errors.New("no price point")

	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, cb.Execute(context.Background(), func(context.Context) error { return notFound }), notFound)
	}
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_CancelledCallerDoesNotCount(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	cb := newTestBreaker(&clock)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 5; i++ {
		_ = cb.Execute(ctx, fail)
	}
	assert.Equal(t, StateClosed, cb.GetState())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
}
