package service

import (
	"context"
	"sync"
	"time"

	"github.com/savings-metrics/internal/models"
)

type quoteKey struct{}

// currentQuote holds the first current price fetched during one computation
type currentQuote struct {
	once  sync.Once
	point models.PricePoint
	err   error
}

// withCurrentQuote starts a computation scope in which SharedQuote answers
// CurrentPrice at most once
func withCurrentQuote(ctx context.Context) context.Context {
	return context.WithValue(ctx, quoteKey{}, &currentQuote{})
}

// SharedQuote is a PriceOracle whose current price is fixed for the duration of one
// computation. Hand the same SharedQuote to the synthetic balance reader and the
// service so the balance and the rewards are valued at the same quote.
// Outside a computation it passes through to the wrapped oracle.
type SharedQuote struct {
	oracle PriceOracle
}

// NewSharedQuote wraps oracle. Wrapping a SharedQuote returns it unchanged.
func NewSharedQuote(oracle PriceOracle) *SharedQuote {
	if shared, ok := oracle.(*SharedQuote); ok {
		return shared
	}
	return &SharedQuote{oracle: oracle}
}

// PriceAt is never shared
func (s *SharedQuote) PriceAt(ctx context.Context, at time.Time) (models.PricePoint, error) {
	return s.oracle.PriceAt(ctx, at)
}

// CurrentPrice returns the computation's quote, fetching it on first use
func (s *SharedQuote) CurrentPrice(ctx context.Context) (models.PricePoint, error) {
	quote, ok := ctx.Value(quoteKey{}).(*currentQuote)
	if !ok {
		return s.oracle.CurrentPrice(ctx)
	}
	quote.once.Do(func() {
		quote.point, quote.err = s.oracle.CurrentPrice(ctx)
	})
	return quote.point, quote.err
}
