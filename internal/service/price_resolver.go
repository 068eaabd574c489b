package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/savings-metrics/internal/errors"
	"github.com/savings-metrics/internal/logging"
	"github.com/savings-metrics/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultPriceLookupConcurrency bounds in-flight oracle calls per computation
const DefaultPriceLookupConcurrency = 8

// PriceTable holds the resolved prices of one computation.
// A missing entry means the lookup failed or returned an unusable price.
type PriceTable struct {
	current    decimal.Decimal
	currentOK  bool
	historical map[int64]decimal.Decimal
	misses     int
}

// Current returns the present price of the synthetic asset
func (t *PriceTable) Current() (decimal.Decimal, bool) {
	return t.current, t.currentOK
}

// At returns the price resolved for the exact instant ts
func (t *PriceTable) At(ts time.Time) (decimal.Decimal, bool) {
	price, ok := t.historical[ts.UnixNano()]
	return price, ok
}

// Misses is the number of lookups that could not be resolved, the current price included
func (t *PriceTable) Misses() int {
	return t.misses
}

// PriceResolver fetches the current price and a batch of historical prices.
// Identical instants are looked up once and lookups run with bounded parallelism.
type PriceResolver struct {
	oracle      PriceOracle
	concurrency int
}

// NewPriceResolver creates a resolver; concurrency below one uses the default
func NewPriceResolver(oracle PriceOracle, concurrency int) *PriceResolver {
	if concurrency < 1 {
		concurrency = DefaultPriceLookupConcurrency
	}
	return &PriceResolver{oracle: oracle, concurrency: concurrency}
}

// Resolve looks up the current price and the price at every timestamp.
// Individual failures become misses in the table; only cancellation of ctx is returned.
func (r *PriceResolver) Resolve(ctx context.Context, timestamps []time.Time) (*PriceTable, error) {
	logger := logging.FromContext(ctx)

	distinct := make([]time.Time, 0, len(timestamps))
	seen := make(map[int64]struct{}, len(timestamps))
	for _, ts := range timestamps {
		key := ts.UnixNano()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		distinct = append(distinct, ts)
	}

	table := &PriceTable{historical: make(map[int64]decimal.Decimal, len(distinct))}
	var mu sync.Mutex

	miss := func(at time.Time, err error) {
		mu.Lock()
		table.misses++
		mu.Unlock()
		logger.WithError(apperrors.NewPriceLookupError(at, err)).Debug("Price lookup skipped")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	g.Go(func() error {
		point, err := r.oracle.CurrentPrice(gctx)
		if err == nil && !point.Valid() {
			err = errInvalidPricePoint(point)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			miss(time.Now(), err)
			return nil
		}
		mu.Lock()
		table.current, table.currentOK = point.Price, true
		mu.Unlock()
		return nil
	})

	for _, ts := range distinct {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			point, err := r.oracle.PriceAt(gctx, ts)
			if err == nil && !point.Valid() {
				err = errInvalidPricePoint(point)
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				miss(ts, err)
				return nil
			}
			mu.Lock()
			table.historical[ts.UnixNano()] = point.Price
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

func errInvalidPricePoint(point models.PricePoint) error {
	return fmt.Errorf("non-positive price %s for %s", point.Price, point.Symbol)
}
