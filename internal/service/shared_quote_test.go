package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSavingsMetrics_BalanceAndRewardsShareOneQuote(t *testing.T) {
	f := newServiceFixture()
	f.oracle.step = dec("0.05")
	quote := NewSharedQuote(f.oracle)

	svc := NewSavingsMetricsService(f.ledger, f.positions, &pricedBalance{units: dec("100"), prices: quote}, quote, EngineConfig{
		LendingSymbol:          "USDC",
		SyntheticSymbols:       []string{"USDY", "rUSDY"},
		PriceLookupConcurrency: 4,
	})
	svc.now = func() time.Time { return fixedNow }

	first, err := svc.ComputeSavingsMetrics(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.oracle.currentCalls)
	assertDecimal(t, "1110", first.CurrentStake)
	assertDecimal(t, "10", first.Synthetic.Rewards)
	assertDecimal(t, "0", first.Synthetic.Withdrawn)

	// the next computation takes a fresh quote
	second, err := svc.ComputeSavingsMetrics(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, f.oracle.currentCalls)
	assertDecimal(t, "1115", second.CurrentStake)
	assertDecimal(t, "15", second.Synthetic.Rewards)
}

func TestSharedQuote_PassesThroughOutsideComputation(t *testing.T) {
	oracle := newFakeOracle("1.00")
	oracle.step = dec("0.10")
	quote := NewSharedQuote(oracle)
	ctx := context.Background()

	first, err := quote.CurrentPrice(ctx)
	require.NoError(t, err)
	second, err := quote.CurrentPrice(ctx)
	require.NoError(t, err)

	assertDecimal(t, "1.00", first.Price)
	assertDecimal(t, "1.10", second.Price)
	assert.Same(t, quote, NewSharedQuote(quote))
}

func TestSharedQuote_FetchesOncePerScope(t *testing.T) {
	oracle := newFakeOracle("1.00")
	oracle.step = dec("0.10")
	quote := NewSharedQuote(oracle)
	ctx := withCurrentQuote(context.Background())

	for range 3 {
		point, err := quote.CurrentPrice(ctx)
		require.NoError(t, err)
		assertDecimal(t, "1.00", point.Price)
	}
	assert.Equal(t, 1, oracle.currentCalls)

	_, err := quote.PriceAt(ctx, day1)
	assert.Error(t, err, "historical prices are not shared")
}
