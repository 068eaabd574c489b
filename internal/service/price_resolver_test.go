package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceResolver_DeduplicatesInstants(t *testing.T) {
	oracle := newFakeOracle("1.10").withPrice(day1, "1.00").withPrice(day2, "1.05")
	sameInstant := day1.In(time.FixedZone("UTC+3", 3*60*60))

	table, err := NewPriceResolver(oracle, 2).Resolve(context.Background(), []time.Time{day1, day2, sameInstant, day1})

	require.NoError(t, err)
	assert.Equal(t, 2, oracle.calls)
	assert.Equal(t, 1, oracle.currentCalls)

	price, ok := table.At(sameInstant)
	require.True(t, ok)
	assertDecimal(t, "1.00", price)

	current, ok := table.Current()
	require.True(t, ok)
	assertDecimal(t, "1.10", current)
	assert.Zero(t, table.Misses())
}

func TestPriceResolver_BoundedConcurrency(t *testing.T) {
	oracle := newFakeOracle("1")
	oracle.delay = 5 * time.Millisecond

	var timestamps []time.Time
	for i := 0; i < 20; i++ {
		ts := day1.Add(time.Duration(i) * time.Hour)
		oracle.withPrice(ts, "1")
		timestamps = append(timestamps, ts)
	}

	table, err := NewPriceResolver(oracle, 3).Resolve(context.Background(), timestamps)

	require.NoError(t, err)
	assert.Equal(t, 20, oracle.calls)
	assert.LessOrEqual(t, oracle.maxInFlight, 3)
	assert.Zero(t, table.Misses())
}

func TestPriceResolver_FailuresBecomeMisses(t *testing.T) {
	oracle := newFakeOracle("1.10").withPrice(day1, "1.00").withFailure(day2)

	table, err := NewPriceResolver(oracle, 0).Resolve(context.Background(), []time.Time{day1, day2, day3})

	require.NoError(t, err)
	_, ok := table.At(day2)
	assert.False(t, ok)
	_, ok = table.At(day3)
	assert.False(t, ok, "unknown instant resolves to a miss")
	assert.Equal(t, 2, table.Misses())
}

func TestPriceResolver_CancellationIsReturned(t *testing.T) {
	oracle := newFakeOracle("1.10")
	oracle.delay = time.Second
	oracle.withPrice(day1, "1.00")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	table, err := NewPriceResolver(oracle, 1).Resolve(ctx, []time.Time{day1})

	assert.Nil(t, table)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
