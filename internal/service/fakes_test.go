package service

import (
	"context"
	"errors"
	"iter"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/savings-metrics/internal/models"
	"github.com/savings-metrics/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var (
	day1 = time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)
	day2 = time.Date(2024, 2, 14, 16, 0, 0, 0, time.UTC)
	day3 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	errOracleDown = errors.New("oracle unavailable")
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func deposit(symbol, amount string, at time.Time) models.Transaction {
	return models.Transaction{
		ID:          symbol + "-" + amount + "-" + at.Format(time.RFC3339),
		UserID:      "user-1",
		Amount:      amount,
		TokenSymbol: symbol,
		Type:        types.TypeDeposit,
		Status:      types.StatusConfirmed,
		CreatedAt:   at,
	}
}

func seqOf(txs ...models.Transaction) iter.Seq[models.Transaction] {
	return slices.Values(txs)
}

// fakeOracle serves fixed prices keyed by unix second
type fakeOracle struct {
	mu           sync.Mutex
	current      decimal.Decimal
	step         decimal.Decimal // added to current after every quote
	currentErr   error
	prices       map[int64]decimal.Decimal
	failing      map[int64]bool
	delay        time.Duration
	calls        int
	currentCalls int
	inFlight     int
	maxInFlight  int
}

func newFakeOracle(current string) *fakeOracle {
	return &fakeOracle{
		current: dec(current),
		prices:  make(map[int64]decimal.Decimal),
		failing: make(map[int64]bool),
	}
}

func (o *fakeOracle) withPrice(at time.Time, price string) *fakeOracle {
	o.prices[at.Unix()] = dec(price)
	return o
}

func (o *fakeOracle) withFailure(at time.Time) *fakeOracle {
	o.failing[at.Unix()] = true
	return o
}

func (o *fakeOracle) PriceAt(ctx context.Context, at time.Time) (models.PricePoint, error) {
	o.mu.Lock()
	o.calls++
	o.inFlight++
	if o.inFlight > o.maxInFlight {
		o.maxInFlight = o.inFlight
	}
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.inFlight--
		o.mu.Unlock()
	}()

	if o.delay > 0 {
		select {
		case <-time.After(o.delay):
		case <-ctx.Done():
			return models.PricePoint{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return models.PricePoint{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failing[at.Unix()] {
		return models.PricePoint{}, errOracleDown
	}
	price, ok := o.prices[at.Unix()]
	if !ok {
		return models.PricePoint{}, errors.New("no price point")
	}
	return models.PricePoint{Symbol: "USDY", Timestamp: at, Price: price}, nil
}

func (o *fakeOracle) CurrentPrice(ctx context.Context) (models.PricePoint, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.currentCalls++
	if err := ctx.Err(); err != nil {
		return models.PricePoint{}, err
	}
	if o.currentErr != nil {
		return models.PricePoint{}, o.currentErr
	}
	point := models.PricePoint{Symbol: "USDY", Timestamp: day3, Price: o.current}
	o.current = o.current.Add(o.step)
	return point, nil
}

func (o *fakeOracle) totalCalls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls + o.currentCalls
}

type fakeLedger struct {
	txs []models.Transaction
	err error
}

func (f *fakeLedger) GetTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	return f.txs, f.err
}

type fakePositions struct {
	positions []models.LendingPosition
	err       error
}

func (f *fakePositions) GetPositions(ctx context.Context, userID string) ([]models.LendingPosition, error) {
	return f.positions, f.err
}

type fakeBalance struct {
	balance decimal.Decimal
	err     error
}

// pricedBalance values a fixed token amount at the current price, like the on-chain reader
type pricedBalance struct {
	units  decimal.Decimal
	prices PriceOracle
}

func (b *pricedBalance) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	point, err := b.prices.CurrentPrice(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return b.units.Mul(point.Price), nil
}

func (f *fakeBalance) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	return f.balance, f.err
}
