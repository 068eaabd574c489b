package adapter

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/savings-metrics/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken  = "0x96F6eF951840721AdBF46Ac996b59E0235CB985C"
	testWallet = "0x1111111111111111111111111111111111111111"
)

type fakeWallets map[string]string

func (f fakeWallets) WalletAddress(ctx context.Context, userID string) (string, bool, error) {
	addr, ok := f[userID]
	return addr, ok, nil
}

type fakeCaller struct {
	balance *big.Int
	errs    []error
	calls   int
	lastMsg ethereum.CallMsg
}

func (c *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	c.calls++
	c.lastMsg = msg
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		return nil, err
	}
	return common.LeftPadBytes(c.balance.Bytes(), 32), nil
}

type fakePool struct {
	caller    *fakeCaller
	failovers int
	exhausted bool
}

func (p *fakePool) Caller() ContractCaller { return p.caller }

func (p *fakePool) OnRateLimited(ctx context.Context) error {
	p.failovers++
	if p.exhausted {
		return ErrProviderRateLimit
	}
	return nil
}

type fixedPrice struct {
	price decimal.Decimal
	err   error
	calls int
}

func (f *fixedPrice) CurrentPrice(ctx context.Context) (models.PricePoint, error) {
	f.calls++
	return models.PricePoint{Symbol: "USDY", Timestamp: time.Now(), Price: f.price}, f.err
}

func newReader(t *testing.T, pool *fakePool, prices *fixedPrice) *SyntheticBalanceReader {
	t.Helper()
	reader, err := NewSyntheticBalanceReader(fakeWallets{"user-1": testWallet}, pool, prices, testToken, 6)
	require.NoError(t, err)
	return reader
}

func TestSyntheticBalanceReader_GetBalance(t *testing.T) {
	pool := &fakePool{caller: &fakeCaller{balance: big.NewInt(100_000_000)}} // 100 tokens
	prices := &fixedPrice{price: decimal.RequireFromString("1.10")}

	balance, err := newReader(t, pool, prices).GetBalance(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "110", balance.String())
	assert.Equal(t, common.HexToAddress(testToken), *pool.caller.lastMsg.To)
	assert.Len(t, pool.caller.lastMsg.Data, 4+32, "selector plus one address argument")
}

func TestSyntheticBalanceReader_NoWalletIsZero(t *testing.T) {
	pool := &fakePool{caller: &fakeCaller{balance: big.NewInt(5)}}
	prices := &fixedPrice{price: decimal.NewFromInt(1)}

	balance, err := newReader(t, pool, prices).GetBalance(context.Background(), "user-2")

	require.NoError(t, err)
	assert.True(t, balance.IsZero())
	assert.Zero(t, pool.caller.calls)
	assert.Zero(t, prices.calls)
}

func TestSyntheticBalanceReader_ZeroBalanceSkipsPricing(t *testing.T) {
	pool := &fakePool{caller: &fakeCaller{balance: big.NewInt(0)}}
	prices := &fixedPrice{err: errors.New("oracle down")}

	balance, err := newReader(t, pool, prices).GetBalance(context.Background(), "user-1")

	require.NoError(t, err)
	assert.True(t, balance.IsZero())
	assert.Zero(t, prices.calls)
}

func TestSyntheticBalanceReader_FailsOverOnRateLimit(t *testing.T) {
	caller := &fakeCaller{balance: big.NewInt(2_500_000), errs: []error{errors.New("429 Too Many Requests")}}
	pool := &fakePool{caller: caller}
	prices := &fixedPrice{price: decimal.NewFromInt(2)}

	balance, err := newReader(t, pool, prices).GetBalance(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "5", balance.String())
	assert.Equal(t, 1, pool.failovers)
	assert.Equal(t, 2, caller.calls)
}

func TestSyntheticBalanceReader_Errors(t *testing.T) {
	t.Run("rpc failure", func(t *testing.T) {
		pool := &fakePool{caller: &fakeCaller{errs: []error{errors.New("connection reset")}}}
		_, err := newReader(t, pool, &fixedPrice{price: decimal.NewFromInt(1)}).GetBalance(context.Background(), "user-1")
		assert.ErrorIs(t, err, ErrProviderUnavailable)
	})

	t.Run("all endpoints rate limited", func(t *testing.T) {
		pool := &fakePool{caller: &fakeCaller{errs: []error{errors.New("rate limit exceeded")}}, exhausted: true}
		_, err := newReader(t, pool, &fixedPrice{price: decimal.NewFromInt(1)}).GetBalance(context.Background(), "user-1")
		assert.ErrorIs(t, err, ErrProviderRateLimit)
	})

	t.Run("price unavailable", func(t *testing.T) {
		pool := &fakePool{caller: &fakeCaller{balance: big.NewInt(1_000_000)}}
		_, err := newReader(t, pool, &fixedPrice{err: ErrProviderUnavailable}).GetBalance(context.Background(), "user-1")
		assert.ErrorIs(t, err, ErrProviderUnavailable)
	})

	t.Run("bad token address", func(t *testing.T) {
		_, err := NewSyntheticBalanceReader(fakeWallets{}, &fakePool{}, &fixedPrice{}, "not-an-address", 18)
		assert.Error(t, err)
	})
}

func TestIsRateLimitError(t *testing.T) {
	assert.True(t, IsRateLimitError(errors.New("429 Too Many Requests")))
	assert.True(t, IsRateLimitError(errors.New("request throttled")))
	assert.False(t, IsRateLimitError(errors.New("execution reverted")))
	assert.False(t, IsRateLimitError(nil))
}

type countingBudget struct {
	waits int
	err   error
}

func (b *countingBudget) Wait(ctx context.Context, n int) error {
	b.waits += n
	return b.err
}

func TestBudgetedPool(t *testing.T) {
	caller := &fakeCaller{balance: big.NewInt(3_000_000), errs: []error{errors.New("429 Too Many Requests")}}
	inner := &fakePool{caller: caller}
	budget := &countingBudget{}

	reader, err := NewSyntheticBalanceReader(fakeWallets{"user-1": testWallet}, NewBudgetedPool(inner, budget), &fixedPrice{price: decimal.NewFromInt(1)}, testToken, 6)
	require.NoError(t, err)

	balance, err := reader.GetBalance(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "3", balance.String())
	assert.Equal(t, 2, budget.waits, "the retried call is charged too")
	assert.Equal(t, 1, inner.failovers)
}

func TestBudgetedPool_BudgetExhausted(t *testing.T) {
	caller := &fakeCaller{balance: big.NewInt(1)}
	budget := &countingBudget{err: context.DeadlineExceeded}

	reader, err := NewSyntheticBalanceReader(fakeWallets{"user-1": testWallet}, NewBudgetedPool(&fakePool{caller: caller}, budget), &fixedPrice{price: decimal.NewFromInt(1)}, testToken, 6)
	require.NoError(t, err)

	_, err = reader.GetBalance(context.Background(), "user-1")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, caller.calls)
}
