package service

import (
	"context"
	"iter"
	"time"

	"github.com/savings-metrics/internal/logging"
	"github.com/savings-metrics/internal/models"
	"github.com/shopspring/decimal"
)

// SyntheticResult is the synthetic asset protocol outcome
type SyntheticResult struct {
	models.ProtocolMetrics
	Deposits        int
	SkippedDeposits int // deposits whose reward could not be priced
}

// SyntheticCalculator attributes price appreciation of the synthetic asset to each deposit
type SyntheticCalculator struct {
	resolver *PriceResolver
}

// NewSyntheticCalculator creates a calculator backed by resolver
func NewSyntheticCalculator(resolver *PriceResolver) *SyntheticCalculator {
	return &SyntheticCalculator{resolver: resolver}
}

// Compute derives rewards and withdrawals for the synthetic asset.
//
// Every deposit bought units at its own price, so the reward is computed per deposit as
// amount * currentPrice / depositPrice - amount and floored at zero individually. A losing
// deposit never offsets a winning one. A deposit that cannot be priced still counts as
// deposited principal but earns nothing. Only cancellation of ctx is returned as an error.
func (c *SyntheticCalculator) Compute(ctx context.Context, currentBalance decimal.Decimal, deposits iter.Seq[models.Transaction]) (SyntheticResult, error) {
	result := SyntheticResult{
		ProtocolMetrics: models.ProtocolMetrics{
			Rewards:        decimal.Zero,
			Withdrawn:      decimal.Zero,
			TotalDeposited: decimal.Zero,
		},
	}

	var (
		amounts    []decimal.Decimal
		timestamps []time.Time
	)
	deposited := decimal.Zero
	for tx := range deposits {
		amount := ParseAmount(tx.Amount)
		amounts = append(amounts, amount)
		timestamps = append(timestamps, tx.CreatedAt)
		deposited = deposited.Add(amount)
	}
	result.Deposits = len(amounts)
	if result.Deposits == 0 {
		return result, nil
	}

	prices, err := c.resolver.Resolve(ctx, timestamps)
	if err != nil {
		return SyntheticResult{}, err
	}

	if misses := prices.Misses(); misses > 0 {
		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"priceMisses": misses,
			"deposits":    result.Deposits,
		}).Debug("Synthetic rewards computed with missing prices")
	}

	rewards := decimal.Zero
	currentPrice, haveCurrent := prices.Current()
	for i, amount := range amounts {
		depositPrice, ok := prices.At(timestamps[i])
		if !haveCurrent || !ok {
			result.SkippedDeposits++
			continue
		}
		// a non-positive amount bought no units
		if !amount.IsPositive() {
			continue
		}
		valueNow := amount.Mul(currentPrice).Div(depositPrice)
		rewards = rewards.Add(nonNegative(valueNow.Sub(amount)))
	}

	result.TotalDeposited = nonNegative(deposited)
	result.Rewards = rewards
	result.Withdrawn = nonNegative(deposited.Sub(currentBalance))
	return result, nil
}
