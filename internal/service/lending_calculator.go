package service

import (
	"iter"

	"github.com/savings-metrics/internal/models"
	"github.com/shopspring/decimal"
)

// LendingResult is the pool-share protocol outcome plus the balance that feeds current stake
type LendingResult struct {
	models.ProtocolMetrics
	AvailableBalance decimal.Decimal
	Deposits         int
}

// ComputeLending reconciles pool-share deposits against the user's current pool positions.
//
// Shares are taken as 1:1 redeemable against the deposit asset, so any share excess over
// deposited principal is yield and any principal missing from the available balance has
// been withdrawn. Both figures are floored at zero because the ledger and the position
// snapshot are not read atomically.
func ComputeLending(positions []models.LendingPosition, deposits iter.Seq[models.Transaction]) LendingResult {
	available := decimal.Zero
	shares := decimal.Zero
	for _, p := range positions {
		available = available.Add(p.AvailableBalance)
		shares = shares.Add(p.RedeemableShares)
	}

	result := LendingResult{
		ProtocolMetrics: models.ProtocolMetrics{
			Rewards:        decimal.Zero,
			Withdrawn:      decimal.Zero,
			TotalDeposited: decimal.Zero,
		},
		AvailableBalance: nonNegative(available),
	}

	deposited := decimal.Zero
	for tx := range deposits {
		deposited = deposited.Add(ParseAmount(tx.Amount))
		result.Deposits++
	}
	if result.Deposits == 0 {
		return result
	}

	result.TotalDeposited = nonNegative(deposited)
	result.Rewards = nonNegative(shares.Sub(deposited))
	result.Withdrawn = nonNegative(deposited.Sub(available))
	return result
}
