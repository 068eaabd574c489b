package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LendingPosition is one pool position in the pool-share lending protocol.
// Multiple positions for the same user are summed by the engine.
type LendingPosition struct {
	PoolID           string          `json:"poolId"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	RedeemableShares decimal.Decimal `json:"redeemableShares"`
}

// PricePoint is the synthetic asset price, in deposit currency, at a point in time
type PricePoint struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
}

// Valid reports whether the price can be used for reward attribution
func (p PricePoint) Valid() bool {
	return p.Price.IsPositive()
}
