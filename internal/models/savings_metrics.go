package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProtocolMetrics holds the reconciled figures for a single protocol.
// All values are non-negative.
type ProtocolMetrics struct {
	Rewards        decimal.Decimal `json:"rewards"`
	Withdrawn      decimal.Decimal `json:"withdrawn"`
	TotalDeposited decimal.Decimal `json:"totalDeposited"`
}

// SavingsMetrics is the unified savings view for one user.
// A value is built fresh for every request and never mutated afterwards.
type SavingsMetrics struct {
	UserID           string          `json:"userId"`
	TotalStake       decimal.Decimal `json:"totalStake"`
	CurrentStake     decimal.Decimal `json:"currentStake"`
	LifetimeRewards  decimal.Decimal `json:"lifetimeRewards"`
	LifetimeUnbonded decimal.Decimal `json:"lifetimeUnbonded"`
	Lending          ProtocolMetrics `json:"lending"`
	Synthetic        ProtocolMetrics `json:"synthetic"`
	ComputedAt       time.Time       `json:"computedAt"`
}
