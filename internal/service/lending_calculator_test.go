package service

import (
	"testing"

	"github.com/savings-metrics/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestComputeLending(t *testing.T) {
	tests := []struct {
		name          string
		positions     []models.LendingPosition
		deposits      []models.Transaction
		wantRewards   string
		wantWithdrawn string
		wantDeposited string
		wantAvailable string
	}{
		{
			name: "share growth is yield",
			positions: []models.LendingPosition{
				{PoolID: "pool-1", AvailableBalance: dec("600"), RedeemableShares: dec("630")},
				{PoolID: "pool-2", AvailableBalance: dec("400"), RedeemableShares: dec("420")},
			},
			deposits:      []models.Transaction{deposit("USDC", "600", day1), deposit("USDC", "400", day2)},
			wantRewards:   "50",
			wantWithdrawn: "0",
			wantDeposited: "1000",
			wantAvailable: "1000",
		},
		{
			name: "missing principal is withdrawn and rewards floor at zero",
			positions: []models.LendingPosition{
				{PoolID: "pool-1", AvailableBalance: dec("700"), RedeemableShares: dec("900")},
			},
			deposits:      []models.Transaction{deposit("USDC", "1000", day1)},
			wantRewards:   "0",
			wantWithdrawn: "300",
			wantDeposited: "1000",
			wantAvailable: "700",
		},
		{
			name:          "malformed amount counts as zero",
			positions:     []models.LendingPosition{{AvailableBalance: dec("100"), RedeemableShares: dec("110")}},
			deposits:      []models.Transaction{deposit("USDC", "100", day1), deposit("USDC", "n/a", day2)},
			wantRewards:   "10",
			wantWithdrawn: "0",
			wantDeposited: "100",
			wantAvailable: "100",
		},
		{
			name:          "no positions means everything was withdrawn",
			deposits:      []models.Transaction{deposit("USDC", "250", day1)},
			wantRewards:   "0",
			wantWithdrawn: "250",
			wantDeposited: "250",
			wantAvailable: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeLending(tt.positions, seqOf(tt.deposits...))

			assertDecimal(t, tt.wantRewards, got.Rewards, "rewards")
			assertDecimal(t, tt.wantWithdrawn, got.Withdrawn, "withdrawn")
			assertDecimal(t, tt.wantDeposited, got.TotalDeposited, "totalDeposited")
			assertDecimal(t, tt.wantAvailable, got.AvailableBalance, "availableBalance")
			assert.Equal(t, len(tt.deposits), got.Deposits)
		})
	}
}

func TestComputeLending_NoDepositsIsZero(t *testing.T) {
	positions := []models.LendingPosition{{AvailableBalance: dec("500"), RedeemableShares: dec("520")}}

	got := ComputeLending(positions, seqOf())

	assertDecimal(t, "0", got.Rewards)
	assertDecimal(t, "0", got.Withdrawn)
	assertDecimal(t, "0", got.TotalDeposited)
	assertDecimal(t, "500", got.AvailableBalance, "balance still feeds current stake")
}
