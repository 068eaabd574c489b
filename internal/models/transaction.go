package models

import (
	"strings"
	"time"

	"github.com/savings-metrics/internal/types"
)

// Transaction represents a savings ledger entry as delivered by the ledger provider
type Transaction struct {
	ID          string                  `json:"id" db:"id"`
	UserID      string                  `json:"userId" db:"user_id"`
	Amount      string                  `json:"amount" db:"amount"` // decimal string, may be malformed
	TokenSymbol string                  `json:"tokenSymbol" db:"token_symbol"`
	Type        types.TransactionType   `json:"transactionType" db:"transaction_type"`
	Status      types.TransactionStatus `json:"status" db:"status"`
	CreatedAt   time.Time               `json:"createdAt" db:"created_at"`
}

// IsConfirmedDeposit reports whether the entry is a settled deposit-like transaction
func (t *Transaction) IsConfirmedDeposit() bool {
	return t.Type == types.TypeDeposit && t.Status == types.StatusConfirmed
}

// HasSymbol reports whether the entry's token symbol matches symbol, ignoring case
func (t *Transaction) HasSymbol(symbol string) bool {
	return strings.EqualFold(strings.TrimSpace(t.TokenSymbol), strings.TrimSpace(symbol))
}
