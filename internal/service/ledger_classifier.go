package service

import (
	"iter"
	"slices"

	"github.com/savings-metrics/internal/models"
)

// ClassifiedDeposits holds the eligible deposits of each protocol.
// Both sequences are finite and may be ranged over any number of times.
type ClassifiedDeposits struct {
	Lending   iter.Seq[models.Transaction]
	Synthetic iter.Seq[models.Transaction]
}

// LedgerClassifier splits a user's ledger into per-protocol eligible deposits.
// A deposit is eligible when it is deposit-typed, confirmed, and carries the protocol's asset symbol.
type LedgerClassifier struct {
	lendingSymbol    string
	syntheticAliases []string
}

// NewLedgerClassifier creates a classifier for the given asset symbols
func NewLedgerClassifier(lendingSymbol string, syntheticAliases []string) *LedgerClassifier {
	return &LedgerClassifier{
		lendingSymbol:    lendingSymbol,
		syntheticAliases: slices.Clone(syntheticAliases),
	}
}

// Classify returns lazy views over txs. Ineligible transactions are dropped silently.
func (c *LedgerClassifier) Classify(txs []models.Transaction) ClassifiedDeposits {
	// later edits by the caller must not leak into the sequences
	ledger := slices.Clone(txs)

	return ClassifiedDeposits{
		Lending:   eligibleDeposits(ledger, c.isLending),
		Synthetic: eligibleDeposits(ledger, c.isSynthetic),
	}
}

func (c *LedgerClassifier) isLending(tx *models.Transaction) bool {
	return tx.HasSymbol(c.lendingSymbol)
}

func (c *LedgerClassifier) isSynthetic(tx *models.Transaction) bool {
	for _, alias := range c.syntheticAliases {
		if tx.HasSymbol(alias) {
			return true
		}
	}
	return false
}

func eligibleDeposits(ledger []models.Transaction, match func(*models.Transaction) bool) iter.Seq[models.Transaction] {
	return func(yield func(models.Transaction) bool) {
		for i := range ledger {
			tx := &ledger[i]
			if !tx.IsConfirmedDeposit() || !match(tx) {
				continue
			}
			if !yield(*tx) {
				return
			}
		}
	}
}
