package service

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts outside these bounds are malformed. Decimal addition rescales both operands
// to the smaller exponent, so the bounds also cap the work done per deposit.
const (
	maxAmountExponent = 64
	maxAmountDigits   = 78
)

// ParseAmount converts a ledger amount string to a decimal.
// It is total: empty, non-numeric, NaN, infinite or out-of-range input yields zero and
// never an error. Negative values are returned as-is.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if exp := amount.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent {
		return decimal.Zero
	}
	if amount.NumDigits() > maxAmountDigits {
		return decimal.Zero
	}
	return amount
}

// nonNegative floors d at zero
func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
