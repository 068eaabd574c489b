package types

import (
	"testing"
)

func TestParseTransactionType(t *testing.T) {
	tests := []struct {
		raw  string
		want TransactionType
	}{
		{"deposit", TypeDeposit},
		{"DEPOSIT", TypeDeposit},
		{" stake ", TypeDeposit},
		{"delegate", TypeDeposit},
		{"withdraw", TypeWithdrawal},
		{"Unbond", TypeWithdrawal},
		{"redeem", TypeWithdrawal},
		{"transfer", TypeOther},
		{"", TypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseTransactionType(tt.raw); got != tt.want {
				t.Errorf("ParseTransactionType(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseTransactionStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want TransactionStatus
	}{
		{"confirmed", StatusConfirmed},
		{"Completed", StatusConfirmed},
		{"pending", StatusPending},
		{"failed", StatusFailed},
		{"reverted", StatusFailed},
		{"", StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseTransactionStatus(tt.raw); got != tt.want {
				t.Errorf("ParseTransactionStatus(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestServiceError_Error(t *testing.T) {
	err := &ServiceError{Code: "X", Message: "something broke"}
	if err.Error() != "something broke" {
		t.Errorf("Error() = %q, want %q", err.Error(), "something broke")
	}
}
