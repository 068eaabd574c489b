// Package types provides common type definitions for the savings metrics service.
package types

import "strings"

// TransactionStatus represents ledger settlement status
type TransactionStatus string

const (
	// StatusConfirmed represents a settled transaction
	StatusConfirmed TransactionStatus = "confirmed"
	// StatusPending represents a transaction awaiting settlement
	StatusPending TransactionStatus = "pending"
	// StatusFailed represents a transaction that did not settle
	StatusFailed TransactionStatus = "failed"
)

// TransactionType represents the ledger classification of a transaction
type TransactionType string

const (
	// TypeDeposit covers deposits, stakes and delegations into a protocol
	TypeDeposit TransactionType = "deposit"
	// TypeWithdrawal covers withdrawals, unbonds and redemptions
	TypeWithdrawal TransactionType = "withdrawal"
	// TypeOther is anything the engine does not reconcile
	TypeOther TransactionType = "other"
)

// ParseTransactionType maps raw ledger type strings onto a TransactionType.
// Unknown values map to TypeOther.
func ParseTransactionType(raw string) TransactionType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "deposit", "stake", "delegate", "supply", "mint":
		return TypeDeposit
	case "withdraw", "withdrawal", "unbond", "unstake", "redeem", "burn":
		return TypeWithdrawal
	default:
		return TypeOther
	}
}

// ParseTransactionStatus maps raw ledger status strings onto a TransactionStatus.
// Anything that is not recognisably confirmed or pending is treated as failed.
func ParseTransactionStatus(raw string) TransactionStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "confirmed", "completed", "success", "successful":
		return StatusConfirmed
	case "pending", "processing", "submitted":
		return StatusPending
	default:
		return StatusFailed
	}
}

// ProtocolID identifies one of the yield protocols
type ProtocolID string

const (
	// ProtocolLending is the pool-share lending protocol
	ProtocolLending ProtocolID = "lending"
	// ProtocolSynthetic is the price-appreciating synthetic asset protocol
	ProtocolSynthetic ProtocolID = "synthetic"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
