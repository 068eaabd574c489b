package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/savings-metrics/internal/models"
	"github.com/savings-metrics/internal/types"
)

// LedgerClient reads savings transactions from the platform ledger API
type LedgerClient struct {
	api *jsonClient
}

// NewLedgerClient creates a new ledger API client
func NewLedgerClient(cfg ClientConfig) *LedgerClient {
	return &LedgerClient{api: newJSONClient("ledger", cfg)}
}

// ledgerTransaction is the wire form of a ledger entry.
// Amount may arrive as a JSON string or a bare number.
type ledgerTransaction struct {
	ID              string          `json:"id"`
	Amount          json.RawMessage `json:"amount"`
	TokenSymbol     string          `json:"tokenSymbol"`
	TransactionType string          `json:"transactionType"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type ledgerResponse struct {
	Transactions []ledgerTransaction `json:"transactions"`
}

// GetTransactions returns every ledger entry of the user. A user unknown to the ledger has none.
func (c *LedgerClient) GetTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	var resp ledgerResponse
	err := c.api.getJSON(ctx, "/users/"+url.PathEscape(userID)+"/transactions", nil, &resp)
	if errors.Is(err, ErrNotFound) {
		return []models.Transaction{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ledger for user %s: %w", userID, err)
	}

	txs := make([]models.Transaction, 0, len(resp.Transactions))
	for _, raw := range resp.Transactions {
		txs = append(txs, models.Transaction{
			ID:          raw.ID,
			UserID:      userID,
			Amount:      rawAmount(raw.Amount),
			TokenSymbol: strings.TrimSpace(raw.TokenSymbol),
			Type:        types.ParseTransactionType(raw.TransactionType),
			Status:      types.ParseTransactionStatus(raw.Status),
			CreatedAt:   raw.CreatedAt.UTC(),
		})
	}
	return txs, nil
}

// rawAmount keeps the amount text as delivered; parsing happens in the engine
func rawAmount(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}
