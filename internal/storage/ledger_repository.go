package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/savings-metrics/internal/models"
	"github.com/savings-metrics/internal/types"
)

// LedgerRepository serves the savings ledger from Postgres
type LedgerRepository struct {
	db *PostgresDB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *PostgresDB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Insert stores ledger entries. IDs are kept verbatim, entries without one get a
// generated ID, and re-inserting an existing ID is a no-op. txs is not modified.
func (r *LedgerRepository) Insert(ctx context.Context, txs []models.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	query := `
		INSERT INTO savings_transactions (id, user_id, amount, token_symbol, transaction_type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	entries := ledgerEntries(txs, time.Now().UTC())
	batch := &pgx.Batch{}
	for _, tx := range entries {
		batch.Queue(query,
			tx.ID,
			tx.UserID,
			tx.Amount,
			tx.TokenSymbol,
			string(tx.Type),
			string(tx.Status),
			tx.CreatedAt,
		)
	}

	results := r.db.Pool().SendBatch(ctx, batch)
	defer results.Close()

	for _, tx := range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert ledger entry %s: %w", tx.ID, err)
		}
	}
	return nil
}

// ledgerEntries returns normalized copies of txs ready to store
func ledgerEntries(txs []models.Transaction, now time.Time) []models.Transaction {
	entries := make([]models.Transaction, len(txs))
	for i, tx := range txs {
		tx.ID = strings.TrimSpace(tx.ID)
		if tx.ID == "" {
			tx.ID = uuid.New().String()
		}
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = now
		}
		tx.TokenSymbol = strings.TrimSpace(tx.TokenSymbol)
		entries[i] = tx
	}
	return entries
}

// GetTransactions returns every ledger entry of the user, oldest first
func (r *LedgerRepository) GetTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	query := `
		SELECT id, user_id, amount, token_symbol, transaction_type, status, created_at
		FROM savings_transactions
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	txs := make([]models.Transaction, 0)
	for rows.Next() {
		var tx models.Transaction
		var txType, status string
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.TokenSymbol, &txType, &status, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		tx.Type = types.ParseTransactionType(txType)
		tx.Status = types.ParseTransactionStatus(status)
		tx.CreatedAt = tx.CreatedAt.UTC()
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	return txs, nil
}
