package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// WalletRepository maps users to the custodial wallet holding their synthetic asset
type WalletRepository struct {
	db *PostgresDB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *PostgresDB) *WalletRepository {
	return &WalletRepository{db: db}
}

// WalletAddress returns the user's wallet address, or found=false when none is registered
func (r *WalletRepository) WalletAddress(ctx context.Context, userID string) (string, bool, error) {
	var address string
	err := r.db.Pool().QueryRow(ctx,
		`SELECT address FROM user_wallets WHERE user_id = $1`,
		userID,
	).Scan(&address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get wallet: %w", err)
	}
	return address, true, nil
}

// Upsert registers or replaces the user's wallet address
func (r *WalletRepository) Upsert(ctx context.Context, userID, address string) error {
	query := `
		INSERT INTO user_wallets (user_id, address, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET address = EXCLUDED.address, updated_at = NOW()
	`
	if _, err := r.db.Pool().Exec(ctx, query, userID, strings.ToLower(strings.TrimSpace(address))); err != nil {
		return fmt.Errorf("failed to upsert wallet: %w", err)
	}
	return nil
}
