package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/savings-metrics/internal/models"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a lookup matches no stored row
var ErrNotFound = errors.New("not found")

// DefaultMaxPriceDistance bounds how far the nearest stored point may be from the requested instant
const DefaultMaxPriceDistance = 24 * time.Hour

// PriceHistoryRepository serves synthetic asset prices from ClickHouse price_points
type PriceHistoryRepository struct {
	db          *ClickHouseDB
	symbol      string
	maxDistance time.Duration
}

// NewPriceHistoryRepository creates a price history oracle for symbol
func NewPriceHistoryRepository(db *ClickHouseDB, symbol string, maxDistance time.Duration) *PriceHistoryRepository {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxPriceDistance
	}
	return &PriceHistoryRepository{
		db:          db,
		symbol:      strings.ToUpper(strings.TrimSpace(symbol)),
		maxDistance: maxDistance,
	}
}

// RecordPrices appends price points in one batch
func (r *PriceHistoryRepository) RecordPrices(ctx context.Context, points []models.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	batch, err := r.db.Conn().PrepareBatch(ctx, `
		INSERT INTO price_points (symbol, timestamp, price)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare price batch: %w", err)
	}

	for _, p := range points {
		symbol := strings.ToUpper(strings.TrimSpace(p.Symbol))
		if symbol == "" {
			symbol = r.symbol
		}
		if err := batch.Append(symbol, p.Timestamp.UTC(), p.Price); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append price point: %w", err)
		}
	}

	return batch.Send()
}

// PriceAt returns the stored point nearest to at, preferring the earlier point on a tie.
// Points further than the configured distance are ignored.
func (r *PriceHistoryRepository) PriceAt(ctx context.Context, at time.Time) (models.PricePoint, error) {
	query := `
		SELECT timestamp, price
		FROM price_points FINAL
		WHERE symbol = ? AND timestamp BETWEEN ? AND ?
		ORDER BY abs(toUnixTimestamp64Milli(timestamp) - ?) ASC, timestamp ASC
		LIMIT 1
	`
	at = at.UTC()
	return r.queryOne(ctx, query, r.symbol, at.Add(-r.maxDistance), at.Add(r.maxDistance), at.UnixMilli())
}

// CurrentPrice returns the latest stored point
func (r *PriceHistoryRepository) CurrentPrice(ctx context.Context) (models.PricePoint, error) {
	query := `
		SELECT timestamp, price
		FROM price_points FINAL
		WHERE symbol = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`
	return r.queryOne(ctx, query, r.symbol)
}

func (r *PriceHistoryRepository) queryOne(ctx context.Context, query string, args ...interface{}) (models.PricePoint, error) {
	rows, err := r.db.Conn().Query(ctx, query, args...)
	if err != nil {
		return models.PricePoint{}, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return models.PricePoint{}, fmt.Errorf("failed to read price history: %w", err)
		}
		return models.PricePoint{}, fmt.Errorf("%w: no %s price", ErrNotFound, r.symbol)
	}

	var ts time.Time
	var price decimal.Decimal
	if err := rows.Scan(&ts, &price); err != nil {
		return models.PricePoint{}, fmt.Errorf("failed to scan price point: %w", err)
	}

	return models.PricePoint{Symbol: r.symbol, Timestamp: ts.UTC(), Price: price}, nil
}
