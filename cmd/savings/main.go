// Package main computes one user's savings metrics and prints them as JSON.
// It can also seed the Postgres ledger, wallet directory and ClickHouse price
// history from JSON files before computing.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/savings-metrics/internal/app"
	"github.com/savings-metrics/internal/config"
	"github.com/savings-metrics/internal/logging"
	"github.com/savings-metrics/internal/models"
)

func main() {
	var (
		userID       = flag.String("user", "", "User ID to compute metrics for (required)")
		wallet       = flag.String("wallet", "", "Register this wallet address for the user before computing")
		importLedger = flag.String("import-ledger", "", "JSON file of ledger transactions to insert into Postgres")
		importPrices = flag.String("import-prices", "", "JSON file of price points to insert into ClickHouse")
		timeout      = flag.Duration("timeout", 30*time.Second, "Overall timeout")
		verbose      = flag.Bool("v", false, "Log at debug level")
	)
	flag.Parse()

	if *userID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logging.GetGlobalLogger().SetOutput(os.Stderr)
	if *verbose {
		logging.GetGlobalLogger().SetLevel(logging.LevelDebug)
	}
	logger := logging.GetGlobalLogger().WithUser(*userID)

	engine, err := app.New(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize savings metrics engine")
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logging.WithLogger(ctx, logger)

	if err := seed(ctx, engine, *userID, *wallet, *importLedger, *importPrices); err != nil {
		logger.WithError(err).Fatal("Failed to seed data")
	}

	metrics, err := engine.Service.ComputeSavingsMetrics(ctx, *userID)
	if err != nil {
		logger.WithError(err).Fatal("Failed to compute savings metrics")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(metrics); err != nil {
		logger.WithError(err).Fatal("Failed to write metrics")
	}
}

func seed(ctx context.Context, engine *app.App, userID, wallet, ledgerFile, pricesFile string) error {
	logger := logging.FromContext(ctx)

	if wallet != "" {
		if err := engine.Wallets.Upsert(ctx, userID, wallet); err != nil {
			return err
		}
		logger.WithField("wallet", wallet).Info("Registered wallet")
	}

	if ledgerFile != "" {
		var txs []models.Transaction
		if err := readJSON(ledgerFile, &txs); err != nil {
			return err
		}
		for i := range txs {
			if txs[i].UserID == "" {
				txs[i].UserID = userID
			}
		}
		if err := engine.Ledger.Insert(ctx, txs); err != nil {
			return err
		}
		logger.WithField("count", len(txs)).Info("Imported ledger transactions")
	}

	if pricesFile != "" {
		if engine.PriceHistory == nil {
			return fmt.Errorf("-import-prices requires PRICE_SOURCE=%s", config.SourceClickHouse)
		}
		var points []models.PricePoint
		if err := readJSON(pricesFile, &points); err != nil {
			return err
		}
		if err := engine.PriceHistory.RecordPrices(ctx, points); err != nil {
			return err
		}
		logger.WithField("count", len(points)).Info("Imported price points")

		if engine.PriceCache != nil {
			if err := engine.PriceCache.Invalidate(ctx); err != nil {
				logger.WithError(err).Warn("Failed to invalidate cached prices")
			}
		}
	}

	return nil
}

func readJSON(path string, dest interface{}) error {
	data, err := os.ReadFile(path) // #nosec G304 - operator supplied path
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
