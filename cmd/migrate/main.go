// Package main provides a CLI tool for running database migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/savings-metrics/internal/config"
	"github.com/savings-metrics/internal/logging"
	"github.com/savings-metrics/internal/storage"
)

func main() {
	var (
		action = flag.String("action", "up", "Migration action: up, down, version")
		dbType = flag.String("db", "postgres", "Database type: postgres, clickhouse")
		dir    = flag.String("dir", "migrations", "Root directory holding postgres/ and clickhouse/ migrations")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger().WithFields(map[string]interface{}{
		"db":     *dbType,
		"action": *action,
	})

	switch *dbType {
	case "postgres":
		err = runPostgresMigrations(cfg, *action, filepath.Join(*dir, "postgres"))
	case "clickhouse":
		err = runClickHouseMigrations(cfg, *action, filepath.Join(*dir, "clickhouse"))
	default:
		err = fmt.Errorf("unknown database type: %s", *dbType)
	}
	if err != nil {
		logger.WithError(err).Fatal("Migration failed")
	}
	logger.Info("Migration completed")
}

func runPostgresMigrations(cfg *config.Config, action, migrationsPath string) error {
	databaseURL := cfg.Database.Postgres.URL()

	switch action {
	case "up":
		return storage.RunMigrations(databaseURL, migrationsPath)
	case "down":
		return storage.RollbackMigrations(databaseURL, migrationsPath)
	case "version":
		version, dirty, err := storage.MigrationVersion(databaseURL, migrationsPath)
		if err != nil {
			return err
		}
		logging.WithFields(map[string]interface{}{
			"version": version,
			"dirty":   dirty,
		}).Info("Current Postgres migration version")
		return nil
	default:
		return fmt.Errorf("unknown action: %s", action)
	}
}

func runClickHouseMigrations(cfg *config.Config, action, migrationsPath string) error {
	if action != "up" {
		return fmt.Errorf("ClickHouse migrations only support 'up' action")
	}
	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		return fmt.Errorf("migrations directory not found: %s", migrationsPath)
	}

	db, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.WithError(err).Warn("Error closing ClickHouse connection")
		}
	}()

	return storage.RunClickHouseMigrations(context.Background(), db, migrationsPath)
}
