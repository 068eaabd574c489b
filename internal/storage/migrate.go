package storage

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func withMigrator(databaseURL, migrationsPath string, fn func(m *migrate.Migrate) error) error {
	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		_, _ = m.Close() // nolint:errcheck // cleanup in defer
	}()
	return fn(m)
}

// RunMigrations applies every pending Postgres migration
func RunMigrations(databaseURL, migrationsPath string) error {
	return withMigrator(databaseURL, migrationsPath, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		return nil
	})
}

// RollbackMigrations rolls back the last migration
func RollbackMigrations(databaseURL, migrationsPath string) error {
	return withMigrator(databaseURL, migrationsPath, func(m *migrate.Migrate) error {
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to rollback migration: %w", err)
		}
		return nil
	})
}

// MigrationVersion returns the current migration version
func MigrationVersion(databaseURL, migrationsPath string) (version uint, dirty bool, err error) {
	err = withMigrator(databaseURL, migrationsPath, func(m *migrate.Migrate) error {
		var vErr error
		version, dirty, vErr = m.Version()
		if vErr != nil && !errors.Is(vErr, migrate.ErrNilVersion) {
			return fmt.Errorf("failed to get migration version: %w", vErr)
		}
		return nil
	})
	return version, dirty, err
}
