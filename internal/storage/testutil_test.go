package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/savings-metrics/internal/config"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// testContext creates a context with timeout for tests
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// migrationsDir resolves migrations/<db> relative to this source file
func migrationsDir(t *testing.T, db string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations", db)
}

// setupTestPostgres starts a migrated Postgres container
func setupTestPostgres(t *testing.T) *PostgresDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, RunMigrations(dsn, migrationsDir(t, "postgres")))

	db, err := NewPostgresDBFromURL(dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db
}

// setupTestClickHouse starts a migrated ClickHouse container
func setupTestClickHouse(t *testing.T) *ClickHouseDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForLog("Application: Ready for connections").WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("9000/tcp"),
			),
			Env: map[string]string{
				"CLICKHOUSE_DB":       "test",
				"CLICKHOUSE_USER":     "default",
				"CLICKHOUSE_PASSWORD": "",
			},
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start clickhouse container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	db, err := NewClickHouseDB(&config.ClickHouseConfig{
		Host:     host,
		Port:     port.Port(),
		Database: "test",
		User:     "default",
	})
	require.NoError(t, err, fmt.Sprintf("failed to connect to clickhouse at %s:%s", host, port.Port()))
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunClickHouseMigrations(ctx, db, migrationsDir(t, "clickhouse")))
	return db
}
