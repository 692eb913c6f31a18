// Package pgtest connects repository integration tests to PostgreSQL.
package pgtest

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/worksync/internal/shared/infrastructure/migrations"
)

var tables = []string{"attendance_records", "workers", "sync_errors", "sync_logs", "outbox"}

// Open connects to TEST_DATABASE_URL, migrates it and empties the sync
// tables. The test is skipped when the variable is unset or the server is
// unreachable.
func Open(t testing.TB) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Skipf("Failed to connect to test database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("Failed to ping test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := migrations.RunPostgresMigrations(ctx, dbURL); err != nil {
		t.Fatalf("migrate postgres: %v", err)
	}
	for _, table := range tables {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("clean %s: %v", table, err)
		}
	}
	return pool
}
