// Package sqlitetest opens migrated SQLite databases for repository tests.
package sqlitetest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/felixgeelhaar/worksync/internal/shared/infrastructure/migrations"
)

// Open returns a fresh SQLite database in the test's temp directory with
// the full schema applied. The database is closed when the test ends.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "worksync.db")
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := migrations.RunSQLiteMigrations(context.Background(), db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}
