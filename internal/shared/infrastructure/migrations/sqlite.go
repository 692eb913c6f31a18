// Package migrations embeds and applies the worksync schema for both
// supported database drivers.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed sqlite/*.sql postgres/*.sql
var migrationsFS embed.FS

// upFiles returns the sorted .up.sql files of a driver directory.
func upFiles(dir string) ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// RunSQLiteMigrations executes all SQLite migrations in order. Every
// statement is written with IF NOT EXISTS so reruns are harmless.
func RunSQLiteMigrations(ctx context.Context, db *sql.DB) error {
	files, err := upFiles("sqlite")
	if err != nil {
		return err
	}

	for _, file := range files {
		migration, err := migrationsFS.ReadFile("sqlite/" + file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		if _, err := db.ExecContext(ctx, string(migration)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", file, err)
		}
	}

	return nil
}
