package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Connection is an open database handle. Repositories reach the driver
// specific handle through the Pool() or DB() accessors of the concrete
// connection types.
type Connection interface {
	// Close closes the database connection.
	Close() error
	// Ping verifies the connection is still alive.
	Ping(ctx context.Context) error
	// Driver returns the driver type for this connection.
	Driver() Driver
}

// Config holds database configuration.
type Config struct {
	// Driver specifies the database driver to use.
	// If empty or "auto", it will be detected from the URL.
	Driver Driver

	// URL is the connection string for PostgreSQL.
	URL string

	// SQLitePath is the path to the SQLite database file.
	// Defaults to ~/.worksync/worksync.db
	SQLitePath string

	// MaxConns is the maximum number of connections (PostgreSQL only).
	MaxConns int
}

// NewConnection creates a database connection based on configuration.
func NewConnection(ctx context.Context, cfg Config) (Connection, error) {
	driver := cfg.Driver
	if driver == "" || driver == "auto" {
		driver = DetectDriver(cfg.URL)
	}

	var open func(ctx context.Context, cfg Config) (Connection, error)
	switch driver {
	case DriverPostgres:
		open = newPostgresConnection
	case DriverSQLite:
		open = newSQLiteConnection
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	if open == nil {
		return nil, fmt.Errorf("database driver %s is not registered", driver)
	}
	return open(ctx, cfg)
}

// DefaultSQLitePath returns the default SQLite database path.
func DefaultSQLitePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".worksync", "worksync.db")
}

// EnsureDirectory creates the parent directory for a file path if it doesn't exist.
func EnsureDirectory(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// Driver factories are registered by the postgres and sqlite subpackages
// from their init functions.
var (
	newPostgresConnection func(ctx context.Context, cfg Config) (Connection, error)
	newSQLiteConnection   func(ctx context.Context, cfg Config) (Connection, error)
)

// RegisterPostgresDriver registers the PostgreSQL connection factory.
func RegisterPostgresDriver(fn func(ctx context.Context, cfg Config) (Connection, error)) {
	newPostgresConnection = fn
}

// RegisterSQLiteDriver registers the SQLite connection factory.
func RegisterSQLiteDriver(fn func(ctx context.Context, cfg Config) (Connection, error)) {
	newSQLiteConnection = fn
}
