// Package app wires the worksync dependencies for the API server, the CLI
// and the outbox worker.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	attendanceCommands "github.com/felixgeelhaar/worksync/internal/attendance/application/commands"
	attendanceDomain "github.com/felixgeelhaar/worksync/internal/attendance/domain"
	"github.com/felixgeelhaar/worksync/internal/fas"
	healthQueries "github.com/felixgeelhaar/worksync/internal/health/application/queries"
	"github.com/felixgeelhaar/worksync/internal/idempotency"
	ledgerCommands "github.com/felixgeelhaar/worksync/internal/ledger/application/commands"
	ledgerQueries "github.com/felixgeelhaar/worksync/internal/ledger/application/queries"
	ledgerDomain "github.com/felixgeelhaar/worksync/internal/ledger/domain"
	sharedApplication "github.com/felixgeelhaar/worksync/internal/shared/application"
	"github.com/felixgeelhaar/worksync/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/worksync/internal/shared/infrastructure/database/postgres" // Register PostgreSQL driver
	_ "github.com/felixgeelhaar/worksync/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/worksync/internal/shared/infrastructure/kv"
	"github.com/felixgeelhaar/worksync/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/worksync/internal/shared/infrastructure/outbox"
	workforceCommands "github.com/felixgeelhaar/worksync/internal/workforce/application/commands"
	workforceDomain "github.com/felixgeelhaar/worksync/internal/workforce/domain"
	"github.com/felixgeelhaar/worksync/pkg/config"
	"github.com/felixgeelhaar/worksync/pkg/observability"
	"github.com/redis/go-redis/v9"
)

// IdempotencyNamespace scopes the attendance replay keys.
const IdempotencyNamespace = "attendance"

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Database
	DBConn   database.Connection
	DBDriver database.Driver

	// Key-value store backing idempotency replay and status flags
	RedisClient *redis.Client
	KV          kv.Store
	Flags       *kv.Flags

	Metrics observability.Metrics
	Health  *observability.HealthRegistry

	// Repositories
	AttendanceRepo attendanceDomain.Repository
	WorkerRepo     workforceDomain.Repository
	SyncErrorRepo  ledgerDomain.ErrorRepository
	SyncLogRepo    ledgerDomain.LogRepository
	OutboxRepo     outbox.Repository

	// Unit of Work
	UnitOfWork sharedApplication.UnitOfWork

	// Audit trail and ledger
	Audit  sharedApplication.AuditSink
	Ledger *ledgerCommands.Recorder

	// Idempotency
	Guard *idempotency.Guard

	// Command Handlers
	IngestHandler         *attendanceCommands.IngestHandler
	SyncWorkersHandler    *workforceCommands.SyncWorkersHandler
	DeleteWorkerHandler   *workforceCommands.DeleteWorkerHandler
	UpdateStatusHandler   *ledgerCommands.UpdateStatusHandler
	IncrementRetryHandler *ledgerCommands.IncrementRetryHandler

	// Query Handlers
	ListErrorsHandler *ledgerQueries.ListErrorsHandler
	SyncStatusHandler *healthQueries.GetSyncStatusHandler

	// External system; nil when FAS_BASE_URL is unset
	FASClient *fas.Client
	Puller    *fas.Puller
}

// NewContainer creates a new dependency container.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
		Health:  observability.NewHealthRegistry(),
	}

	if err := c.openDatabase(ctx); err != nil {
		return nil, err
	}
	if err := c.openKV(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err := c.buildRepositories(); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err := c.buildHandlers(); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

func (c *Container) openDatabase(ctx context.Context) error {
	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.Driver(c.Config.DatabaseDriver),
		URL:        c.Config.DatabaseURL,
		SQLitePath: c.Config.SQLitePath,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DBConn = conn
	c.DBDriver = conn.Driver()
	c.Health.Register("database", observability.DatabaseHealthChecker(conn.Ping))

	// Local mode has no migrate step; the schema is applied on open.
	if sqliteConn, ok := conn.(interface{ DB() *sql.DB }); ok {
		if err := migrations.RunSQLiteMigrations(ctx, sqliteConn.DB()); err != nil {
			_ = conn.Close()
			return fmt.Errorf("failed to run SQLite migrations: %w", err)
		}
	}

	c.Logger.Info("connected to database", "driver", c.DBDriver)
	return nil
}

func (c *Container) openKV(ctx context.Context) error {
	if c.Config.RedisURL == "" {
		c.Logger.Info("no Redis configured, using in-memory store")
		c.KV = kv.NewMemoryStore()
		c.Flags = kv.NewFlags(c.KV)
		return nil
	}

	client, err := kv.ConnectRedis(ctx, c.Config.RedisURL)
	if err != nil {
		if !c.Config.IsDevelopment() {
			return err
		}
		c.Logger.Warn("Redis not available, using in-memory store", "error", err)
		c.KV = kv.NewMemoryStore()
		c.Flags = kv.NewFlags(c.KV)
		return nil
	}

	store := kv.NewRedisStore(client)
	c.RedisClient = client
	c.KV = store
	c.Flags = kv.NewFlags(store)
	c.Health.Register("redis", observability.RedisHealthChecker(store.Ping))
	c.Logger.Info("connected to Redis")
	return nil
}

func (c *Container) buildRepositories() error {
	factory := NewRepositoryFactory(c.DBConn)

	var err error
	if c.AttendanceRepo, err = factory.AttendanceRepository(); err != nil {
		return err
	}
	if c.WorkerRepo, err = factory.WorkerRepository(); err != nil {
		return err
	}
	if c.SyncErrorRepo, err = factory.SyncErrorRepository(); err != nil {
		return err
	}
	if c.SyncLogRepo, err = factory.SyncLogRepository(); err != nil {
		return err
	}
	if c.OutboxRepo, err = factory.OutboxRepository(); err != nil {
		return err
	}
	if c.UnitOfWork, err = factory.UnitOfWork(); err != nil {
		return err
	}
	return nil
}

func (c *Container) buildHandlers() error {
	logger := c.Logger

	c.Audit = outbox.NewRecorder(c.OutboxRepo, logger)
	c.Ledger = ledgerCommands.NewRecorder(c.SyncErrorRepo, c.SyncLogRepo, c.Audit, c.Metrics, logger)
	c.Guard = idempotency.NewGuard(c.KV, IdempotencyNamespace,
		idempotency.WithTTL(c.Config.IdempotencyTTL),
		idempotency.WithLogger(logger),
		idempotency.WithMetrics(c.Metrics),
	)

	c.IngestHandler = attendanceCommands.NewIngestHandler(
		c.AttendanceRepo, c.WorkerRepo, c.UnitOfWork, c.Ledger, c.Audit, c.Metrics, logger)
	c.SyncWorkersHandler = workforceCommands.NewSyncWorkersHandler(
		c.WorkerRepo, c.UnitOfWork, c.Ledger, c.Audit, c.Metrics, logger)
	c.DeleteWorkerHandler = workforceCommands.NewDeleteWorkerHandler(
		c.WorkerRepo, c.UnitOfWork, c.Ledger, c.Audit, logger)
	c.UpdateStatusHandler = ledgerCommands.NewUpdateStatusHandler(c.SyncErrorRepo, c.UnitOfWork, c.Audit)
	c.IncrementRetryHandler = ledgerCommands.NewIncrementRetryHandler(c.SyncErrorRepo)

	c.ListErrorsHandler = ledgerQueries.NewListErrorsHandler(c.SyncErrorRepo)
	c.SyncStatusHandler = healthQueries.NewGetSyncStatusHandler(
		c.Flags, c.WorkerRepo, c.SyncErrorRepo, c.SyncLogRepo, c.Config.RecentSyncLogLimit, logger)

	if !c.Config.FASConfigured() {
		return nil
	}
	client, err := fas.NewClient(fas.Config{
		BaseURL:         c.Config.FASBaseURL,
		ClientID:        c.Config.FASClientID,
		ClientSecret:    c.Config.FASClientSecret,
		TokenURL:        c.Config.FASTokenURL,
		Timeout:         c.Config.FASTimeout,
		BreakerFailures: c.Config.FASBreakerFailures,
		BreakerTimeout:  c.Config.FASBreakerTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create FAS client: %w", err)
	}
	c.FASClient = client
	c.Puller = fas.NewPuller(client, c.SyncWorkersHandler, c.IngestHandler, c.Flags, c.Ledger, c.SyncLogRepo, logger)
	return nil
}

// Close releases all resources.
func (c *Container) Close() error {
	var errs []error
	if c.RedisClient != nil {
		errs = append(errs, c.RedisClient.Close())
	}
	if c.DBConn != nil {
		errs = append(errs, c.DBConn.Close())
	}
	return errors.Join(errs...)
}
