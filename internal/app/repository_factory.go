package app

import (
	"database/sql"
	"fmt"

	attendanceDomain "github.com/felixgeelhaar/worksync/internal/attendance/domain"
	attendancePersistence "github.com/felixgeelhaar/worksync/internal/attendance/infrastructure/persistence"
	ledgerDomain "github.com/felixgeelhaar/worksync/internal/ledger/domain"
	ledgerPersistence "github.com/felixgeelhaar/worksync/internal/ledger/infrastructure/persistence"
	sharedApplication "github.com/felixgeelhaar/worksync/internal/shared/application"
	"github.com/felixgeelhaar/worksync/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/worksync/internal/shared/infrastructure/outbox"
	sharedPersistence "github.com/felixgeelhaar/worksync/internal/shared/infrastructure/persistence"
	workforceDomain "github.com/felixgeelhaar/worksync/internal/workforce/domain"
	workforcePersistence "github.com/felixgeelhaar/worksync/internal/workforce/infrastructure/persistence"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryFactory creates repositories based on the database driver.
type RepositoryFactory struct {
	conn   database.Connection
	driver database.Driver
}

// NewRepositoryFactory creates a new repository factory.
func NewRepositoryFactory(conn database.Connection) *RepositoryFactory {
	return &RepositoryFactory{
		conn:   conn,
		driver: conn.Driver(),
	}
}

// AttendanceRepository creates an attendance repository for the configured driver.
func (f *RepositoryFactory) AttendanceRepository() (attendanceDomain.Repository, error) {
	switch f.driver {
	case database.DriverPostgres:
		pool, err := f.getPostgresPool()
		if err != nil {
			return nil, err
		}
		return attendancePersistence.NewPostgresAttendanceRepository(pool), nil

	case database.DriverSQLite:
		db, err := f.getSQLiteDB()
		if err != nil {
			return nil, err
		}
		return attendancePersistence.NewSQLiteAttendanceRepository(db), nil

	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// WorkerRepository creates a worker directory repository for the configured driver.
func (f *RepositoryFactory) WorkerRepository() (workforceDomain.Repository, error) {
	switch f.driver {
	case database.DriverPostgres:
		pool, err := f.getPostgresPool()
		if err != nil {
			return nil, err
		}
		return workforcePersistence.NewPostgresWorkerRepository(pool), nil

	case database.DriverSQLite:
		db, err := f.getSQLiteDB()
		if err != nil {
			return nil, err
		}
		return workforcePersistence.NewSQLiteWorkerRepository(db), nil

	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// SyncErrorRepository creates a sync error repository for the configured driver.
func (f *RepositoryFactory) SyncErrorRepository() (ledgerDomain.ErrorRepository, error) {
	switch f.driver {
	case database.DriverPostgres:
		pool, err := f.getPostgresPool()
		if err != nil {
			return nil, err
		}
		return ledgerPersistence.NewPostgresSyncErrorRepository(pool), nil

	case database.DriverSQLite:
		db, err := f.getSQLiteDB()
		if err != nil {
			return nil, err
		}
		return ledgerPersistence.NewSQLiteSyncErrorRepository(db), nil

	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// SyncLogRepository creates a sync log repository for the configured driver.
func (f *RepositoryFactory) SyncLogRepository() (ledgerDomain.LogRepository, error) {
	switch f.driver {
	case database.DriverPostgres:
		pool, err := f.getPostgresPool()
		if err != nil {
			return nil, err
		}
		return ledgerPersistence.NewPostgresSyncLogRepository(pool), nil

	case database.DriverSQLite:
		db, err := f.getSQLiteDB()
		if err != nil {
			return nil, err
		}
		return ledgerPersistence.NewSQLiteSyncLogRepository(db), nil

	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// OutboxRepository creates an outbox repository for the configured driver.
func (f *RepositoryFactory) OutboxRepository() (outbox.Repository, error) {
	switch f.driver {
	case database.DriverPostgres:
		pool, err := f.getPostgresPool()
		if err != nil {
			return nil, err
		}
		return outbox.NewPostgresRepository(pool), nil

	case database.DriverSQLite:
		db, err := f.getSQLiteDB()
		if err != nil {
			return nil, err
		}
		return outbox.NewSQLiteRepository(db), nil

	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// UnitOfWork creates the transaction boundary for the configured driver.
func (f *RepositoryFactory) UnitOfWork() (sharedApplication.UnitOfWork, error) {
	switch f.driver {
	case database.DriverPostgres:
		pool, err := f.getPostgresPool()
		if err != nil {
			return nil, err
		}
		return sharedPersistence.NewPostgresUnitOfWork(pool), nil

	case database.DriverSQLite:
		db, err := f.getSQLiteDB()
		if err != nil {
			return nil, err
		}
		return sharedPersistence.NewSQLiteUnitOfWork(db), nil

	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// Helper methods to get underlying database connections

func (f *RepositoryFactory) getPostgresPool() (*pgxpool.Pool, error) {
	pgConn, ok := f.conn.(interface{ Pool() *pgxpool.Pool })
	if !ok {
		return nil, fmt.Errorf("postgres connection does not expose Pool()")
	}
	return pgConn.Pool(), nil
}

func (f *RepositoryFactory) getSQLiteDB() (*sql.DB, error) {
	sqliteConn, ok := f.conn.(interface{ DB() *sql.DB })
	if !ok {
		return nil, fmt.Errorf("sqlite connection does not expose DB()")
	}
	return sqliteConn.DB(), nil
}

// Driver returns the database driver type.
func (f *RepositoryFactory) Driver() database.Driver {
	return f.driver
}

// Connection returns the underlying database connection.
func (f *RepositoryFactory) Connection() database.Connection {
	return f.conn
}
