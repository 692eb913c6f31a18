package persistence

import (
	"context"
	"database/sql"
	"errors"

	sharedPersistence "github.com/felixgeelhaar/worksync/internal/shared/infrastructure/persistence"
	"github.com/felixgeelhaar/worksync/internal/workforce/domain"
	"github.com/google/uuid"
)

const workerColumns = `id, external_worker_id, name, phone, dob, company_name, trade_type,
	external_system, site_id, created_at, updated_at, detached_at`

const statsQuery = `
	SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN external_system <> '' AND external_worker_id <> '' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN phone = '' THEN 1 ELSE 0 END), 0)
	FROM workers
	WHERE detached_at IS NULL
`

var errNotDetached = errors.New("worker is not detached")

// SQLiteWorkerRepository implements domain.Repository using SQLite.
type SQLiteWorkerRepository struct {
	db *sql.DB
}

// NewSQLiteWorkerRepository creates a new SQLite worker repository.
func NewSQLiteWorkerRepository(db *sql.DB) *SQLiteWorkerRepository {
	return &SQLiteWorkerRepository{db: db}
}

// FindAttached retrieves the attached entry for an external id.
func (r *SQLiteWorkerRepository) FindAttached(ctx context.Context, externalWorkerID string) (*domain.Worker, error) {
	row := sharedPersistence.SQLiteExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+workerColumns+` FROM workers WHERE external_worker_id = ? AND detached_at IS NULL`,
		externalWorkerID)

	w, err := scanSQLiteWorker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return w, err
}

// Upsert inserts or updates on the attached-entry unique index in one
// statement, so concurrent syncs of one id converge on the last write.
func (r *SQLiteWorkerRepository) Upsert(ctx context.Context, w *domain.Worker) (uuid.UUID, bool, error) {
	query := `
		INSERT INTO workers (
			id, external_worker_id, name, phone, dob, company_name, trade_type,
			external_system, site_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_worker_id) WHERE detached_at IS NULL DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			dob = excluded.dob,
			company_name = excluded.company_name,
			trade_type = excluded.trade_type,
			site_id = COALESCE(excluded.site_id, workers.site_id),
			updated_at = excluded.updated_at
		RETURNING id
	`

	var id string
	err := sharedPersistence.SQLiteExecutor(ctx, r.db).QueryRowContext(ctx, query,
		w.ID().String(),
		w.ExternalWorkerID(),
		w.Name(),
		w.Phone(),
		w.DOB(),
		sharedPersistence.NullString(w.CompanyName()),
		sharedPersistence.NullString(w.TradeType()),
		w.ExternalSystem(),
		sharedPersistence.NullString(w.SiteID()),
		sharedPersistence.FormatTime(w.CreatedAt()),
		sharedPersistence.FormatTime(w.UpdatedAt()),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, false, err
	}

	stored, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, false, err
	}
	return stored, stored == w.ID(), nil
}

// Detach marks the entry detached if it still is attached.
func (r *SQLiteWorkerRepository) Detach(ctx context.Context, w *domain.Worker) (bool, error) {
	if w.DetachedAt() == nil {
		return false, errNotDetached
	}
	result, err := sharedPersistence.SQLiteExecutor(ctx, r.db).ExecContext(ctx,
		`UPDATE workers SET detached_at = ?, updated_at = ? WHERE id = ? AND detached_at IS NULL`,
		sharedPersistence.FormatTime(*w.DetachedAt()),
		sharedPersistence.FormatTime(w.UpdatedAt()),
		w.ID().String(),
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ResolveInternalID returns the internal id of the attached entry.
func (r *SQLiteWorkerRepository) ResolveInternalID(ctx context.Context, externalWorkerID string) (*uuid.UUID, error) {
	var id string
	err := sharedPersistence.SQLiteExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id FROM workers WHERE external_worker_id = ? AND detached_at IS NULL`,
		externalWorkerID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// Stats summarizes attached entries.
func (r *SQLiteWorkerRepository) Stats(ctx context.Context) (domain.Stats, error) {
	var s domain.Stats
	err := sharedPersistence.SQLiteExecutor(ctx, r.db).QueryRowContext(ctx, statsQuery).
		Scan(&s.Total, &s.Linked, &s.MissingPhone)
	return s, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteWorker(row rowScanner) (*domain.Worker, error) {
	var (
		id, createdAt, updatedAt       string
		p                              domain.Profile
		externalSystem                 string
		company, trade, site, detached sql.NullString
	)
	if err := row.Scan(&id, &p.ExternalWorkerID, &p.Name, &p.Phone, &p.DOB, &company, &trade,
		&externalSystem, &site, &createdAt, &updatedAt, &detached); err != nil {
		return nil, err
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	created, err := sharedPersistence.ParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	updated, err := sharedPersistence.ParseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	detachedAt, err := sharedPersistence.ParseNullTime(detached)
	if err != nil {
		return nil, err
	}
	p.CompanyName = sharedPersistence.StringPtr(company)
	p.TradeType = sharedPersistence.StringPtr(trade)

	return domain.RehydrateWorker(parsedID, p, externalSystem, sharedPersistence.StringPtr(site),
		created, updated, detachedAt), nil
}
