package persistence

import (
	"context"
	"errors"
	"time"

	sharedPersistence "github.com/felixgeelhaar/worksync/internal/shared/infrastructure/persistence"
	"github.com/felixgeelhaar/worksync/internal/workforce/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresWorkerRepository implements domain.Repository using PostgreSQL.
type PostgresWorkerRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresWorkerRepository creates a new PostgreSQL worker repository.
func NewPostgresWorkerRepository(pool *pgxpool.Pool) *PostgresWorkerRepository {
	return &PostgresWorkerRepository{pool: pool}
}

// FindAttached retrieves the attached entry for an external id.
func (r *PostgresWorkerRepository) FindAttached(ctx context.Context, externalWorkerID string) (*domain.Worker, error) {
	row := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+workerColumns+` FROM workers WHERE external_worker_id = $1 AND detached_at IS NULL`,
		externalWorkerID)

	w, err := scanPostgresWorker(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return w, err
}

// Upsert inserts or updates on the attached-entry unique index in one
// statement, so concurrent syncs of one id converge on the last write.
func (r *PostgresWorkerRepository) Upsert(ctx context.Context, w *domain.Worker) (uuid.UUID, bool, error) {
	query := `
		INSERT INTO workers (
			id, external_worker_id, name, phone, dob, company_name, trade_type,
			external_system, site_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (external_worker_id) WHERE detached_at IS NULL DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			dob = EXCLUDED.dob,
			company_name = EXCLUDED.company_name,
			trade_type = EXCLUDED.trade_type,
			site_id = COALESCE(EXCLUDED.site_id, workers.site_id),
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	var id uuid.UUID
	err := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, query,
		w.ID(),
		w.ExternalWorkerID(),
		w.Name(),
		w.Phone(),
		w.DOB(),
		w.CompanyName(),
		w.TradeType(),
		w.ExternalSystem(),
		w.SiteID(),
		w.CreatedAt(),
		w.UpdatedAt(),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, id == w.ID(), nil
}

// Detach marks the entry detached if it still is attached.
func (r *PostgresWorkerRepository) Detach(ctx context.Context, w *domain.Worker) (bool, error) {
	if w.DetachedAt() == nil {
		return false, errNotDetached
	}
	tag, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx,
		`UPDATE workers SET detached_at = $1, updated_at = $2 WHERE id = $3 AND detached_at IS NULL`,
		*w.DetachedAt(), w.UpdatedAt(), w.ID(),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ResolveInternalID returns the internal id of the attached entry.
func (r *PostgresWorkerRepository) ResolveInternalID(ctx context.Context, externalWorkerID string) (*uuid.UUID, error) {
	var id uuid.UUID
	err := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx,
		`SELECT id FROM workers WHERE external_worker_id = $1 AND detached_at IS NULL`,
		externalWorkerID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Stats summarizes attached entries.
func (r *PostgresWorkerRepository) Stats(ctx context.Context) (domain.Stats, error) {
	var s domain.Stats
	err := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, statsQuery).
		Scan(&s.Total, &s.Linked, &s.MissingPhone)
	return s, err
}

func scanPostgresWorker(row pgx.Row) (*domain.Worker, error) {
	var (
		id                   uuid.UUID
		p                    domain.Profile
		externalSystem       string
		siteID               *string
		createdAt, updatedAt time.Time
		detachedAt           *time.Time
	)
	if err := row.Scan(&id, &p.ExternalWorkerID, &p.Name, &p.Phone, &p.DOB, &p.CompanyName, &p.TradeType,
		&externalSystem, &siteID, &createdAt, &updatedAt, &detachedAt); err != nil {
		return nil, err
	}
	return domain.RehydrateWorker(id, p, externalSystem, siteID, createdAt, updatedAt, detachedAt), nil
}
