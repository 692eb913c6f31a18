package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/worksync/internal/ledger/domain"
	sharedPersistence "github.com/felixgeelhaar/worksync/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSyncErrorColumns = `id, sync_type, detail, error_code, error_message, site_id,
	retry_count, status, created_at, updated_at, resolved_at`

// PostgresSyncErrorRepository implements domain.ErrorRepository using PostgreSQL.
type PostgresSyncErrorRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSyncErrorRepository creates a new PostgreSQL sync error repository.
func NewPostgresSyncErrorRepository(pool *pgxpool.Pool) *PostgresSyncErrorRepository {
	return &PostgresSyncErrorRepository{pool: pool}
}

// Save inserts or updates a sync error.
func (r *PostgresSyncErrorRepository) Save(ctx context.Context, e *domain.SyncError) error {
	detail, err := domain.EncodeDetail(e.Detail())
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sync_errors (
			id, sync_type, detail, error_code, error_message, site_id,
			retry_count, status, created_at, updated_at, resolved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			resolved_at = EXCLUDED.resolved_at
	`

	_, err = sharedPersistence.Executor(ctx, r.pool).Exec(ctx, query,
		e.ID(),
		string(e.SyncType()),
		detail,
		e.ErrorCode(),
		e.ErrorMessage(),
		e.SiteID(),
		e.RetryCount(),
		string(e.Status()),
		e.CreatedAt(),
		e.UpdatedAt(),
		e.ResolvedAt(),
	)
	return err
}

// FindByID retrieves a sync error by id. Inside a transaction the row is
// locked so concurrent status updates serialize.
func (r *PostgresSyncErrorRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.SyncError, error) {
	query := `SELECT ` + pgSyncErrorColumns + ` FROM sync_errors WHERE id = $1`
	if _, ok := sharedPersistence.TxInfoFromContext(ctx); ok {
		query += ` FOR UPDATE`
	}

	e, err := scanPostgresSyncError(sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// List returns a page of sync errors, most recent first.
func (r *PostgresSyncErrorRepository) List(ctx context.Context, filter domain.ErrorFilter) ([]*domain.SyncError, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.SyncType != nil {
		args = append(args, string(*filter.SyncType))
		conds = append(conds, fmt.Sprintf("sync_type = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	exec := sharedPersistence.Executor(ctx, r.pool)

	var total int
	if err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM sync_errors`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM sync_errors%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		pgSyncErrorColumns, where, len(args)+1, len(args)+2)
	rows, err := exec.Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*domain.SyncError
	for rows.Next() {
		e, err := scanPostgresSyncError(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// IncrementRetry bumps retry_count in one statement.
func (r *PostgresSyncErrorRepository) IncrementRetry(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, `
		UPDATE sync_errors
		SET retry_count = retry_count + 1, updated_at = $2
		WHERE id = $1
		RETURNING retry_count
	`, id, time.Now().UTC()).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrSyncErrorNotFound
	}
	return count, err
}

// CountByStatus counts sync errors per status.
func (r *PostgresSyncErrorRepository) CountByStatus(ctx context.Context) (domain.StatusCounts, error) {
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx,
		`SELECT status, COUNT(*) FROM sync_errors GROUP BY status`)
	if err != nil {
		return domain.StatusCounts{}, err
	}
	defer rows.Close()

	var counts domain.StatusCounts
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return domain.StatusCounts{}, err
		}
		addCount(&counts, domain.Status(status), n)
	}
	return counts, rows.Err()
}

func scanPostgresSyncError(row pgx.Row) (*domain.SyncError, error) {
	var (
		id                   uuid.UUID
		syncType, message    string
		status               string
		detail               []byte
		errorCode, siteID    *string
		retryCount           int
		createdAt, updatedAt time.Time
		resolvedAt           *time.Time
	)
	if err := row.Scan(&id, &syncType, &detail, &errorCode, &message, &siteID,
		&retryCount, &status, &createdAt, &updatedAt, &resolvedAt); err != nil {
		return nil, err
	}

	d, err := domain.DecodeDetail(domain.SyncType(syncType), detail)
	if err != nil {
		return nil, err
	}
	return domain.RehydrateSyncError(id, d, errorCode, message, siteID, retryCount,
		domain.Status(status), createdAt, updatedAt, resolvedAt)
}
