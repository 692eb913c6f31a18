package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/felixgeelhaar/worksync/internal/ledger/domain"
	sharedPersistence "github.com/felixgeelhaar/worksync/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

const sqliteSyncErrorColumns = `id, sync_type, detail, error_code, error_message, site_id,
	retry_count, status, created_at, updated_at, resolved_at`

// SQLiteSyncErrorRepository implements domain.ErrorRepository using SQLite.
type SQLiteSyncErrorRepository struct {
	db *sql.DB
}

// NewSQLiteSyncErrorRepository creates a new SQLite sync error repository.
func NewSQLiteSyncErrorRepository(db *sql.DB) *SQLiteSyncErrorRepository {
	return &SQLiteSyncErrorRepository{db: db}
}

// Save inserts or updates a sync error.
func (r *SQLiteSyncErrorRepository) Save(ctx context.Context, e *domain.SyncError) error {
	detail, err := domain.EncodeDetail(e.Detail())
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sync_errors (
			id, sync_type, detail, error_code, error_message, site_id,
			retry_count, status, created_at, updated_at, resolved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at,
			resolved_at = excluded.resolved_at
	`

	_, err = sharedPersistence.SQLiteExecutor(ctx, r.db).ExecContext(ctx, query,
		e.ID().String(),
		string(e.SyncType()),
		string(detail),
		sharedPersistence.NullString(e.ErrorCode()),
		e.ErrorMessage(),
		sharedPersistence.NullString(e.SiteID()),
		e.RetryCount(),
		string(e.Status()),
		sharedPersistence.FormatTime(e.CreatedAt()),
		sharedPersistence.FormatTime(e.UpdatedAt()),
		sharedPersistence.FormatNullTime(e.ResolvedAt()),
	)
	return err
}

// FindByID retrieves a sync error by id.
func (r *SQLiteSyncErrorRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.SyncError, error) {
	row := sharedPersistence.SQLiteExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+sqliteSyncErrorColumns+` FROM sync_errors WHERE id = ?`, id.String())

	e, err := scanSQLiteSyncError(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// List returns a page of sync errors, most recent first.
func (r *SQLiteSyncErrorRepository) List(ctx context.Context, filter domain.ErrorFilter) ([]*domain.SyncError, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.SyncType != nil {
		conds = append(conds, "sync_type = ?")
		args = append(args, string(*filter.SyncType))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	exec := sharedPersistence.SQLiteExecutor(ctx, r.db)

	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_errors`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + sqliteSyncErrorColumns + ` FROM sync_errors` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := exec.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*domain.SyncError
	for rows.Next() {
		e, err := scanSQLiteSyncError(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// IncrementRetry bumps retry_count in one statement.
func (r *SQLiteSyncErrorRepository) IncrementRetry(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := sharedPersistence.SQLiteExecutor(ctx, r.db).QueryRowContext(ctx, `
		UPDATE sync_errors
		SET retry_count = retry_count + 1, updated_at = ?
		WHERE id = ?
		RETURNING retry_count
	`, sharedPersistence.FormatTime(time.Now()), id.String()).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrSyncErrorNotFound
	}
	return count, err
}

// CountByStatus counts sync errors per status.
func (r *SQLiteSyncErrorRepository) CountByStatus(ctx context.Context) (domain.StatusCounts, error) {
	rows, err := sharedPersistence.SQLiteExecutor(ctx, r.db).QueryContext(ctx,
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSyncError(row rowScanner) (*domain.SyncError, error) {
	var (
		id, syncType, detail, message, status string
		createdAt, updatedAt                  string
		errorCode, siteID, resolvedAt         sql.NullString
		retryCount                            int
	)
	if err := row.Scan(&id, &syncType, &detail, &errorCode, &message, &siteID,
		&retryCount, &status, &createdAt, &updatedAt, &resolvedAt); err != nil {
		return nil, err
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	d, err := domain.DecodeDetail(domain.SyncType(syncType), []byte(detail))
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
	resolved, err := sharedPersistence.ParseNullTime(resolvedAt)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateSyncError(
		parsedID,
		d,
		sharedPersistence.StringPtr(errorCode),
		message,
		sharedPersistence.StringPtr(siteID),
		retryCount,
		domain.Status(status),
		created,
		updated,
		resolved,
	)
}

func addCount(counts *domain.StatusCounts, status domain.Status, n int) {
	switch status {
	case domain.StatusOpen:
		counts.Open = n
	case domain.StatusResolved:
		counts.Resolved = n
	case domain.StatusIgnored:
		counts.Ignored = n
	}
}
