package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/felixgeelhaar/worksync/internal/ledger/domain"
	sharedPersistence "github.com/felixgeelhaar/worksync/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

// SQLiteSyncLogRepository implements domain.LogRepository using SQLite.
type SQLiteSyncLogRepository struct {
	db *sql.DB
}

// NewSQLiteSyncLogRepository creates a new SQLite sync log repository.
func NewSQLiteSyncLogRepository(db *sql.DB) *SQLiteSyncLogRepository {
	return &SQLiteSyncLogRepository{db: db}
}

// Append stores a log entry.
func (r *SQLiteSyncLogRepository) Append(ctx context.Context, log domain.SyncLog) error {
	_, err := sharedPersistence.SQLiteExecutor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO sync_logs (id, action, reason, site_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		log.ID.String(),
		string(log.Action),
		log.Reason,
		sharedPersistence.NullString(log.SiteID),
		sharedPersistence.FormatTime(log.CreatedAt),
	)
	return err
}

// Recent returns the newest entries first.
func (r *SQLiteSyncLogRepository) Recent(ctx context.Context, limit int) ([]domain.SyncLog, error) {
	rows, err := sharedPersistence.SQLiteExecutor(ctx, r.db).QueryContext(ctx, `
		SELECT id, action, reason, site_id, created_at
		FROM sync_logs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.SyncLog, 0, limit)
	for rows.Next() {
		log, err := scanSQLiteSyncLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// LastByAction returns the newest entry for action.
func (r *SQLiteSyncLogRepository) LastByAction(ctx context.Context, action domain.Action) (*domain.SyncLog, error) {
	row := sharedPersistence.SQLiteExecutor(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, action, reason, site_id, created_at
		FROM sync_logs
		WHERE action = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, string(action))

	log, err := scanSQLiteSyncLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func scanSQLiteSyncLog(row rowScanner) (domain.SyncLog, error) {
	var (
		id, action, reason, createdAt string
		siteID                        sql.NullString
	)
	if err := row.Scan(&id, &action, &reason, &siteID, &createdAt); err != nil {
		return domain.SyncLog{}, err
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return domain.SyncLog{}, err
	}
	created, err := sharedPersistence.ParseTime(createdAt)
	if err != nil {
		return domain.SyncLog{}, err
	}
	return domain.SyncLog{
		ID:        parsedID,
		Action:    domain.Action(action),
		Reason:    reason,
		SiteID:    sharedPersistence.StringPtr(siteID),
		CreatedAt: created,
	}, nil
}
