package persistence

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/worksync/internal/ledger/domain"
	sharedPersistence "github.com/felixgeelhaar/worksync/internal/shared/infrastructure/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSyncLogRepository implements domain.LogRepository using PostgreSQL.
type PostgresSyncLogRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSyncLogRepository creates a new PostgreSQL sync log repository.
func NewPostgresSyncLogRepository(pool *pgxpool.Pool) *PostgresSyncLogRepository {
	return &PostgresSyncLogRepository{pool: pool}
}

// Append stores a log entry.
func (r *PostgresSyncLogRepository) Append(ctx context.Context, log domain.SyncLog) error {
	_, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx,
		`INSERT INTO sync_logs (id, action, reason, site_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		log.ID, string(log.Action), log.Reason, log.SiteID, log.CreatedAt,
	)
	return err
}

// Recent returns the newest entries first.
func (r *PostgresSyncLogRepository) Recent(ctx context.Context, limit int) ([]domain.SyncLog, error) {
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, `
		SELECT id, action, reason, site_id, created_at
		FROM sync_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.SyncLog, 0, limit)
	for rows.Next() {
		log, err := scanPostgresSyncLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// LastByAction returns the newest entry for action.
func (r *PostgresSyncLogRepository) LastByAction(ctx context.Context, action domain.Action) (*domain.SyncLog, error) {
	row := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, `
		SELECT id, action, reason, site_id, created_at
		FROM sync_logs
		WHERE action = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, string(action))

	log, err := scanPostgresSyncLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func scanPostgresSyncLog(row pgx.Row) (domain.SyncLog, error) {
	var (
		log    domain.SyncLog
		action string
	)
	if err := row.Scan(&log.ID, &action, &log.Reason, &log.SiteID, &log.CreatedAt); err != nil {
		return domain.SyncLog{}, err
	}
	log.Action = domain.Action(action)
	log.CreatedAt = log.CreatedAt.UTC()
	return log, nil
}
