package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/worksync/internal/attendance/domain"
	sharedPersistence "github.com/felixgeelhaar/worksync/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const insertPostgresRecord = `
	INSERT INTO attendance_records (
		id, internal_user_id, site_id, external_worker_id, checkin_at,
		result, source, external_event_id, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (external_worker_id, site_id, checkin_at) DO NOTHING
`

// PostgresAttendanceRepository implements domain.Repository using PostgreSQL.
type PostgresAttendanceRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAttendanceRepository creates a new PostgreSQL attendance repository.
func NewPostgresAttendanceRepository(pool *pgxpool.Pool) *PostgresAttendanceRepository {
	return &PostgresAttendanceRepository{pool: pool}
}

// ExistingKeys returns the keys that already have a stored record.
func (r *PostgresAttendanceRepository) ExistingKeys(ctx context.Context, keys []domain.DedupKey) (map[domain.DedupKey]bool, error) {
	found := make(map[domain.DedupKey]bool)
	if len(keys) == 0 {
		return found, nil
	}

	workerIDs := make([]string, len(keys))
	siteIDs := make([]string, len(keys))
	checkins := make([]time.Time, len(keys))
	for i, k := range keys {
		workerIDs[i] = k.ExternalWorkerID
		siteIDs[i] = k.SiteID
		checkins[i] = k.CheckinAt.UTC()
	}

	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, `
		SELECT a.external_worker_id, a.site_id, a.checkin_at
		FROM attendance_records a
		JOIN UNNEST($1::text[], $2::text[], $3::timestamptz[]) AS k(worker_id, site_id, checkin_at)
			ON a.external_worker_id = k.worker_id
			AND a.site_id = k.site_id
			AND a.checkin_at = k.checkin_at
	`, workerIDs, siteIDs, checkins)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var key domain.DedupKey
		if err := rows.Scan(&key.ExternalWorkerID, &key.SiteID, &key.CheckinAt); err != nil {
			return nil, err
		}
		key.CheckinAt = key.CheckinAt.UTC()
		found[key] = true
	}
	return found, rows.Err()
}

// InsertBatch queues every insert in one pgx batch. Callers scope the batch
// to a transaction through the unit of work.
func (r *PostgresAttendanceRepository) InsertBatch(ctx context.Context, records []*domain.Record) ([]bool, error) {
	inserted := make([]bool, len(records))
	if len(records) == 0 {
		return inserted, nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(insertPostgresRecord,
			rec.ID(),
			rec.InternalUserID(),
			rec.SiteID(),
			rec.ExternalWorkerID(),
			rec.CheckinAt(),
			string(rec.Result()),
			string(rec.Source()),
			rec.ExternalEventID(),
			rec.CreatedAt(),
		)
	}

	results := r.sendBatch(ctx, batch)
	for i := range records {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return nil, err
		}
		inserted[i] = tag.RowsAffected() == 1
	}
	return inserted, results.Close()
}

// FindByKey returns the record stored under key, or nil.
func (r *PostgresAttendanceRepository) FindByKey(ctx context.Context, key domain.DedupKey) (*domain.Record, error) {
	row := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, `
		SELECT id, internal_user_id, site_id, external_worker_id, checkin_at,
			result, source, external_event_id, created_at
		FROM attendance_records
		WHERE external_worker_id = $1 AND site_id = $2 AND checkin_at = $3
	`, key.ExternalWorkerID, key.SiteID, key.CheckinAt.UTC())

	var (
		id                                        uuid.UUID
		internalID                                *uuid.UUID
		siteID, workerID, result, source, eventID string
		checkinAt, createdAt                      time.Time
	)
	err := row.Scan(&id, &internalID, &siteID, &workerID, &checkinAt, &result, &source, &eventID, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return domain.RehydrateRecord(id, internalID, siteID, workerID, checkinAt,
		domain.Result(result), domain.Source(source), eventID, createdAt), nil
}

func (r *PostgresAttendanceRepository) sendBatch(ctx context.Context, batch *pgx.Batch) pgx.BatchResults {
	if info, ok := sharedPersistence.TxInfoFromContext(ctx); ok {
		return info.Tx.SendBatch(ctx, batch)
	}
	return r.pool.SendBatch(ctx, batch)
}
