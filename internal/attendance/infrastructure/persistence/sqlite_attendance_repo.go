package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/felixgeelhaar/worksync/internal/attendance/domain"
	sharedPersistence "github.com/felixgeelhaar/worksync/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

const insertSQLiteRecord = `
	INSERT INTO attendance_records (
		id, internal_user_id, site_id, external_worker_id, checkin_at,
		result, source, external_event_id, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (external_worker_id, site_id, checkin_at) DO NOTHING
`

// SQLiteAttendanceRepository implements domain.Repository using SQLite.
type SQLiteAttendanceRepository struct {
	db *sql.DB
}

// NewSQLiteAttendanceRepository creates a new SQLite attendance repository.
func NewSQLiteAttendanceRepository(db *sql.DB) *SQLiteAttendanceRepository {
	return &SQLiteAttendanceRepository{db: db}
}

// ExistingKeys returns the keys that already have a stored record.
func (r *SQLiteAttendanceRepository) ExistingKeys(ctx context.Context, keys []domain.DedupKey) (map[domain.DedupKey]bool, error) {
	exec := sharedPersistence.SQLiteExecutor(ctx, r.db)
	found := make(map[domain.DedupKey]bool)
	for _, key := range keys {
		if found[key] {
			continue
		}
		var one int
		err := exec.QueryRowContext(ctx, `
			SELECT 1 FROM attendance_records
			WHERE external_worker_id = ? AND site_id = ? AND checkin_at = ?
		`, key.ExternalWorkerID, key.SiteID, sharedPersistence.FormatTime(key.CheckinAt)).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		found[key] = true
	}
	return found, nil
}

// InsertBatch writes records with one statement each. Callers scope the
// batch to a transaction through the unit of work.
func (r *SQLiteAttendanceRepository) InsertBatch(ctx context.Context, records []*domain.Record) ([]bool, error) {
	exec := sharedPersistence.SQLiteExecutor(ctx, r.db)
	inserted := make([]bool, len(records))
	for i, rec := range records {
		res, err := exec.ExecContext(ctx, insertSQLiteRecord,
			rec.ID().String(),
			nullUUID(rec.InternalUserID()),
			rec.SiteID(),
			rec.ExternalWorkerID(),
			sharedPersistence.FormatTime(rec.CheckinAt()),
			string(rec.Result()),
			string(rec.Source()),
			rec.ExternalEventID(),
			sharedPersistence.FormatTime(rec.CreatedAt()),
		)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		inserted[i] = n == 1
	}
	return inserted, nil
}

// FindByKey returns the record stored under key, or nil.
func (r *SQLiteAttendanceRepository) FindByKey(ctx context.Context, key domain.DedupKey) (*domain.Record, error) {
	row := sharedPersistence.SQLiteExecutor(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, internal_user_id, site_id, external_worker_id, checkin_at,
			result, source, external_event_id, created_at
		FROM attendance_records
		WHERE external_worker_id = ? AND site_id = ? AND checkin_at = ?
	`, key.ExternalWorkerID, key.SiteID, sharedPersistence.FormatTime(key.CheckinAt))

	var (
		id, siteID, workerID, checkin, result, source, eventID, created string
		userID                                                          sql.NullString
	)
	err := row.Scan(&id, &userID, &siteID, &workerID, &checkin, &result, &source, &eventID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	var internalID *uuid.UUID
	if userID.Valid {
		u, err := uuid.Parse(userID.String)
		if err != nil {
			return nil, err
		}
		internalID = &u
	}
	checkinAt, err := sharedPersistence.ParseTime(checkin)
	if err != nil {
		return nil, err
	}
	createdAt, err := sharedPersistence.ParseTime(created)
	if err != nil {
		return nil, err
	}
	return domain.RehydrateRecord(parsedID, internalID, siteID, workerID, checkinAt,
		domain.Result(result), domain.Source(source), eventID, createdAt), nil
}

func nullUUID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}
