package outbox

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/worksync/internal/shared/infrastructure/persistence"
)

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite outbox repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save stores a new outbox message.
func (r *SQLiteRepository) Save(ctx context.Context, msg *Message) error {
	query := `
		INSERT INTO outbox (
			event_id, aggregate_type, aggregate_id, event_type, routing_key,
			payload, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING
	`

	metadata := string(msg.Metadata)
	if metadata == "" {
		metadata = "{}"
	}

	result, err := persistence.SQLiteExecutor(ctx, r.db).ExecContext(ctx, query,
		msg.EventID.String(),
		msg.AggregateType,
		msg.AggregateID.String(),
		msg.EventType,
		msg.RoutingKey,
		string(msg.Payload),
		metadata,
		persistence.FormatTime(msg.CreatedAt),
	)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return nil
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	msg.ID = id
	return nil
}

// GetUnpublished retrieves unpublished messages ordered by creation time.
func (r *SQLiteRepository) GetUnpublished(ctx context.Context, limit int) ([]*Message, error) {
	query := `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, routing_key,
		       payload, metadata, created_at, published_at, next_retry_at, retry_count,
		       last_error, dead_lettered_at, dead_letter_reason
		FROM outbox
		WHERE published_at IS NULL
		  AND dead_lettered_at IS NULL
		  AND (next_retry_at IS NULL OR next_retry_at <= ?)
		ORDER BY created_at, id
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, persistence.FormatTime(time.Now()), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		msg, err := scanSQLiteMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func scanSQLiteMessage(rows *sql.Rows) (*Message, error) {
	var (
		msg                                    Message
		eventID, aggregateID, createdAt        string
		payload, metadata                      string
		publishedAt, nextRetryAt, deadLetterAt sql.NullString
		lastError, deadReason                  sql.NullString
	)
	if err := rows.Scan(
		&msg.ID, &eventID, &msg.AggregateType, &aggregateID, &msg.EventType, &msg.RoutingKey,
		&payload, &metadata, &createdAt, &publishedAt, &nextRetryAt, &msg.RetryCount,
		&lastError, &deadLetterAt, &deadReason,
	); err != nil {
		return nil, err
	}

	var err error
	if msg.EventID, err = uuid.Parse(eventID); err != nil {
		return nil, err
	}
	if msg.AggregateID, err = uuid.Parse(aggregateID); err != nil {
		return nil, err
	}
	if msg.CreatedAt, err = persistence.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if msg.PublishedAt, err = persistence.ParseNullTime(publishedAt); err != nil {
		return nil, err
	}
	if msg.NextRetryAt, err = persistence.ParseNullTime(nextRetryAt); err != nil {
		return nil, err
	}
	if msg.DeadLetteredAt, err = persistence.ParseNullTime(deadLetterAt); err != nil {
		return nil, err
	}
	msg.Payload = []byte(payload)
	msg.Metadata = []byte(metadata)
	msg.LastError = persistence.StringPtr(lastError)
	msg.DeadLetterReason = persistence.StringPtr(deadReason)
	return &msg, nil
}

// MarkPublished marks a message as successfully published.
func (r *SQLiteRepository) MarkPublished(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox SET published_at = ? WHERE id = ?`,
		persistence.FormatTime(time.Now()), id)
	return err
}

// MarkFailed records a publish failure with error message.
func (r *SQLiteRepository) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox
		SET retry_count = retry_count + 1, last_error = ?, next_retry_at = ?
		WHERE id = ?
	`, errMsg, persistence.FormatTime(nextRetryAt), id)
	return err
}

// MarkDead marks a message as dead-lettered.
func (r *SQLiteRepository) MarkDead(ctx context.Context, id int64, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox
		SET retry_count = retry_count + 1, dead_lettered_at = ?, dead_letter_reason = ?
		WHERE id = ?
	`, persistence.FormatTime(time.Now()), reason, id)
	return err
}

// DeleteOld removes successfully published messages older than the retention period.
func (r *SQLiteRepository) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM outbox WHERE published_at IS NOT NULL AND published_at < ?`,
		persistence.FormatTime(cutoff))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
