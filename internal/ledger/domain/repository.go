package domain

import (
	"context"

	"github.com/google/uuid"
)

// ErrorFilter narrows a sync error listing. Nil fields match everything.
type ErrorFilter struct {
	Status   *Status
	SyncType *SyncType
	Limit    int
	Offset   int
}

// StatusCounts holds the number of sync errors per status.
type StatusCounts struct {
	Open     int `json:"open"`
	Resolved int `json:"resolved"`
	Ignored  int `json:"ignored"`
}

// ErrorRepository persists sync errors.
type ErrorRepository interface {
	// Save inserts a new entry or updates an existing one.
	Save(ctx context.Context, e *SyncError) error

	// FindByID returns nil when no entry has the id.
	FindByID(ctx context.Context, id uuid.UUID) (*SyncError, error)

	// List returns one page of matching entries, most recent first, and
	// the total number of matches.
	List(ctx context.Context, filter ErrorFilter) ([]*SyncError, int, error)

	// IncrementRetry atomically bumps the retry count and returns the new
	// value, or ErrSyncErrorNotFound.
	IncrementRetry(ctx context.Context, id uuid.UUID) (int, error)

	// CountByStatus counts entries per status.
	CountByStatus(ctx context.Context) (StatusCounts, error)
}

// LogRepository persists the synchronization log.
type LogRepository interface {
	Append(ctx context.Context, log SyncLog) error

	// Recent returns up to limit entries, most recent first.
	Recent(ctx context.Context, limit int) ([]SyncLog, error)

	// LastByAction returns the newest entry for action, or nil.
	LastByAction(ctx context.Context, action Action) (*SyncLog, error)
}
