package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidAction = errors.New("invalid sync log action")

// Action labels a synchronization log entry.
type Action string

const (
	ActionAttendanceIngest Action = "ATTENDANCE_INGEST"
	ActionWorkerSync       Action = "WORKER_SYNC"
	ActionWorkerDelete     Action = "WORKER_DELETE"
	ActionFullSync         Action = "FULL_SYNC"
	ActionPullFailed       Action = "PULL_FAILED"
)

// IsValid checks if the action is known.
func (a Action) IsValid() bool {
	switch a {
	case ActionAttendanceIngest, ActionWorkerSync, ActionWorkerDelete, ActionFullSync, ActionPullFailed:
		return true
	default:
		return false
	}
}

// SyncLog is an append-only record of a synchronization run.
type SyncLog struct {
	ID        uuid.UUID
	Action    Action
	Reason    string
	SiteID    *string
	CreatedAt time.Time
}

// NewSyncLog creates a log entry stamped with the current time.
func NewSyncLog(action Action, reason, siteID string) (SyncLog, error) {
	if !action.IsValid() {
		return SyncLog{}, ErrInvalidAction
	}
	return SyncLog{
		ID:        uuid.New(),
		Action:    action,
		Reason:    strings.TrimSpace(reason),
		SiteID:    optional(siteID),
		CreatedAt: time.Now().UTC(),
	}, nil
}
