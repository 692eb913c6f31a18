package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	sharedDomain "github.com/felixgeelhaar/worksync/internal/shared/domain"
	"github.com/google/uuid"
)

var (
	ErrSyncErrorNotFound = errors.New("sync error not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("invalid sync error status")
	ErrInvalidSyncType   = errors.New("invalid sync type")
	ErrDetailRequired    = errors.New("sync error detail is required")
	ErrEmptyErrorMessage = errors.New("sync error message cannot be empty")
)

// Status is the resolution state of a sync error.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusResolved Status = "RESOLVED"
	StatusIgnored  Status = "IGNORED"
)

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusResolved, StatusIgnored:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusIgnored
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

// SyncError is a ledger entry for a synchronization failure awaiting triage.
type SyncError struct {
	sharedDomain.BaseAggregateRoot
	detail       Detail
	errorCode    *string
	errorMessage string
	siteID       *string
	retryCount   int
	status       Status
	resolvedAt   *time.Time
}

// NewSyncError opens a ledger entry. Empty errorCode and siteID are stored
// as null.
func NewSyncError(detail Detail, errorCode, errorMessage, siteID string) (*SyncError, error) {
	if detail == nil {
		return nil, ErrDetailRequired
	}
	errorMessage = strings.TrimSpace(errorMessage)
	if errorMessage == "" {
		return nil, ErrEmptyErrorMessage
	}

	e := &SyncError{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		detail:            detail,
		errorCode:         optional(errorCode),
		errorMessage:      errorMessage,
		siteID:            optional(siteID),
		status:            StatusOpen,
	}
	e.AddDomainEvent(NewSyncErrorOpened(e))
	return e, nil
}

// RehydrateSyncError recreates a sync error from persisted state.
func RehydrateSyncError(
	id uuid.UUID,
	detail Detail,
	errorCode *string,
	errorMessage string,
	siteID *string,
	retryCount int,
	status Status,
	createdAt, updatedAt time.Time,
	resolvedAt *time.Time,
) (*SyncError, error) {
	if detail == nil {
		return nil, ErrDetailRequired
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, string(status))
	}
	if resolvedAt != nil {
		utc := resolvedAt.UTC()
		resolvedAt = &utc
	}
	return &SyncError{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		),
		detail:       detail,
		errorCode:    errorCode,
		errorMessage: errorMessage,
		siteID:       siteID,
		retryCount:   retryCount,
		status:       status,
		resolvedAt:   resolvedAt,
	}, nil
}

// Getters
func (e *SyncError) SyncType() SyncType     { return e.detail.SyncType() }
func (e *SyncError) Detail() Detail         { return e.detail }
func (e *SyncError) ErrorCode() *string     { return e.errorCode }
func (e *SyncError) ErrorMessage() string   { return e.errorMessage }
func (e *SyncError) SiteID() *string        { return e.siteID }
func (e *SyncError) RetryCount() int        { return e.retryCount }
func (e *SyncError) Status() Status         { return e.status }
func (e *SyncError) ResolvedAt() *time.Time { return e.resolvedAt }

// TransitionTo moves an open entry to a terminal status. Re-applying the
// current terminal status is a no-op and reports changed=false.
func (e *SyncError) TransitionTo(status Status) (changed bool, err error) {
	if !status.IsValid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidStatus, string(status))
	}
	if status == e.status && status.IsTerminal() {
		return false, nil
	}
	if e.status != StatusOpen || !status.IsTerminal() {
		return false, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, e.status, status)
	}

	from := e.status
	now := time.Now().UTC()
	e.status = status
	e.resolvedAt = &now
	e.Touch()
	e.AddDomainEvent(NewSyncErrorStatusChanged(e, from))
	return true, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
