package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingSite     = errors.New("attendance event has no site")
	ErrMissingWorkerID = errors.New("attendance event has no worker id")
	ErrMissingCheckin  = errors.New("attendance event has no check-in time")
)

// Result is the stored outcome of a check-in.
type Result string

const (
	ResultSuccess  Result = "SUCCESS"
	ResultNotFound Result = "NOT_FOUND"
)

// Source tags where a record came from.
type Source string

const (
	SourceFASPush Source = "FAS_PUSH"
	SourceFASPull Source = "FAS_PULL"
)

// IsValid checks if the source is known.
func (s Source) IsValid() bool {
	return s == SourceFASPush || s == SourceFASPull
}

// ExternalEvent is an attendance event as delivered by the external
// system.
type ExternalEvent struct {
	ExternalEventID  string
	ExternalWorkerID string
	CheckinAt        time.Time
	SiteID           *string
}

// Site returns the trimmed site id, or "" when absent.
func (e ExternalEvent) Site() string {
	if e.SiteID == nil {
		return ""
	}
	return strings.TrimSpace(*e.SiteID)
}

// DedupKey identifies a unique check-in.
type DedupKey struct {
	ExternalWorkerID string
	SiteID           string
	CheckinAt        time.Time
}

// Record is an immutable stored check-in.
type Record struct {
	id               uuid.UUID
	internalUserID   *uuid.UUID
	siteID           string
	externalWorkerID string
	checkinAt        time.Time
	result           Result
	source           Source
	externalEventID  string
	createdAt        time.Time
}

// NewRecord creates a record. The check-in time is normalized to UTC so the
// dedup key is the same regardless of the offset it was sent with.
func NewRecord(event ExternalEvent, internalUserID *uuid.UUID, result Result, source Source) (*Record, error) {
	site := event.Site()
	if site == "" {
		return nil, ErrMissingSite
	}
	workerID := strings.TrimSpace(event.ExternalWorkerID)
	if workerID == "" {
		return nil, ErrMissingWorkerID
	}
	if event.CheckinAt.IsZero() {
		return nil, ErrMissingCheckin
	}
	return &Record{
		id:               uuid.New(),
		internalUserID:   internalUserID,
		siteID:           site,
		externalWorkerID: workerID,
		checkinAt:        event.CheckinAt.UTC(),
		result:           result,
		source:           source,
		externalEventID:  event.ExternalEventID,
		createdAt:        time.Now().UTC(),
	}, nil
}

// RehydrateRecord recreates a record from persisted state.
func RehydrateRecord(
	id uuid.UUID,
	internalUserID *uuid.UUID,
	siteID, externalWorkerID string,
	checkinAt time.Time,
	result Result,
	source Source,
	externalEventID string,
	createdAt time.Time,
) *Record {
	return &Record{
		id:               id,
		internalUserID:   internalUserID,
		siteID:           siteID,
		externalWorkerID: externalWorkerID,
		checkinAt:        checkinAt.UTC(),
		result:           result,
		source:           source,
		externalEventID:  externalEventID,
		createdAt:        createdAt.UTC(),
	}
}

// Getters
func (r *Record) ID() uuid.UUID              { return r.id }
func (r *Record) InternalUserID() *uuid.UUID { return r.internalUserID }
func (r *Record) SiteID() string             { return r.siteID }
func (r *Record) ExternalWorkerID() string   { return r.externalWorkerID }
func (r *Record) CheckinAt() time.Time       { return r.checkinAt }
func (r *Record) Result() Result             { return r.result }
func (r *Record) Source() Source             { return r.source }
func (r *Record) ExternalEventID() string    { return r.externalEventID }
func (r *Record) CreatedAt() time.Time       { return r.createdAt }

// DedupKey returns the uniqueness key of the record.
func (r *Record) DedupKey() DedupKey {
	return DedupKey{ExternalWorkerID: r.externalWorkerID, SiteID: r.siteID, CheckinAt: r.checkinAt}
}
