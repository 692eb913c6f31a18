package domain

import (
	"encoding/json"
	"fmt"
)

// SyncType identifies the subsystem that raised a sync error.
type SyncType string

const (
	SyncTypeAttendanceIngestion SyncType = "ATTENDANCE_INGESTION"
	SyncTypeWorkerSync          SyncType = "WORKER_SYNC"
	SyncTypeWorkerDelete        SyncType = "WORKER_DELETE"
	SyncTypeExternalPull        SyncType = "EXTERNAL_PULL"
)

// IsValid checks if the sync type is known.
func (t SyncType) IsValid() bool {
	switch t {
	case SyncTypeAttendanceIngestion, SyncTypeWorkerSync, SyncTypeWorkerDelete, SyncTypeExternalPull:
		return true
	default:
		return false
	}
}

// ParseSyncType validates a sync type string.
func ParseSyncType(s string) (SyncType, error) {
	t := SyncType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSyncType, s)
	}
	return t, nil
}

// Detail is the structured payload of a sync error. The set of
// implementations is closed; each one maps to exactly one SyncType.
type Detail interface {
	SyncType() SyncType
	detail()
}

// AttendanceIngestionDetail describes a failed attendance batch write.
type AttendanceIngestionDetail struct {
	EventIDs    []string `json:"eventIds"`
	StagedCount int      `json:"stagedCount"`
}

func (AttendanceIngestionDetail) SyncType() SyncType { return SyncTypeAttendanceIngestion }
func (AttendanceIngestionDetail) detail()            {}

// WorkerSyncDetail describes a failed worker upsert.
type WorkerSyncDetail struct {
	ExternalWorkerID string `json:"externalWorkerId"`
}

func (WorkerSyncDetail) SyncType() SyncType { return SyncTypeWorkerSync }
func (WorkerSyncDetail) detail()            {}

// WorkerDeleteDetail describes a failed worker detach.
type WorkerDeleteDetail struct {
	ExternalWorkerID string `json:"externalWorkerId"`
}

func (WorkerDeleteDetail) SyncType() SyncType { return SyncTypeWorkerDelete }
func (WorkerDeleteDetail) detail()            {}

// ExternalPullDetail describes a failed call to the external system.
type ExternalPullDetail struct {
	Operation  string `json:"operation"`
	StatusCode *int   `json:"statusCode,omitempty"`
}

func (ExternalPullDetail) SyncType() SyncType { return SyncTypeExternalPull }
func (ExternalPullDetail) detail()            {}

// EncodeDetail serializes a detail for storage.
func EncodeDetail(d Detail) ([]byte, error) {
	if d == nil {
		return nil, ErrDetailRequired
	}
	return json.Marshal(d)
}

// DecodeDetail restores the detail variant for t from its JSON form.
func DecodeDetail(t SyncType, raw []byte) (Detail, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	switch t {
	case SyncTypeAttendanceIngestion:
		var d AttendanceIngestionDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode %s detail: %w", t, err)
		}
		return d, nil
	case SyncTypeWorkerSync:
		var d WorkerSyncDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode %s detail: %w", t, err)
		}
		return d, nil
	case SyncTypeWorkerDelete:
		var d WorkerDeleteDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode %s detail: %w", t, err)
		}
		return d, nil
	case SyncTypeExternalPull:
		var d ExternalPullDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode %s detail: %w", t, err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSyncType, string(t))
	}
}
