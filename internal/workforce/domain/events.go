package domain

import (
	sharedDomain "github.com/felixgeelhaar/worksync/internal/shared/domain"
	"github.com/google/uuid"
)

const (
	aggregateType      = "Worker"
	batchAggregateType = "WorkerSyncBatch"
)

// WorkersSynced is emitted once per reconciliation batch.
type WorkersSynced struct {
	sharedDomain.BaseEvent
	BatchID uuid.UUID `json:"batch_id"`
	SiteID  string    `json:"site_id,omitempty"`
	Created int       `json:"created"`
	Updated int       `json:"updated"`
	Failed  int       `json:"failed"`
}

// NewWorkersSynced creates a WorkersSynced event.
func NewWorkersSynced(siteID string, created, updated, failed int) *WorkersSynced {
	batchID := uuid.New()
	return &WorkersSynced{
		BaseEvent: sharedDomain.NewBaseEvent(batchID, batchAggregateType, "workforce.workers.synced"),
		BatchID:   batchID,
		SiteID:    siteID,
		Created:   created,
		Updated:   updated,
		Failed:    failed,
	}
}

// WorkerDetached is emitted when a worker is removed from the directory.
type WorkerDetached struct {
	sharedDomain.BaseEvent
	WorkerID         uuid.UUID `json:"worker_id"`
	ExternalWorkerID string    `json:"external_worker_id"`
}

// NewWorkerDetached creates a WorkerDetached event.
func NewWorkerDetached(w *Worker) *WorkerDetached {
	return &WorkerDetached{
		BaseEvent:        sharedDomain.NewBaseEvent(w.ID(), aggregateType, "workforce.worker.detached"),
		WorkerID:         w.ID(),
		ExternalWorkerID: w.ExternalWorkerID(),
	}
}
