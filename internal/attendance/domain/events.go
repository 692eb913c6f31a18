package domain

import (
	sharedDomain "github.com/felixgeelhaar/worksync/internal/shared/domain"
	"github.com/google/uuid"
)

const batchAggregateType = "AttendanceBatch"

// BatchIngested is emitted once per ingestion call.
type BatchIngested struct {
	sharedDomain.BaseEvent
	BatchID   uuid.UUID `json:"batch_id"`
	Source    string    `json:"source"`
	Processed int       `json:"processed"`
	Inserted  int       `json:"inserted"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
}

// NewBatchIngested creates a BatchIngested event.
func NewBatchIngested(source Source, processed, inserted, skipped, failed int) *BatchIngested {
	batchID := uuid.New()
	return &BatchIngested{
		BaseEvent: sharedDomain.NewBaseEvent(batchID, batchAggregateType, "attendance.batch.ingested"),
		BatchID:   batchID,
		Source:    string(source),
		Processed: processed,
		Inserted:  inserted,
		Skipped:   skipped,
		Failed:    failed,
	}
}
