package domain

import (
	sharedDomain "github.com/felixgeelhaar/worksync/internal/shared/domain"
	"github.com/google/uuid"
)

const aggregateType = "SyncError"

// SyncErrorOpened is emitted when a failure is recorded in the ledger.
type SyncErrorOpened struct {
	sharedDomain.BaseEvent
	SyncErrorID  uuid.UUID `json:"sync_error_id"`
	SyncType     string    `json:"sync_type"`
	ErrorMessage string    `json:"error_message"`
	SiteID       *string   `json:"site_id,omitempty"`
}

// NewSyncErrorOpened creates a SyncErrorOpened event.
func NewSyncErrorOpened(e *SyncError) *SyncErrorOpened {
	return &SyncErrorOpened{
		BaseEvent:    sharedDomain.NewBaseEvent(e.ID(), aggregateType, "ledger.sync_error.opened"),
		SyncErrorID:  e.ID(),
		SyncType:     string(e.SyncType()),
		ErrorMessage: e.ErrorMessage(),
		SiteID:       e.SiteID(),
	}
}

// SyncErrorStatusChanged is emitted when an operator resolves or ignores
// a ledger entry.
type SyncErrorStatusChanged struct {
	sharedDomain.BaseEvent
	SyncErrorID uuid.UUID `json:"sync_error_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
}

// NewSyncErrorStatusChanged creates a SyncErrorStatusChanged event.
func NewSyncErrorStatusChanged(e *SyncError, from Status) *SyncErrorStatusChanged {
	return &SyncErrorStatusChanged{
		BaseEvent:   sharedDomain.NewBaseEvent(e.ID(), aggregateType, "ledger.sync_error.status_changed"),
		SyncErrorID: e.ID(),
		From:        string(from),
		To:          string(e.Status()),
	}
}
