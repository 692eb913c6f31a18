// Package domain holds the shared vocabulary of the sync health view.
package domain

import (
	"context"
	"time"

	ledgerDomain "github.com/felixgeelhaar/worksync/internal/ledger/domain"
	workforceDomain "github.com/felixgeelhaar/worksync/internal/workforce/domain"
)

// FlagFASStatus is the reachability flag of the external system.
const FlagFASStatus = "fas:status"

// FASStatusDown is written to FlagFASStatus when a pull fails.
const FASStatusDown = "down"

// FlagSource reads short-lived status flags. A nil value means unset.
type FlagSource interface {
	Flag(ctx context.Context, key string) (*string, error)
}

// SyncLogView is a sync log entry as shown on the status page.
type SyncLogView struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason"`
	SiteID    *string   `json:"siteId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Snapshot is the computed health of synchronization.
type Snapshot struct {
	FASStatus       *string                   `json:"fasStatus"`
	LastFullSync    *time.Time                `json:"lastFullSync"`
	UserStats       workforceDomain.Stats     `json:"userStats"`
	SyncErrorCounts ledgerDomain.StatusCounts `json:"syncErrorCounts"`
	RecentSyncLogs  []SyncLogView             `json:"recentSyncLogs"`
}

// NewSyncLogView converts a ledger sync log.
func NewSyncLogView(l ledgerDomain.SyncLog) SyncLogView {
	return SyncLogView{
		ID:        l.ID.String(),
		Action:    string(l.Action),
		Reason:    l.Reason,
		SiteID:    l.SiteID,
		CreatedAt: l.CreatedAt,
	}
}
