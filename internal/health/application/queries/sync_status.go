package queries

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/worksync/internal/health/domain"
	ledgerDomain "github.com/felixgeelhaar/worksync/internal/ledger/domain"
	workforceDomain "github.com/felixgeelhaar/worksync/internal/workforce/domain"
	"github.com/felixgeelhaar/worksync/pkg/observability"
)

// DefaultRecentLogs is how many sync logs a snapshot carries by default.
const DefaultRecentLogs = 10

// StatsSource reports directory counts.
type StatsSource interface {
	Stats(ctx context.Context) (workforceDomain.Stats, error)
}

// CountSource reports ledger counts by status.
type CountSource interface {
	CountByStatus(ctx context.Context) (ledgerDomain.StatusCounts, error)
}

// LogSource reads the sync log.
type LogSource interface {
	Recent(ctx context.Context, limit int) ([]ledgerDomain.SyncLog, error)
	LastByAction(ctx context.Context, action ledgerDomain.Action) (*ledgerDomain.SyncLog, error)
}

// GetSyncStatusHandler computes a health snapshot. Every part is read
// independently; a failing source leaves its zero value.
type GetSyncStatusHandler struct {
	flags      domain.FlagSource
	stats      StatsSource
	counts     CountSource
	logs       LogSource
	recentLogs int
	logger     *slog.Logger
}

// NewGetSyncStatusHandler creates a new handler. A nil flag source reports
// the external system status as unknown.
func NewGetSyncStatusHandler(
	flags domain.FlagSource,
	stats StatsSource,
	counts CountSource,
	logs LogSource,
	recentLogs int,
	logger *slog.Logger,
) *GetSyncStatusHandler {
	if recentLogs <= 0 {
		recentLogs = DefaultRecentLogs
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GetSyncStatusHandler{
		flags:      flags,
		stats:      stats,
		counts:     counts,
		logs:       logs,
		recentLogs: recentLogs,
		logger:     logger,
	}
}

// Handle builds the snapshot.
func (h *GetSyncStatusHandler) Handle(ctx context.Context) *domain.Snapshot {
	ctx = observability.WithOperation(ctx, "sync_status")
	snap := &domain.Snapshot{RecentSyncLogs: []domain.SyncLogView{}}

	if h.flags != nil {
		status, err := h.flags.Flag(ctx, domain.FlagFASStatus)
		if err != nil {
			h.degraded(ctx, "fasStatus", err)
		} else {
			snap.FASStatus = status
		}
	}

	if last, err := h.logs.LastByAction(ctx, ledgerDomain.ActionFullSync); err != nil {
		h.degraded(ctx, "lastFullSync", err)
	} else if last != nil {
		at := last.CreatedAt.UTC()
		snap.LastFullSync = &at
	}

	if stats, err := h.stats.Stats(ctx); err != nil {
		h.degraded(ctx, "userStats", err)
	} else {
		snap.UserStats = stats
	}

	if counts, err := h.counts.CountByStatus(ctx); err != nil {
		h.degraded(ctx, "syncErrorCounts", err)
	} else {
		snap.SyncErrorCounts = counts
	}

	if recent, err := h.logs.Recent(ctx, h.recentLogs); err != nil {
		h.degraded(ctx, "recentSyncLogs", err)
	} else {
		for _, l := range recent {
			snap.RecentSyncLogs = append(snap.RecentSyncLogs, domain.NewSyncLogView(l))
		}
	}

	return snap
}

func (h *GetSyncStatusHandler) degraded(ctx context.Context, part string, err error) {
	h.logger.WarnContext(ctx, "sync status part unavailable",
		"part", part,
		observability.ErrorKey, err.Error(),
	)
}
