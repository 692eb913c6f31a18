package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/worksync/internal/ledger/domain"
	sharedApplication "github.com/felixgeelhaar/worksync/internal/shared/application"
	"github.com/felixgeelhaar/worksync/pkg/observability"
)

// OpenErrorCommand describes a failure to record in the ledger.
type OpenErrorCommand struct {
	Detail       domain.Detail
	ErrorCode    string
	ErrorMessage string
	SiteID       string
}

// Ledger is what the synchronization pipelines write to.
type Ledger interface {
	OpenError(ctx context.Context, cmd OpenErrorCommand) (*domain.SyncError, error)
	AppendLog(ctx context.Context, action domain.Action, reason, siteID string) error
}

// Recorder writes sync errors and sync log entries.
type Recorder struct {
	errorRepo domain.ErrorRepository
	logRepo   domain.LogRepository
	audit     sharedApplication.AuditSink
	metrics   observability.Metrics
	logger    *slog.Logger
}

// NewRecorder creates a new Recorder. A nil audit sink, metrics or logger
// falls back to a no-op.
func NewRecorder(
	errorRepo domain.ErrorRepository,
	logRepo domain.LogRepository,
	audit sharedApplication.AuditSink,
	metrics observability.Metrics,
	logger *slog.Logger,
) *Recorder {
	if audit == nil {
		audit = sharedApplication.NoopAuditSink{}
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		errorRepo: errorRepo,
		logRepo:   logRepo,
		audit:     audit,
		metrics:   metrics,
		logger:    logger,
	}
}

// OpenError stores a new OPEN ledger entry.
func (r *Recorder) OpenError(ctx context.Context, cmd OpenErrorCommand) (*domain.SyncError, error) {
	entry, err := domain.NewSyncError(cmd.Detail, cmd.ErrorCode, cmd.ErrorMessage, cmd.SiteID)
	if err != nil {
		return nil, err
	}
	if err := r.errorRepo.Save(ctx, entry); err != nil {
		return nil, fmt.Errorf("save sync error: %w", err)
	}

	r.metrics.Counter(observability.MetricSyncErrorsOpened, 1,
		observability.T("sync_type", string(entry.SyncType())))
	r.logger.WarnContext(ctx, "sync error opened",
		"sync_error_id", entry.ID(),
		"sync_type", entry.SyncType(),
		observability.SiteIDKey, cmd.SiteID,
		observability.ErrorKey, entry.ErrorMessage(),
	)

	sharedApplication.Audit(ctx, r.audit, cmd.SiteID, entry.DomainEvents()...)
	entry.ClearDomainEvents()
	return entry, nil
}

// AppendLog stores a sync log entry.
func (r *Recorder) AppendLog(ctx context.Context, action domain.Action, reason, siteID string) error {
	log, err := domain.NewSyncLog(action, reason, siteID)
	if err != nil {
		return err
	}
	if err := r.logRepo.Append(ctx, log); err != nil {
		return fmt.Errorf("append sync log: %w", err)
	}
	return nil
}
