package commands

import (
	"context"
	"fmt"
	"log/slog"

	ledgerCommands "github.com/felixgeelhaar/worksync/internal/ledger/application/commands"
	ledgerDomain "github.com/felixgeelhaar/worksync/internal/ledger/domain"
	sharedApplication "github.com/felixgeelhaar/worksync/internal/shared/application"
	"github.com/felixgeelhaar/worksync/internal/workforce/domain"
	"github.com/felixgeelhaar/worksync/pkg/observability"
)

// unknownWorkerID labels errors for payloads without an external id.
const unknownWorkerID = "unknown"

// WorkerPayload is one externally-sourced worker record.
type WorkerPayload struct {
	ExternalWorkerID string
	Name             string
	Phone            string
	DOB              string
	CompanyName      *string
	TradeType        *string
}

// SyncWorkersCommand contains a batch of worker payloads for a site.
type SyncWorkersCommand struct {
	SiteID  string
	Workers []WorkerPayload
}

// WorkerError reports why one payload failed.
type WorkerError struct {
	ExternalWorkerID string `json:"externalWorkerId"`
	Error            string `json:"error"`
}

// SyncWorkersResult summarizes a reconciliation batch.
type SyncWorkersResult struct {
	Created int           `json:"created"`
	Updated int           `json:"updated"`
	Failed  int           `json:"failed"`
	Errors  []WorkerError `json:"errors"`
}

// SyncWorkersHandler reconciles worker payloads into the directory.
type SyncWorkersHandler struct {
	workerRepo domain.Repository
	uow        sharedApplication.UnitOfWork
	ledger     ledgerCommands.Ledger
	audit      sharedApplication.AuditSink
	metrics    observability.Metrics
	logger     *slog.Logger
}

// NewSyncWorkersHandler creates a new SyncWorkersHandler.
func NewSyncWorkersHandler(
	workerRepo domain.Repository,
	uow sharedApplication.UnitOfWork,
	ledger ledgerCommands.Ledger,
	audit sharedApplication.AuditSink,
	metrics observability.Metrics,
	logger *slog.Logger,
) *SyncWorkersHandler {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncWorkersHandler{
		workerRepo: workerRepo,
		uow:        uow,
		ledger:     ledger,
		audit:      audit,
		metrics:    metrics,
		logger:     logger,
	}
}

// Handle executes the SyncWorkersCommand. Each payload commits on its
// own; a failing payload is reported and never affects the others.
func (h *SyncWorkersHandler) Handle(ctx context.Context, cmd SyncWorkersCommand) (*SyncWorkersResult, error) {
	ctx = observability.WithOperation(ctx, "sync_workers")
	timer := observability.StartTimer("sync_workers").WithMetrics(h.metrics)

	result := &SyncWorkersResult{Errors: []WorkerError{}}
	for _, payload := range cmd.Workers {
		outcome := h.syncOne(ctx, cmd.SiteID, payload, result)
		h.metrics.Counter(observability.MetricWorkerPayloads, 1, observability.T("outcome", outcome))
	}

	reason := fmt.Sprintf("created=%d updated=%d failed=%d", result.Created, result.Updated, result.Failed)
	if err := h.ledger.AppendLog(ctx, ledgerDomain.ActionWorkerSync, reason, cmd.SiteID); err != nil {
		h.logger.ErrorContext(ctx, "failed to append sync log", observability.ErrorKey, err.Error())
	}
	sharedApplication.Audit(ctx, h.audit, cmd.SiteID,
		domain.NewWorkersSynced(cmd.SiteID, result.Created, result.Updated, result.Failed))

	h.logger.InfoContext(ctx, "workers synced",
		observability.SiteIDKey, cmd.SiteID,
		"created", result.Created,
		"updated", result.Updated,
		"failed", result.Failed,
		observability.DurationKey, timer.Stop(nil).Milliseconds(),
	)
	return result, nil
}

func (h *SyncWorkersHandler) syncOne(ctx context.Context, siteID string, payload WorkerPayload, result *SyncWorkersResult) string {
	worker, err := domain.NewWorker(domain.Profile{
		ExternalWorkerID: payload.ExternalWorkerID,
		Name:             payload.Name,
		Phone:            payload.Phone,
		DOB:              payload.DOB,
		CompanyName:      payload.CompanyName,
		TradeType:        payload.TradeType,
	}, siteID)
	if err != nil {
		id := payload.ExternalWorkerID
		if id == "" {
			id = unknownWorkerID
		}
		result.Failed++
		result.Errors = append(result.Errors, WorkerError{ExternalWorkerID: id, Error: err.Error()})
		return "invalid"
	}

	var created bool
	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		var err error
		_, created, err = h.workerRepo.Upsert(txCtx, worker)
		return err
	})
	if err != nil {
		result.Failed++
		result.Errors = append(result.Errors, WorkerError{ExternalWorkerID: worker.ExternalWorkerID(), Error: err.Error()})
		h.openError(ctx, siteID, ledgerDomain.WorkerSyncDetail{ExternalWorkerID: worker.ExternalWorkerID()}, err)
		return "failed"
	}

	if created {
		result.Created++
		return "created"
	}
	result.Updated++
	return "updated"
}

func (h *SyncWorkersHandler) openError(ctx context.Context, siteID string, detail ledgerDomain.Detail, cause error) {
	if _, err := h.ledger.OpenError(ctx, ledgerCommands.OpenErrorCommand{
		Detail:       detail,
		ErrorMessage: cause.Error(),
		SiteID:       siteID,
	}); err != nil {
		h.logger.ErrorContext(ctx, "failed to record sync error",
			observability.ErrorKey, err.Error(),
			"cause", cause.Error(),
		)
	}
}
