package commands

import (
	"context"
	"log/slog"

	ledgerCommands "github.com/felixgeelhaar/worksync/internal/ledger/application/commands"
	ledgerDomain "github.com/felixgeelhaar/worksync/internal/ledger/domain"
	sharedApplication "github.com/felixgeelhaar/worksync/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/worksync/internal/shared/domain"
	"github.com/felixgeelhaar/worksync/internal/workforce/domain"
	"github.com/felixgeelhaar/worksync/pkg/observability"
)

// ReasonUserNotFound is reported when no attached entry matches.
const ReasonUserNotFound = "User not found"

// DeleteWorkerResult reports whether an entry was detached.
type DeleteWorkerResult struct {
	Deleted bool   `json:"deleted"`
	Reason  string `json:"reason,omitempty"`
}

// DeleteWorkerHandler detaches a worker from the directory.
type DeleteWorkerHandler struct {
	workerRepo domain.Repository
	uow        sharedApplication.UnitOfWork
	ledger     ledgerCommands.Ledger
	audit      sharedApplication.AuditSink
	logger     *slog.Logger
}

// NewDeleteWorkerHandler creates a new DeleteWorkerHandler.
func NewDeleteWorkerHandler(
	workerRepo domain.Repository,
	uow sharedApplication.UnitOfWork,
	ledger ledgerCommands.Ledger,
	audit sharedApplication.AuditSink,
	logger *slog.Logger,
) *DeleteWorkerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeleteWorkerHandler{
		workerRepo: workerRepo,
		uow:        uow,
		ledger:     ledger,
		audit:      audit,
		logger:     logger,
	}
}

// Handle detaches the attached entry for externalWorkerID. Deleting an
// absent or already detached entry reports deleted=false.
func (h *DeleteWorkerHandler) Handle(ctx context.Context, externalWorkerID string) (*DeleteWorkerResult, error) {
	var (
		detached *domain.Worker
		events   []sharedDomain.DomainEvent
	)
	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		worker, err := h.workerRepo.FindAttached(txCtx, externalWorkerID)
		if err != nil {
			return err
		}
		if worker == nil {
			return nil
		}
		if err := worker.Detach(); err != nil {
			return err
		}
		ok, err := h.workerRepo.Detach(txCtx, worker)
		if err != nil {
			return err
		}
		if ok {
			detached = worker
			events = worker.DomainEvents()
		}
		return nil
	})
	if err != nil {
		h.openError(ctx, externalWorkerID, err)
		return nil, err
	}
	if detached == nil {
		return &DeleteWorkerResult{Deleted: false, Reason: ReasonUserNotFound}, nil
	}

	siteID := ""
	if detached.SiteID() != nil {
		siteID = *detached.SiteID()
	}
	if err := h.ledger.AppendLog(ctx, ledgerDomain.ActionWorkerDelete, "externalWorkerId="+externalWorkerID, siteID); err != nil {
		h.logger.ErrorContext(ctx, "failed to append sync log", observability.ErrorKey, err.Error())
	}
	sharedApplication.Audit(ctx, h.audit, siteID, events...)

	h.logger.InfoContext(ctx, "worker detached",
		"external_worker_id", externalWorkerID,
		"worker_id", detached.ID(),
	)
	return &DeleteWorkerResult{Deleted: true}, nil
}

func (h *DeleteWorkerHandler) openError(ctx context.Context, externalWorkerID string, cause error) {
	if _, err := h.ledger.OpenError(ctx, ledgerCommands.OpenErrorCommand{
		Detail:       ledgerDomain.WorkerDeleteDetail{ExternalWorkerID: externalWorkerID},
		ErrorMessage: cause.Error(),
	}); err != nil {
		h.logger.ErrorContext(ctx, "failed to record sync error",
			observability.ErrorKey, err.Error(),
			"cause", cause.Error(),
		)
	}
}
