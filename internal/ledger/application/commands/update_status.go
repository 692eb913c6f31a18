package commands

import (
	"context"

	"github.com/felixgeelhaar/worksync/internal/ledger/domain"
	sharedApplication "github.com/felixgeelhaar/worksync/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/worksync/internal/shared/domain"
	"github.com/google/uuid"
)

// UpdateStatusCommand resolves or ignores a ledger entry.
type UpdateStatusCommand struct {
	ID     uuid.UUID
	Status string
}

// UpdateStatusHandler handles the UpdateStatusCommand.
type UpdateStatusHandler struct {
	errorRepo domain.ErrorRepository
	uow       sharedApplication.UnitOfWork
	audit     sharedApplication.AuditSink
}

// NewUpdateStatusHandler creates a new UpdateStatusHandler.
func NewUpdateStatusHandler(errorRepo domain.ErrorRepository, uow sharedApplication.UnitOfWork, audit sharedApplication.AuditSink) *UpdateStatusHandler {
	return &UpdateStatusHandler{
		errorRepo: errorRepo,
		uow:       uow,
		audit:     audit,
	}
}

// Handle executes the UpdateStatusCommand. Re-applying the current
// terminal status succeeds without writing.
func (h *UpdateStatusHandler) Handle(ctx context.Context, cmd UpdateStatusCommand) error {
	status, err := domain.ParseStatus(cmd.Status)
	if err != nil {
		return err
	}

	var (
		events []sharedDomain.DomainEvent
		siteID string
	)
	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		entry, err := h.errorRepo.FindByID(txCtx, cmd.ID)
		if err != nil {
			return err
		}
		if entry == nil {
			return domain.ErrSyncErrorNotFound
		}

		changed, err := entry.TransitionTo(status)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		if err := h.errorRepo.Save(txCtx, entry); err != nil {
			return err
		}

		events = entry.DomainEvents()
		if entry.SiteID() != nil {
			siteID = *entry.SiteID()
		}
		return nil
	})
	if err != nil {
		return err
	}

	sharedApplication.Audit(ctx, h.audit, siteID, events...)
	return nil
}
