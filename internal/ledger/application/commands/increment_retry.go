package commands

import (
	"context"

	"github.com/felixgeelhaar/worksync/internal/ledger/domain"
	"github.com/google/uuid"
)

// IncrementRetryHandler records an external retry attempt against a
// ledger entry. The ledger itself never retries.
type IncrementRetryHandler struct {
	errorRepo domain.ErrorRepository
}

// NewIncrementRetryHandler creates a new IncrementRetryHandler.
func NewIncrementRetryHandler(errorRepo domain.ErrorRepository) *IncrementRetryHandler {
	return &IncrementRetryHandler{errorRepo: errorRepo}
}

// Handle returns the new retry count.
func (h *IncrementRetryHandler) Handle(ctx context.Context, id uuid.UUID) (int, error) {
	return h.errorRepo.IncrementRetry(ctx, id)
}
