package outbox

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/worksync/internal/shared/domain"
)

// Recorder writes audit events to the outbox. Failures are logged and
// swallowed so the audit trail never fails a sync operation.
type Recorder struct {
	repo   Repository
	logger *slog.Logger
}

// NewRecorder creates a Recorder backed by repo.
func NewRecorder(repo Repository, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{repo: repo, logger: logger}
}

// Record stores every event.
func (r *Recorder) Record(ctx context.Context, events ...domain.DomainEvent) {
	for _, event := range events {
		msg, err := NewMessage(event)
		if err != nil {
			r.logger.WarnContext(ctx, "failed to encode audit event",
				"routing_key", event.RoutingKey(),
				"error", err,
			)
			continue
		}
		if err := r.repo.Save(ctx, msg); err != nil {
			r.logger.WarnContext(ctx, "failed to store audit event",
				"routing_key", msg.RoutingKey,
				"event_id", msg.EventID,
				"error", err,
			)
		}
	}
}
