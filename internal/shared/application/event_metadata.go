package application

import (
	"context"

	"github.com/felixgeelhaar/worksync/internal/shared/domain"
	"github.com/felixgeelhaar/worksync/pkg/observability"
)

type metadataSetter interface {
	SetMetadata(metadata domain.EventMetadata)
}

// EventMetadataFromContext builds audit metadata from the request-scoped
// tracing IDs.
func EventMetadataFromContext(ctx context.Context, siteID string) domain.EventMetadata {
	return domain.EventMetadata{
		CorrelationID: observability.CorrelationIDFromContext(ctx),
		RequestID:     observability.RequestIDFromContext(ctx),
		SiteID:        siteID,
	}
}

// ApplyEventMetadata sets metadata on all events that support it.
func ApplyEventMetadata(events []domain.DomainEvent, metadata domain.EventMetadata) {
	for _, event := range events {
		if setter, ok := event.(metadataSetter); ok {
			setter.SetMetadata(metadata)
		}
	}
}

// AuditSink receives domain events for the audit log. Implementations must
// not fail the caller.
type AuditSink interface {
	Record(ctx context.Context, events ...domain.DomainEvent)
}

// NoopAuditSink discards events.
type NoopAuditSink struct{}

func (NoopAuditSink) Record(context.Context, ...domain.DomainEvent) {}

// Audit stamps events with request metadata and hands them to the sink.
func Audit(ctx context.Context, sink AuditSink, siteID string, events ...domain.DomainEvent) {
	if sink == nil || len(events) == 0 {
		return
	}
	ApplyEventMetadata(events, EventMetadataFromContext(ctx, siteID))
	sink.Record(ctx, events...)
}
