package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/worksync/internal/attendance/domain"
	ledgerCommands "github.com/felixgeelhaar/worksync/internal/ledger/application/commands"
	ledgerDomain "github.com/felixgeelhaar/worksync/internal/ledger/domain"
	sharedApplication "github.com/felixgeelhaar/worksync/internal/shared/application"
	"github.com/felixgeelhaar/worksync/pkg/observability"
	"github.com/google/uuid"
)

// IdentityResolver maps an external worker id to the internal user id of
// its attached directory entry.
type IdentityResolver interface {
	ResolveInternalID(ctx context.Context, externalWorkerID string) (*uuid.UUID, error)
}

// IngestCommand contains a batch of external attendance events.
type IngestCommand struct {
	Events []domain.ExternalEvent
	Source domain.Source
}

// EventResult is the outcome of one event.
type EventResult struct {
	ExternalEventID string         `json:"externalEventId"`
	Result          domain.Outcome `json:"result"`
	Error           string         `json:"error,omitempty"`
}

// IngestResult summarizes an ingestion batch. Results follow input order.
type IngestResult struct {
	Processed int           `json:"processed"`
	Inserted  int           `json:"inserted"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Results   []EventResult `json:"results"`
}

// IngestHandler resolves, deduplicates and persists attendance events.
type IngestHandler struct {
	repo     domain.Repository
	resolver IdentityResolver
	uow      sharedApplication.UnitOfWork
	ledger   ledgerCommands.Ledger
	audit    sharedApplication.AuditSink
	metrics  observability.Metrics
	logger   *slog.Logger
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(
	repo domain.Repository,
	resolver IdentityResolver,
	uow sharedApplication.UnitOfWork,
	ledger ledgerCommands.Ledger,
	audit sharedApplication.AuditSink,
	metrics observability.Metrics,
	logger *slog.Logger,
) *IngestHandler {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestHandler{
		repo:     repo,
		resolver: resolver,
		uow:      uow,
		ledger:   ledger,
		audit:    audit,
		metrics:  metrics,
		logger:   logger,
	}
}

type staged struct {
	index  int
	record *domain.Record
}

// Handle executes the IngestCommand. Per-event problems are reported in the
// result; only a failing ledger or log write is logged, never returned.
func (h *IngestHandler) Handle(ctx context.Context, cmd IngestCommand) (*IngestResult, error) {
	ctx = observability.WithOperation(ctx, "ingest_attendance")
	timer := observability.StartTimer("ingest_attendance").WithMetrics(h.metrics)

	source := cmd.Source
	if !source.IsValid() {
		source = domain.SourceFASPush
	}

	results := make([]EventResult, len(cmd.Events))
	var (
		candidates []staged
		unresolved []string
		resolveErr error
	)

	for i, event := range cmd.Events {
		results[i].ExternalEventID = event.ExternalEventID

		if event.Site() == "" {
			results[i].Result = domain.OutcomeMissingSite
			continue
		}

		internalID, err := h.resolver.ResolveInternalID(ctx, event.ExternalWorkerID)
		if err != nil {
			results[i].Result = domain.OutcomeFailed
			results[i].Error = err.Error()
			unresolved = append(unresolved, event.ExternalEventID)
			resolveErr = err
			continue
		}
		if internalID == nil {
			results[i].Result = domain.OutcomeNotFound
			continue
		}

		rec, err := domain.NewRecord(event, internalID, domain.ResultSuccess, source)
		if err != nil {
			results[i].Result = domain.OutcomeFailed
			results[i].Error = err.Error()
			continue
		}
		candidates = append(candidates, staged{index: i, record: rec})
	}

	if resolveErr != nil {
		h.openError(ctx, ledgerDomain.AttendanceIngestionDetail{EventIDs: unresolved}, resolveErr)
	}

	batch := h.skipExisting(ctx, candidates, results)
	h.writeBatch(ctx, batch, results)

	out := summarize(results)
	for _, r := range results {
		h.metrics.Counter(observability.MetricAttendanceEvents, 1, observability.T("outcome", string(r.Result)))
	}

	siteID := commonSite(cmd.Events)
	reason := fmt.Sprintf("processed=%d inserted=%d skipped=%d failed=%d",
		out.Processed, out.Inserted, out.Skipped, out.Failed)
	if err := h.ledger.AppendLog(ctx, ledgerDomain.ActionAttendanceIngest, reason, siteID); err != nil {
		h.logger.ErrorContext(ctx, "failed to append sync log", observability.ErrorKey, err.Error())
	}
	sharedApplication.Audit(ctx, h.audit, siteID,
		domain.NewBatchIngested(source, out.Processed, out.Inserted, out.Skipped, out.Failed))

	h.logger.InfoContext(ctx, "attendance ingested",
		"source", string(source),
		"processed", out.Processed,
		"inserted", out.Inserted,
		"skipped", out.Skipped,
		"failed", out.Failed,
		observability.DurationKey, timer.Stop(nil).Milliseconds(),
	)
	return out, nil
}

// skipExisting marks candidates whose dedup key is already stored, and
// returns the rest. A failing pre-check is ignored since the unique index
// still rejects duplicates.
func (h *IngestHandler) skipExisting(ctx context.Context, candidates []staged, results []EventResult) []staged {
	if len(candidates) == 0 {
		return nil
	}

	keys := make([]domain.DedupKey, len(candidates))
	for i, c := range candidates {
		keys[i] = c.record.DedupKey()
	}
	existing, err := h.repo.ExistingKeys(ctx, keys)
	if err != nil {
		h.logger.WarnContext(ctx, "dedup pre-check failed", observability.ErrorKey, err.Error())
		return candidates
	}

	batch := candidates[:0:0]
	for _, c := range candidates {
		if existing[c.record.DedupKey()] {
			results[c.index].Result = domain.OutcomeSkipped
			continue
		}
		batch = append(batch, c)
	}
	return batch
}

func (h *IngestHandler) writeBatch(ctx context.Context, batch []staged, results []EventResult) {
	if len(batch) == 0 {
		return
	}

	records := make([]*domain.Record, len(batch))
	for i, s := range batch {
		records[i] = s.record
	}

	var inserted []bool
	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		var err error
		inserted, err = h.repo.InsertBatch(txCtx, records)
		return err
	})
	if err != nil {
		eventIDs := make([]string, len(batch))
		for i, s := range batch {
			results[s.index].Result = domain.OutcomeFailed
			results[s.index].Error = err.Error()
			eventIDs[i] = s.record.ExternalEventID()
		}
		h.openError(ctx, ledgerDomain.AttendanceIngestionDetail{EventIDs: eventIDs, StagedCount: len(batch)}, err)
		return
	}

	for i, s := range batch {
		if i < len(inserted) && inserted[i] {
			results[s.index].Result = domain.OutcomeInserted
		} else {
			results[s.index].Result = domain.OutcomeSkipped
		}
	}
}

func (h *IngestHandler) openError(ctx context.Context, detail ledgerDomain.AttendanceIngestionDetail, cause error) {
	if _, err := h.ledger.OpenError(ctx, ledgerCommands.OpenErrorCommand{
		Detail:       detail,
		ErrorMessage: cause.Error(),
	}); err != nil {
		h.logger.ErrorContext(ctx, "failed to record sync error",
			observability.ErrorKey, err.Error(),
			"cause", cause.Error(),
		)
	}
}

func summarize(results []EventResult) *IngestResult {
	out := &IngestResult{Processed: len(results), Results: results}
	for _, r := range results {
		switch {
		case r.Result == domain.OutcomeInserted:
			out.Inserted++
		case r.Result == domain.OutcomeSkipped:
			out.Skipped++
		case r.Result.IsFailure():
			out.Failed++
		}
	}
	return out
}

// commonSite returns the site shared by every event, or "".
func commonSite(events []domain.ExternalEvent) string {
	site := ""
	for _, e := range events {
		s := e.Site()
		if s == "" {
			continue
		}
		if site != "" && s != site {
			return ""
		}
		site = s
	}
	return site
}
