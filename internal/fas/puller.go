package fas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	attendanceCommands "github.com/felixgeelhaar/worksync/internal/attendance/application/commands"
	attendanceDomain "github.com/felixgeelhaar/worksync/internal/attendance/domain"
	healthDomain "github.com/felixgeelhaar/worksync/internal/health/domain"
	ledgerCommands "github.com/felixgeelhaar/worksync/internal/ledger/application/commands"
	ledgerDomain "github.com/felixgeelhaar/worksync/internal/ledger/domain"
	workforceCommands "github.com/felixgeelhaar/worksync/internal/workforce/application/commands"
	"github.com/felixgeelhaar/worksync/pkg/observability"
)

// ErrNoSites is returned when Pull is called without sites.
var ErrNoSites = errors.New("no sites to pull")

// Source fetches data from the external system.
type Source interface {
	FetchWorkers(ctx context.Context, siteID string) ([]Worker, error)
	FetchAttendance(ctx context.Context, siteID string, since time.Time) ([]AttendanceEvent, error)
}

// WorkerSyncer reconciles worker payloads.
type WorkerSyncer interface {
	Handle(ctx context.Context, cmd workforceCommands.SyncWorkersCommand) (*workforceCommands.SyncWorkersResult, error)
}

// AttendanceIngester ingests attendance events.
type AttendanceIngester interface {
	Handle(ctx context.Context, cmd attendanceCommands.IngestCommand) (*attendanceCommands.IngestResult, error)
}

// FlagWriter sets and clears reachability flags.
type FlagWriter interface {
	SetFlag(ctx context.Context, key, value string) error
	ClearFlag(ctx context.Context, key string) error
}

// LastSyncSource finds the previous successful full sync.
type LastSyncSource interface {
	LastByAction(ctx context.Context, action ledgerDomain.Action) (*ledgerDomain.SyncLog, error)
}

// SiteResult is the outcome of pulling one site.
type SiteResult struct {
	SiteID     string                               `json:"siteId"`
	Workers    *workforceCommands.SyncWorkersResult `json:"workers,omitempty"`
	Attendance *attendanceCommands.IngestResult     `json:"attendance,omitempty"`
	Error      string                               `json:"error,omitempty"`
}

// PullResult summarizes a pull over several sites.
type PullResult struct {
	Sites  []SiteResult `json:"sites"`
	Failed int          `json:"failed"`
}

// Puller feeds external workers and attendance through the reconciler and
// the ingestion pipeline.
type Puller struct {
	source     Source
	workers    WorkerSyncer
	attendance AttendanceIngester
	flags      FlagWriter
	ledger     ledgerCommands.Ledger
	lastSync   LastSyncSource
	logger     *slog.Logger
}

// NewPuller creates a new Puller.
func NewPuller(
	source Source,
	workers WorkerSyncer,
	attendance AttendanceIngester,
	flags FlagWriter,
	ledger ledgerCommands.Ledger,
	lastSync LastSyncSource,
	logger *slog.Logger,
) *Puller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Puller{
		source:     source,
		workers:    workers,
		attendance: attendance,
		flags:      flags,
		ledger:     ledger,
		lastSync:   lastSync,
		logger:     logger,
	}
}

// Pull fetches every site in turn. A failing site is recorded and the next
// one is pulled; the full sync is only logged when every site succeeded.
func (p *Puller) Pull(ctx context.Context, siteIDs []string) (*PullResult, error) {
	sites := normalizeSites(siteIDs)
	if len(sites) == 0 {
		return nil, ErrNoSites
	}
	ctx = observability.WithOperation(ctx, "pull")

	since := p.since(ctx)
	result := &PullResult{Sites: make([]SiteResult, 0, len(sites))}

	for _, siteID := range sites {
		site, err := p.pullSite(ctx, siteID, since)
		if err != nil {
			site.Error = err.Error()
			result.Failed++
			p.recordFailure(ctx, siteID, err)
		}
		result.Sites = append(result.Sites, site)
	}

	if result.Failed == 0 {
		if err := p.flags.ClearFlag(ctx, healthDomain.FlagFASStatus); err != nil {
			p.logger.WarnContext(ctx, "failed to clear reachability flag", observability.ErrorKey, err.Error())
		}
		reason := fmt.Sprintf("sites=%s", strings.Join(sites, ","))
		if err := p.ledger.AppendLog(ctx, ledgerDomain.ActionFullSync, reason, ""); err != nil {
			p.logger.ErrorContext(ctx, "failed to append sync log", observability.ErrorKey, err.Error())
		}
	}

	p.logger.InfoContext(ctx, "pull finished", "sites", len(sites), "failed", result.Failed)
	return result, nil
}

func (p *Puller) pullSite(ctx context.Context, siteID string, since time.Time) (SiteResult, error) {
	site := SiteResult{SiteID: siteID}

	workers, err := p.source.FetchWorkers(ctx, siteID)
	if err != nil {
		return site, err
	}
	site.Workers, err = p.workers.Handle(ctx, workforceCommands.SyncWorkersCommand{
		SiteID:  siteID,
		Workers: toPayloads(workers),
	})
	if err != nil {
		return site, err
	}

	events, err := p.source.FetchAttendance(ctx, siteID, since)
	if err != nil {
		return site, err
	}
	site.Attendance, err = p.attendance.Handle(ctx, attendanceCommands.IngestCommand{
		Events: toEvents(events, siteID),
		Source: attendanceDomain.SourceFASPull,
	})
	return site, err
}

func (p *Puller) since(ctx context.Context) time.Time {
	last, err := p.lastSync.LastByAction(ctx, ledgerDomain.ActionFullSync)
	if err != nil {
		p.logger.WarnContext(ctx, "last full sync unavailable, pulling all attendance", observability.ErrorKey, err.Error())
		return time.Time{}
	}
	if last == nil {
		return time.Time{}
	}
	return last.CreatedAt
}

func (p *Puller) recordFailure(ctx context.Context, siteID string, cause error) {
	p.logger.WarnContext(ctx, "pull failed",
		observability.SiteIDKey, siteID,
		observability.ErrorKey, cause.Error(),
	)

	if err := p.flags.SetFlag(ctx, healthDomain.FlagFASStatus, healthDomain.FASStatusDown); err != nil {
		p.logger.WarnContext(ctx, "failed to set reachability flag", observability.ErrorKey, err.Error())
	}

	if _, err := p.ledger.OpenError(ctx, ledgerCommands.OpenErrorCommand{
		Detail:       pullDetail(cause),
		ErrorCode:    errorCode(cause),
		ErrorMessage: cause.Error(),
		SiteID:       siteID,
	}); err != nil {
		p.logger.ErrorContext(ctx, "failed to record sync error", observability.ErrorKey, err.Error())
	}
	if err := p.ledger.AppendLog(ctx, ledgerDomain.ActionPullFailed, cause.Error(), siteID); err != nil {
		p.logger.ErrorContext(ctx, "failed to append sync log", observability.ErrorKey, err.Error())
	}
}

func pullDetail(err error) ledgerDomain.ExternalPullDetail {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode
		return ledgerDomain.ExternalPullDetail{Operation: statusErr.Operation, StatusCode: &code}
	}
	operation := "pull"
	if msg := err.Error(); strings.HasPrefix(msg, OperationFetchWorkers) {
		operation = OperationFetchWorkers
	} else if strings.HasPrefix(msg, OperationFetchAttendance) {
		operation = OperationFetchAttendance
	}
	return ledgerDomain.ExternalPullDetail{Operation: operation}
}

func errorCode(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("HTTP_%d", statusErr.StatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "TIMEOUT"
	}
	return ""
}

func toPayloads(workers []Worker) []workforceCommands.WorkerPayload {
	out := make([]workforceCommands.WorkerPayload, len(workers))
	for i, w := range workers {
		out[i] = workforceCommands.WorkerPayload{
			ExternalWorkerID: w.ExternalWorkerID,
			Name:             w.Name,
			Phone:            w.Phone,
			DOB:              w.DOB,
			CompanyName:      w.CompanyName,
			TradeType:        w.TradeType,
		}
	}
	return out
}

// toEvents fills in the pulled site for events that carry none.
func toEvents(events []AttendanceEvent, siteID string) []attendanceDomain.ExternalEvent {
	out := make([]attendanceDomain.ExternalEvent, len(events))
	for i, e := range events {
		site := e.SiteID
		if site == nil || strings.TrimSpace(*site) == "" {
			s := siteID
			site = &s
		}
		out[i] = attendanceDomain.ExternalEvent{
			ExternalEventID:  e.ExternalEventID,
			ExternalWorkerID: e.ExternalWorkerID,
			CheckinAt:        e.CheckinAt,
			SiteID:           site,
		}
	}
	return out
}

func normalizeSites(siteIDs []string) []string {
	seen := make(map[string]bool, len(siteIDs))
	out := make([]string, 0, len(siteIDs))
	for _, s := range siteIDs {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
