package fas

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	attendanceCommands "github.com/felixgeelhaar/worksync/internal/attendance/application/commands"
	attendanceDomain "github.com/felixgeelhaar/worksync/internal/attendance/domain"
	healthDomain "github.com/felixgeelhaar/worksync/internal/health/domain"
	ledgerCommands "github.com/felixgeelhaar/worksync/internal/ledger/application/commands"
	ledgerDomain "github.com/felixgeelhaar/worksync/internal/ledger/domain"
	"github.com/felixgeelhaar/worksync/internal/shared/infrastructure/kv"
	workforceCommands "github.com/felixgeelhaar/worksync/internal/workforce/application/commands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	workers    map[string][]Worker
	events     map[string][]AttendanceEvent
	workersErr map[string]error
	gotSince   []time.Time
}

func (s *fakeSource) FetchWorkers(_ context.Context, siteID string) ([]Worker, error) {
	if err := s.workersErr[siteID]; err != nil {
		return nil, err
	}
	return s.workers[siteID], nil
}

func (s *fakeSource) FetchAttendance(_ context.Context, siteID string, since time.Time) ([]AttendanceEvent, error) {
	s.gotSince = append(s.gotSince, since)
	return s.events[siteID], nil
}

type fakeSyncer struct {
	cmds []workforceCommands.SyncWorkersCommand
}

func (f *fakeSyncer) Handle(_ context.Context, cmd workforceCommands.SyncWorkersCommand) (*workforceCommands.SyncWorkersResult, error) {
	f.cmds = append(f.cmds, cmd)
	return &workforceCommands.SyncWorkersResult{Created: len(cmd.Workers), Errors: []workforceCommands.WorkerError{}}, nil
}

type fakeIngester struct {
	cmds []attendanceCommands.IngestCommand
}

func (f *fakeIngester) Handle(_ context.Context, cmd attendanceCommands.IngestCommand) (*attendanceCommands.IngestResult, error) {
	f.cmds = append(f.cmds, cmd)
	return &attendanceCommands.IngestResult{Processed: len(cmd.Events), Inserted: len(cmd.Events)}, nil
}

type fakeLedger struct {
	mu      sync.Mutex
	opened  []ledgerCommands.OpenErrorCommand
	logs    []ledgerDomain.Action
	reasons []string
	last    *ledgerDomain.SyncLog
}

func (l *fakeLedger) OpenError(_ context.Context, cmd ledgerCommands.OpenErrorCommand) (*ledgerDomain.SyncError, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opened = append(l.opened, cmd)
	return ledgerDomain.NewSyncError(cmd.Detail, cmd.ErrorCode, cmd.ErrorMessage, cmd.SiteID)
}

func (l *fakeLedger) AppendLog(_ context.Context, action ledgerDomain.Action, reason, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, action)
	l.reasons = append(l.reasons, reason)
	return nil
}

func (l *fakeLedger) LastByAction(context.Context, ledgerDomain.Action) (*ledgerDomain.SyncLog, error) {
	return l.last, nil
}

type pullFixture struct {
	source   *fakeSource
	syncer   *fakeSyncer
	ingester *fakeIngester
	flags    *kv.Flags
	ledger   *fakeLedger
	puller   *Puller
}

func newPullFixture() *pullFixture {
	f := &pullFixture{
		source: &fakeSource{
			workers:    map[string][]Worker{},
			events:     map[string][]AttendanceEvent{},
			workersErr: map[string]error{},
		},
		syncer:   &fakeSyncer{},
		ingester: &fakeIngester{},
		flags:    kv.NewFlags(kv.NewMemoryStore()),
		ledger:   &fakeLedger{},
	}
	f.puller = NewPuller(f.source, f.syncer, f.ingester, f.flags, f.ledger, f.ledger,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func (f *pullFixture) fasStatus(t *testing.T) *string {
	t.Helper()
	v, err := f.flags.Flag(context.Background(), healthDomain.FlagFASStatus)
	require.NoError(t, err)
	return v
}

func TestPuller_AllSitesSucceed(t *testing.T) {
	f := newPullFixture()
	ctx := context.Background()
	require.NoError(t, f.flags.SetFlag(ctx, healthDomain.FlagFASStatus, healthDomain.FASStatusDown))

	f.source.workers["S1"] = []Worker{{ExternalWorkerID: "W1", Name: "Ana", Phone: "111", DOB: "1990-01-01"}}
	f.source.events["S1"] = []AttendanceEvent{{ExternalEventID: "e1", ExternalWorkerID: "W1", CheckinAt: time.Now()}}

	result, err := f.puller.Pull(ctx, []string{"S1", " S2 ", "S1"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, result.Sites, 2)
	assert.Equal(t, 1, result.Sites[0].Workers.Created)
	assert.Equal(t, 1, result.Sites[0].Attendance.Inserted)

	require.Len(t, f.syncer.cmds, 2)
	assert.Equal(t, "S1", f.syncer.cmds[0].SiteID)
	assert.Equal(t, "S2", f.syncer.cmds[1].SiteID)

	require.Len(t, f.ingester.cmds, 2)
	ingest := f.ingester.cmds[0]
	assert.Equal(t, attendanceDomain.SourceFASPull, ingest.Source)
	require.Len(t, ingest.Events, 1)
	assert.Equal(t, "S1", *ingest.Events[0].SiteID)

	assert.Nil(t, f.fasStatus(t))
	assert.Equal(t, []ledgerDomain.Action{ledgerDomain.ActionFullSync}, f.ledger.logs)
	assert.Equal(t, "sites=S1,S2", f.ledger.reasons[0])
	assert.Empty(t, f.ledger.opened)
}

func TestPuller_FailingSiteContinues(t *testing.T) {
	f := newPullFixture()
	f.source.workersErr["S1"] = &StatusError{Operation: OperationFetchWorkers, StatusCode: http.StatusServiceUnavailable}

	result, err := f.puller.Pull(context.Background(), []string{"S1", "S2"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.NotEmpty(t, result.Sites[0].Error)
	assert.Empty(t, result.Sites[1].Error)

	require.Len(t, f.syncer.cmds, 1)
	assert.Equal(t, "S2", f.syncer.cmds[0].SiteID)

	status := f.fasStatus(t)
	require.NotNil(t, status)
	assert.Equal(t, healthDomain.FASStatusDown, *status)

	require.Len(t, f.ledger.opened, 1)
	opened := f.ledger.opened[0]
	assert.Equal(t, "S1", opened.SiteID)
	assert.Equal(t, "HTTP_503", opened.ErrorCode)
	detail, ok := opened.Detail.(ledgerDomain.ExternalPullDetail)
	require.True(t, ok)
	assert.Equal(t, OperationFetchWorkers, detail.Operation)
	require.NotNil(t, detail.StatusCode)
	assert.Equal(t, http.StatusServiceUnavailable, *detail.StatusCode)

	assert.Equal(t, []ledgerDomain.Action{ledgerDomain.ActionPullFailed}, f.ledger.logs)
}

func TestPuller_PullsSinceLastFullSync(t *testing.T) {
	f := newPullFixture()
	last := time.Date(2026, 2, 6, 6, 0, 0, 0, time.UTC)
	f.ledger.last = &ledgerDomain.SyncLog{Action: ledgerDomain.ActionFullSync, CreatedAt: last}

	_, err := f.puller.Pull(context.Background(), []string{"S1"})
	require.NoError(t, err)
	require.Len(t, f.source.gotSince, 1)
	assert.True(t, last.Equal(f.source.gotSince[0]))
}

func TestPuller_NoSites(t *testing.T) {
	f := newPullFixture()

	_, err := f.puller.Pull(context.Background(), []string{" ", ""})
	assert.ErrorIs(t, err, ErrNoSites)
}

func TestPullDetail(t *testing.T) {
	d := pullDetail(context.DeadlineExceeded)
	assert.Equal(t, "pull", d.Operation)
	assert.Nil(t, d.StatusCode)
	assert.Equal(t, "TIMEOUT", errorCode(context.DeadlineExceeded))
}
