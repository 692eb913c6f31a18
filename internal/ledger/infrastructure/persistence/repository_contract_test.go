package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/worksync/internal/ledger/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSyncError(t *testing.T, repo domain.ErrorRepository, detail domain.Detail, site string) *domain.SyncError {
	t.Helper()
	e, err := domain.NewSyncError(detail, "", "failure for "+string(detail.SyncType()), site)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), e))
	// keep created_at strictly increasing
	time.Sleep(2 * time.Millisecond)
	return e
}

func testErrorRepository(t *testing.T, repo domain.ErrorRepository) {
	ctx := context.Background()

	t.Run("save and find round trip", func(t *testing.T) {
		status := 502
		e := openSyncError(t, repo, domain.ExternalPullDetail{Operation: "fetch_workers", StatusCode: &status}, "S1")

		found, err := repo.FindByID(ctx, e.ID())
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, e.ID(), found.ID())
		assert.Equal(t, domain.SyncTypeExternalPull, found.SyncType())
		assert.Equal(t, e.Detail(), found.Detail())
		assert.Equal(t, domain.StatusOpen, found.Status())
		assert.Equal(t, "S1", *found.SiteID())
		assert.Nil(t, found.ErrorCode())
		assert.WithinDuration(t, e.CreatedAt(), found.CreatedAt(), time.Millisecond)
	})

	t.Run("find missing returns nil", func(t *testing.T) {
		found, err := repo.FindByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("save updates status", func(t *testing.T) {
		e := openSyncError(t, repo, domain.WorkerSyncDetail{ExternalWorkerID: "W9"}, "")
		_, err := e.TransitionTo(domain.StatusResolved)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, e))

		found, err := repo.FindByID(ctx, e.ID())
		require.NoError(t, err)
		assert.Equal(t, domain.StatusResolved, found.Status())
		assert.NotNil(t, found.ResolvedAt())
	})

	t.Run("increment retry", func(t *testing.T) {
		e := openSyncError(t, repo, domain.WorkerDeleteDetail{ExternalWorkerID: "W3"}, "")

		n, err := repo.IncrementRetry(ctx, e.ID())
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		n, err = repo.IncrementRetry(ctx, e.ID())
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = repo.IncrementRetry(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrSyncErrorNotFound)
	})
}

func testErrorListing(t *testing.T, repo domain.ErrorRepository) {
	ctx := context.Background()

	a := openSyncError(t, repo, domain.AttendanceIngestionDetail{EventIDs: []string{"e1"}, StagedCount: 1}, "S1")
	b := openSyncError(t, repo, domain.WorkerSyncDetail{ExternalWorkerID: "W1"}, "S1")
	c := openSyncError(t, repo, domain.AttendanceIngestionDetail{EventIDs: []string{"e2"}, StagedCount: 1}, "S2")
	_, err := b.TransitionTo(domain.StatusIgnored)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, b))

	t.Run("all most recent first", func(t *testing.T) {
		errs, total, err := repo.List(ctx, domain.ErrorFilter{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, errs, 3)
		assert.Equal(t, c.ID(), errs[0].ID())
		assert.Equal(t, b.ID(), errs[1].ID())
		assert.Equal(t, a.ID(), errs[2].ID())
	})

	t.Run("filter by type and status", func(t *testing.T) {
		syncType := domain.SyncTypeAttendanceIngestion
		status := domain.StatusOpen
		errs, total, err := repo.List(ctx, domain.ErrorFilter{SyncType: &syncType, Status: &status, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, errs, 2)
	})

	t.Run("paginates with total of all matches", func(t *testing.T) {
		errs, total, err := repo.List(ctx, domain.ErrorFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, errs, 1)
		assert.Equal(t, b.ID(), errs[0].ID())
	})

	t.Run("counts by status", func(t *testing.T) {
		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCounts{Open: 2, Resolved: 0, Ignored: 1}, counts)
	})
}

func testLogRepository(t *testing.T, repo domain.LogRepository) {
	ctx := context.Background()

	last, err := repo.LastByAction(ctx, domain.ActionFullSync)
	require.NoError(t, err)
	assert.Nil(t, last)

	var full domain.SyncLog
	for i, action := range []domain.Action{domain.ActionWorkerSync, domain.ActionFullSync, domain.ActionAttendanceIngest} {
		log, err := domain.NewSyncLog(action, "run", "S1")
		require.NoError(t, err)
		log.CreatedAt = log.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Append(ctx, log))
		if action == domain.ActionFullSync {
			full = log
		}
	}

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, domain.ActionAttendanceIngest, recent[0].Action)
	assert.Equal(t, domain.ActionFullSync, recent[1].Action)
	assert.Equal(t, "S1", *recent[0].SiteID)

	last, err = repo.LastByAction(ctx, domain.ActionFullSync)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, full.ID, last.ID)
	assert.WithinDuration(t, full.CreatedAt, last.CreatedAt, time.Millisecond)
}
