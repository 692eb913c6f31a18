package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/worksync/internal/attendance/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type attendanceStore interface {
	domain.Repository
	FindByKey(ctx context.Context, key domain.DedupKey) (*domain.Record, error)
}

func newRecord(t *testing.T, eventID, workerID, site string, at time.Time) *domain.Record {
	t.Helper()
	userID := uuid.New()
	rec, err := domain.NewRecord(domain.ExternalEvent{
		ExternalEventID:  eventID,
		ExternalWorkerID: workerID,
		CheckinAt:        at,
		SiteID:           &site,
	}, &userID, domain.ResultSuccess, domain.SourceFASPush)
	require.NoError(t, err)
	return rec
}

func testAttendanceRepository(t *testing.T, repo attendanceStore) {
	ctx := context.Background()
	checkin := time.Date(2026, 2, 6, 7, 30, 0, 0, time.UTC)

	t.Run("inserts and reads back", func(t *testing.T) {
		rec := newRecord(t, "E1", "W1", "S1", checkin)

		inserted, err := repo.InsertBatch(ctx, []*domain.Record{rec})
		require.NoError(t, err)
		assert.Equal(t, []bool{true}, inserted)

		found, err := repo.FindByKey(ctx, rec.DedupKey())
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, rec.ID(), found.ID())
		assert.Equal(t, *rec.InternalUserID(), *found.InternalUserID())
		assert.Equal(t, "E1", found.ExternalEventID())
		assert.Equal(t, domain.SourceFASPush, found.Source())
		assert.True(t, checkin.Equal(found.CheckinAt()))
	})

	t.Run("same instant in another offset conflicts", func(t *testing.T) {
		jakarta := time.FixedZone("WIB", 7*3600)
		rec := newRecord(t, "E2", "W1", "S1", checkin.In(jakarta))

		inserted, err := repo.InsertBatch(ctx, []*domain.Record{rec})
		require.NoError(t, err)
		assert.Equal(t, []bool{false}, inserted)
	})

	t.Run("duplicates inside one batch insert once", func(t *testing.T) {
		at := checkin.Add(time.Hour)
		a := newRecord(t, "E3", "W2", "S1", at)
		b := newRecord(t, "E4", "W2", "S1", at)
		c := newRecord(t, "E5", "W2", "S2", at)

		inserted, err := repo.InsertBatch(ctx, []*domain.Record{a, b, c})
		require.NoError(t, err)
		assert.Equal(t, []bool{true, false, true}, inserted)
	})

	t.Run("existing keys", func(t *testing.T) {
		stored := domain.DedupKey{ExternalWorkerID: "W1", SiteID: "S1", CheckinAt: checkin}
		missing := domain.DedupKey{ExternalWorkerID: "W9", SiteID: "S1", CheckinAt: checkin}

		found, err := repo.ExistingKeys(ctx, []domain.DedupKey{stored, missing})
		require.NoError(t, err)
		assert.True(t, found[stored])
		assert.False(t, found[missing])
	})

	t.Run("missing key reads as nil", func(t *testing.T) {
		found, err := repo.FindByKey(ctx, domain.DedupKey{ExternalWorkerID: "nobody", SiteID: "S1", CheckinAt: checkin})
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("empty batch", func(t *testing.T) {
		inserted, err := repo.InsertBatch(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, inserted)
	})
}
