package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	site := " S1 "
	jakarta := time.FixedZone("WIB", 7*3600)
	at := time.Date(2026, 2, 6, 14, 30, 0, 0, jakarta)
	userID := uuid.New()

	rec, err := NewRecord(ExternalEvent{
		ExternalEventID:  "e1",
		ExternalWorkerID: "W1",
		CheckinAt:        at,
		SiteID:           &site,
	}, &userID, ResultSuccess, SourceFASPush)
	require.NoError(t, err)

	assert.Equal(t, "S1", rec.SiteID())
	assert.Equal(t, time.UTC, rec.CheckinAt().Location())
	assert.Equal(t, time.Date(2026, 2, 6, 7, 30, 0, 0, time.UTC), rec.CheckinAt())
	assert.Equal(t, DedupKey{ExternalWorkerID: "W1", SiteID: "S1", CheckinAt: rec.CheckinAt()}, rec.DedupKey())
}

func TestNewRecord_Validation(t *testing.T) {
	site := "S1"
	blank := "  "
	at := time.Date(2026, 2, 6, 7, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		event ExternalEvent
		err   error
	}{
		{"no site", ExternalEvent{ExternalWorkerID: "W1", CheckinAt: at}, ErrMissingSite},
		{"blank site", ExternalEvent{ExternalWorkerID: "W1", CheckinAt: at, SiteID: &blank}, ErrMissingSite},
		{"no worker", ExternalEvent{CheckinAt: at, SiteID: &site}, ErrMissingWorkerID},
		{"no checkin", ExternalEvent{ExternalWorkerID: "W1", SiteID: &site}, ErrMissingCheckin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRecord(tt.event, nil, ResultSuccess, SourceFASPush)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestOutcome_IsFailure(t *testing.T) {
	assert.False(t, OutcomeInserted.IsFailure())
	assert.False(t, OutcomeSkipped.IsFailure())
	assert.True(t, OutcomeNotFound.IsFailure())
	assert.True(t, OutcomeMissingSite.IsFailure())
	assert.True(t, OutcomeFailed.IsFailure())
}
