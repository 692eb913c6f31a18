package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDetail(t *testing.T) {
	status := 503
	details := []Detail{
		AttendanceIngestionDetail{EventIDs: []string{"e1", "e2"}, StagedCount: 2},
		WorkerSyncDetail{ExternalWorkerID: "W1"},
		WorkerDeleteDetail{ExternalWorkerID: "W2"},
		ExternalPullDetail{Operation: "fetch_workers", StatusCode: &status},
	}

	for _, d := range details {
		t.Run(string(d.SyncType()), func(t *testing.T) {
			raw, err := EncodeDetail(d)
			require.NoError(t, err)

			decoded, err := DecodeDetail(d.SyncType(), raw)
			require.NoError(t, err)
			assert.Equal(t, d, decoded)
		})
	}
}

func TestDecodeDetail_Errors(t *testing.T) {
	_, err := DecodeDetail(SyncType("CALENDAR"), []byte(`{}`))
	assert.ErrorIs(t, err, ErrInvalidSyncType)

	_, err = DecodeDetail(SyncTypeWorkerSync, []byte(`{"externalWorkerId":`))
	assert.Error(t, err)

	d, err := DecodeDetail(SyncTypeWorkerDelete, nil)
	require.NoError(t, err)
	assert.Equal(t, WorkerDeleteDetail{}, d)

	_, err = EncodeDetail(nil)
	assert.ErrorIs(t, err, ErrDetailRequired)
}

func TestParseSyncType(t *testing.T) {
	st, err := ParseSyncType("EXTERNAL_PULL")
	require.NoError(t, err)
	assert.Equal(t, SyncTypeExternalPull, st)

	_, err = ParseSyncType("external_pull")
	assert.ErrorIs(t, err, ErrInvalidSyncType)
}
