package fas

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_FetchWorkers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sites/S%201/workers", r.URL.EscapedPath())
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"workers":[{"externalWorkerId":"W1","name":"Ana","phone":"111","dob":"1990-01-01","tradeType":"rigger"}]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL + "/"}, nil)
	require.NoError(t, err)

	workers, err := client.FetchWorkers(context.Background(), "S 1")
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, "W1", workers[0].ExternalWorkerID)
	assert.Nil(t, workers[0].CompanyName)
	require.NotNil(t, workers[0].TradeType)
	assert.Equal(t, "rigger", *workers[0].TradeType)
}

func TestClient_FetchAttendance(t *testing.T) {
	var gotSince atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSince.Store(r.URL.Query().Get("since"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"events": []map[string]any{{
				"externalEventId":  "e1",
				"externalWorkerId": "W1",
				"checkinAt":        "2026-02-06T14:30:00+07:00",
			}},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL}, nil)
	require.NoError(t, err)

	since := time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC)
	events, err := client.FetchAttendance(context.Background(), "S1", since)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2026-02-06T00:00:00Z", gotSince.Load())
	assert.True(t, events[0].CheckinAt.Equal(time.Date(2026, 2, 6, 7, 30, 0, 0, time.UTC)))
	assert.Nil(t, events[0].SiteID)

	_, err = client.FetchAttendance(context.Background(), "S1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "", gotSince.Load())
}

func TestClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL}, nil)
	require.NoError(t, err)

	_, err = client.FetchWorkers(context.Background(), "S1")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, OperationFetchWorkers, statusErr.Operation)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "maintenance", statusErr.Body)
}

func TestClient_BreakerTrips(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, BreakerFailures: 2, BreakerTimeout: time.Minute}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.FetchWorkers(ctx, "S1")
		require.Error(t, err)
	}
	_, err = client.FetchWorkers(ctx, "S1")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_ClientErrorsDoNotTrip(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, BreakerFailures: 1}, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := client.FetchWorkers(context.Background(), "S1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestClient_ClientCredentials(t *testing.T) {
	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokens.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"workers":[]}`))
	}))
	defer api.Close()

	client, err := NewClient(Config{
		BaseURL:      api.URL,
		ClientID:     "worksync",
		ClientSecret: "secret",
		TokenURL:     tokens.URL,
	}, nil)
	require.NoError(t, err)

	workers, err := client.FetchWorkers(context.Background(), "S1")
	require.NoError(t, err)
	assert.Empty(t, workers)
}

func TestClient_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL}, nil)
	require.NoError(t, err)

	_, err = client.FetchWorkers(context.Background(), "S1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch_workers: decode response")
}
