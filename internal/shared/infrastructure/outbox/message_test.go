package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/worksync/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEvent is a concrete implementation of DomainEvent for testing.
type testEvent struct {
	domain.BaseEvent
	SiteID string `json:"siteId"`
}

func newTestEvent(aggregateID uuid.UUID, siteID string) *testEvent {
	return &testEvent{
		BaseEvent: domain.NewBaseEvent(aggregateID, "AttendanceBatch", "attendance.batch.ingested"),
		SiteID:    siteID,
	}
}

func TestNewMessage(t *testing.T) {
	aggregateID := uuid.New()
	event := newTestEvent(aggregateID, "S1")
	event.SetMetadata(domain.EventMetadata{CorrelationID: "corr-9", RequestID: "req-9"})

	msg, err := NewMessage(event)

	require.NoError(t, err)
	assert.Equal(t, event.EventID(), msg.EventID)
	assert.Equal(t, "AttendanceBatch", msg.AggregateType)
	assert.Equal(t, aggregateID, msg.AggregateID)
	assert.Equal(t, "attendance.batch.ingested", msg.EventType)
	assert.Equal(t, "attendance.batch.ingested", msg.RoutingKey)
	assert.JSONEq(t, `{"siteId":"S1"}`, string(msg.Payload))
	assert.JSONEq(t, `{"correlation_id":"corr-9","request_id":"req-9"}`, string(msg.Metadata))
	assert.Equal(t, event.OccurredAt(), msg.CreatedAt)
	assert.Equal(t, int64(0), msg.ID)
	assert.False(t, msg.IsPublished())
}

func TestMessage_CanRetry(t *testing.T) {
	msg := &Message{}
	assert.True(t, msg.CanRetry(3))

	msg.RetryCount = 3
	assert.False(t, msg.CanRetry(3))

	now := time.Now()
	msg.PublishedAt = &now
	assert.True(t, msg.IsPublished())
}

func TestProcessor_RetryBackoff(t *testing.T) {
	p := NewProcessor(nil, nil, ProcessorConfig{
		RetryBackoffBase: time.Second,
		RetryBackoffMax:  10 * time.Second,
	}, nil)

	assert.Equal(t, time.Second, p.retryBackoff(0))
	assert.Equal(t, time.Second, p.retryBackoff(1))
	assert.Equal(t, 2*time.Second, p.retryBackoff(2))
	assert.Equal(t, 8*time.Second, p.retryBackoff(4))
	assert.Equal(t, 10*time.Second, p.retryBackoff(5))
	assert.Equal(t, 10*time.Second, p.retryBackoff(64))
}

type failingRepository struct {
	*InMemoryRepository
}

func (failingRepository) Save(context.Context, *Message) error {
	return errors.New("disk full")
}

func TestRecorder_Record(t *testing.T) {
	t.Run("stores events once per event id", func(t *testing.T) {
		repo := NewInMemoryRepository()
		recorder := NewRecorder(repo, nil)
		event := newTestEvent(uuid.New(), "S1")

		recorder.Record(context.Background(), event, event)

		require.Len(t, repo.Messages(), 1)
		assert.Equal(t, event.EventID(), repo.Messages()[0].EventID)
	})

	t.Run("swallows storage failures", func(t *testing.T) {
		recorder := NewRecorder(failingRepository{NewInMemoryRepository()}, nil)

		assert.NotPanics(t, func() {
			recorder.Record(context.Background(), newTestEvent(uuid.New(), "S1"))
		})
	})
}
