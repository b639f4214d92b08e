package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvent struct {
	BaseDomainEvent
}

func newStubEvent(at time.Time) *stubEvent {
	return &stubEvent{BaseDomainEvent: NewBaseDomainEvent("DocumentPosted", "Document", uuid.New(), uuid.New(), at)}
}

func TestNewOutboxEntry(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	event := newStubEvent(at)

	entry := NewOutboxEntry(event, []byte(`{}`), at)

	assert.Equal(t, event.TenantID(), entry.TenantID)
	assert.Equal(t, event.EventID(), entry.EventID)
	assert.Equal(t, "DocumentPosted", entry.EventType)
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Equal(t, DefaultMaxRetries, entry.MaxRetries)
	assert.True(t, entry.Deliverable(at))
}

func TestOutboxEntry_MarkFailed(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("schedules exponential backoff", func(t *testing.T) {
		entry := NewOutboxEntry(newStubEvent(at), nil, at)

		entry.MarkFailed("boom", at)
		require.NotNil(t, entry.NextRetryAt)
		assert.Equal(t, at.Add(time.Second), *entry.NextRetryAt)
		assert.False(t, entry.Deliverable(at))
		assert.True(t, entry.Deliverable(at.Add(time.Second)))

		entry.MarkFailed("boom", at)
		assert.Equal(t, at.Add(2*time.Second), *entry.NextRetryAt)
		assert.Equal(t, OutboxStatusFailed, entry.Status)
		assert.Equal(t, "boom", entry.LastError)
	})

	t.Run("moves to dead after max retries", func(t *testing.T) {
		entry := NewOutboxEntry(newStubEvent(at), nil, at)
		for i := 0; i < DefaultMaxRetries; i++ {
			entry.MarkFailed("boom", at)
		}
		assert.Equal(t, OutboxStatusDead, entry.Status)
		assert.Nil(t, entry.NextRetryAt)
		assert.False(t, entry.Deliverable(at.Add(time.Hour)))
	})
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, time.Second, retryDelay(1))
	assert.Equal(t, 4*time.Second, retryDelay(3))
	assert.Equal(t, 5*time.Minute, retryDelay(12))
	assert.Equal(t, 5*time.Minute, retryDelay(100))
}

func TestOutboxEntry_MarkSent(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entry := NewOutboxEntry(newStubEvent(at), nil, at)

	entry.MarkSent(at.Add(time.Minute))

	assert.Equal(t, OutboxStatusSent, entry.Status)
	require.NotNil(t, entry.ProcessedAt)
	assert.Equal(t, at.Add(time.Minute), *entry.ProcessedAt)
	assert.False(t, entry.Deliverable(at.Add(time.Hour)))
}
