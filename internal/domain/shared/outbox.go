package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "PENDING"
	OutboxStatusSent    OutboxStatus = "SENT"
	OutboxStatusFailed  OutboxStatus = "FAILED"
	// OutboxStatusDead entries are kept for inspection and never redelivered
	OutboxStatusDead OutboxStatus = "DEAD"
)

const (
	DefaultMaxRetries = 5
	firstRetryDelay   = time.Second
	maxRetryDelay     = 5 * time.Minute
)

// OutboxEntry carries one domain event from the posting transaction that
// raised it to the relay that publishes it.
type OutboxEntry struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewOutboxEntry(event DomainEvent, payload []byte, at time.Time) *OutboxEntry {
	return &OutboxEntry{
		ID:            uuid.New(),
		TenantID:      event.TenantID(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
}

// Deliverable reports whether the relay may publish the entry at the given time
func (e *OutboxEntry) Deliverable(at time.Time) bool {
	if e.Status == OutboxStatusPending {
		return true
	}
	return e.Status == OutboxStatusFailed && (e.NextRetryAt == nil || !at.Before(*e.NextRetryAt))
}

func (e *OutboxEntry) MarkSent(at time.Time) {
	e.Status = OutboxStatusSent
	e.ProcessedAt = &at
	e.NextRetryAt = nil
	e.UpdatedAt = at
}

// MarkFailed doubles the wait after every failure, capped at five minutes.
// The entry goes DEAD once RetryCount reaches MaxRetries.
func (e *OutboxEntry) MarkFailed(reason string, at time.Time) {
	e.RetryCount++
	e.LastError = reason
	e.UpdatedAt = at
	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	e.Status = OutboxStatusFailed
	next := at.Add(retryDelay(e.RetryCount))
	e.NextRetryAt = &next
}

func retryDelay(attempt int) time.Duration {
	d := firstRetryDelay
	for i := 1; i < attempt && d < maxRetryDelay; i++ {
		d *= 2
	}
	return min(d, maxRetryDelay)
}

type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// FindDeliverable returns entries for which Deliverable(at) holds, oldest first
	FindDeliverable(ctx context.Context, at time.Time, limit int) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
}
