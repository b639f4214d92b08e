package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact recorded by an aggregate. Events travel through the
// outbox, so everything a handler needs must be in the serialized form.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
}

// AggregateRef names the aggregate an event belongs to
type AggregateRef struct {
	ID   uuid.UUID `json:"id"`
	Type string    `json:"type"`
}

// BaseDomainEvent carries the envelope fields; concrete events embed it
type BaseDomainEvent struct {
	ID        uuid.UUID    `json:"id"`
	Kind      string       `json:"type"`
	At        time.Time    `json:"occurred_at"`
	Aggregate AggregateRef `json:"aggregate"`
	Tenant    uuid.UUID    `json:"tenant_id"`
}

func (e *BaseDomainEvent) EventID() uuid.UUID     { return e.ID }
func (e *BaseDomainEvent) EventType() string      { return e.Kind }
func (e *BaseDomainEvent) OccurredAt() time.Time  { return e.At }
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.Aggregate.ID }
func (e *BaseDomainEvent) AggregateType() string  { return e.Aggregate.Type }
func (e *BaseDomainEvent) TenantID() uuid.UUID    { return e.Tenant }

// NewBaseDomainEvent stamps a fresh event id; at is the clock reading of the
// operation that raised the event
func NewBaseDomainEvent(eventType, aggType string, aggID, tenantID uuid.UUID, at time.Time) BaseDomainEvent {
	return BaseDomainEvent{
		ID:        uuid.New(),
		Kind:      eventType,
		At:        at,
		Aggregate: AggregateRef{ID: aggID, Type: aggType},
		Tenant:    tenantID,
	}
}
