package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity holds identity and timestamps
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BaseAggregateRoot adds an optimistic version and the events raised since
// the aggregate was loaded. Events are not persisted with the aggregate; the
// posting transaction moves them to the outbox.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	pending []DomainEvent
}

// NewBaseAggregateRoot stamps a fresh id at version 1
func NewBaseAggregateRoot(at time.Time) BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: BaseEntity{ID: uuid.New(), CreatedAt: at, UpdatedAt: at},
		Version:    1,
	}
}

func (a *BaseAggregateRoot) GetVersion() int { return a.Version }

// MarkChanged records a state change at the given instant
func (a *BaseAggregateRoot) MarkChanged(at time.Time) {
	a.UpdatedAt = at
	a.Version++
}

func (a *BaseAggregateRoot) Record(event DomainEvent) {
	a.pending = append(a.pending, event)
}

func (a *BaseAggregateRoot) PendingEvents() []DomainEvent { return a.pending }

func (a *BaseAggregateRoot) ClearEvents() { a.pending = nil }

// TenantAggregateRoot is an aggregate owned by one tenant
type TenantAggregateRoot struct {
	BaseAggregateRoot
	TenantID  uuid.UUID
	CreatedBy *uuid.UUID
}

func NewTenantAggregateRoot(tenantID uuid.UUID, at time.Time) TenantAggregateRoot {
	return TenantAggregateRoot{BaseAggregateRoot: NewBaseAggregateRoot(at), TenantID: tenantID}
}

func (t *TenantAggregateRoot) BelongsTo(tenantID uuid.UUID) bool {
	return t.TenantID == tenantID
}

// SetCreatedBy ignores uuid.Nil, which marks a system actor
func (t *TenantAggregateRoot) SetCreatedBy(userID uuid.UUID) {
	if userID == uuid.Nil {
		return
	}
	t.CreatedBy = &userID
}
