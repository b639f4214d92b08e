package models

import (
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

// OutboxEventModel is a row of outbox_events. Payload holds the serializer's
// JSON envelope as text.
type OutboxEventModel struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID      `gorm:"type:uuid;not null;index"`
	EventID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex"`
	EventType     string         `gorm:"type:varchar(255);not null"`
	AggregateID   uuid.UUID      `gorm:"type:uuid;not null"`
	AggregateType string         `gorm:"type:varchar(255);not null"`
	Payload       string         `gorm:"type:text;not null"`
	Delivery      OutboxDelivery `gorm:"embedded"`
	CreatedAt     time.Time      `gorm:"not null;index:idx_outbox_status_created,priority:2"`
	UpdatedAt     time.Time      `gorm:"not null"`
}

// OutboxDelivery groups the columns the relay rewrites after each attempt
type OutboxDelivery struct {
	Status      shared.OutboxStatus `gorm:"type:varchar(20);not null;index:idx_outbox_status_created,priority:1"`
	RetryCount  int                 `gorm:"not null;default:0"`
	MaxRetries  int                 `gorm:"not null;default:5"`
	LastError   string              `gorm:"type:text"`
	NextRetryAt *time.Time
	ProcessedAt *time.Time
}

func (OutboxEventModel) TableName() string { return "outbox_events" }

func NewOutboxEventModel(e *shared.OutboxEntry) *OutboxEventModel {
	m := &OutboxEventModel{
		ID:            e.ID,
		TenantID:      e.TenantID,
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		Payload:       string(e.Payload),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	m.Delivery = DeliveryOf(e)
	return m
}

// DeliveryOf extracts the mutable delivery state of an entry
func DeliveryOf(e *shared.OutboxEntry) OutboxDelivery {
	return OutboxDelivery{
		Status:      e.Status,
		RetryCount:  e.RetryCount,
		MaxRetries:  e.MaxRetries,
		LastError:   e.LastError,
		NextRetryAt: e.NextRetryAt,
		ProcessedAt: e.ProcessedAt,
	}
}

func (m *OutboxEventModel) ToEntry() *shared.OutboxEntry {
	d := m.Delivery
	return &shared.OutboxEntry{
		ID:            m.ID,
		TenantID:      m.TenantID,
		EventID:       m.EventID,
		EventType:     m.EventType,
		AggregateID:   m.AggregateID,
		AggregateType: m.AggregateType,
		Payload:       []byte(m.Payload),
		Status:        d.Status,
		RetryCount:    d.RetryCount,
		MaxRetries:    d.MaxRetries,
		LastError:     d.LastError,
		NextRetryAt:   d.NextRetryAt,
		ProcessedAt:   d.ProcessedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
