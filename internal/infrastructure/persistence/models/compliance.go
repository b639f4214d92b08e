package models

import (
	"time"

	"github.com/erp/posting/internal/domain/compliance"
	"github.com/google/uuid"
)

// ComplianceEventModel is the persistence model for append-only compliance events
type ComplianceEventModel struct {
	ID         uuid.UUID            `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID            `gorm:"type:uuid;not null;index:idx_compliance_events_tenant,priority:1"`
	DocumentID *uuid.UUID           `gorm:"type:uuid;index"`
	EventType  compliance.EventType `gorm:"type:varchar(40);not null;index:idx_compliance_events_tenant,priority:2"`
	Payload    string               `gorm:"type:text;not null"`
	CreatedAt  time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ComplianceEventModel) TableName() string {
	return "compliance_events"
}

// ToDomain converts the persistence model to a domain compliance Event
func (m *ComplianceEventModel) ToDomain() *compliance.Event {
	return &compliance.Event{
		ID:         m.ID,
		TenantID:   m.TenantID,
		DocumentID: m.DocumentID,
		EventType:  m.EventType,
		Payload:    []byte(m.Payload),
		CreatedAt:  m.CreatedAt,
	}
}

// ComplianceEventModelFromDomain creates a persistence model from a domain compliance Event
func ComplianceEventModelFromDomain(e *compliance.Event) *ComplianceEventModel {
	return &ComplianceEventModel{
		ID:         e.ID,
		TenantID:   e.TenantID,
		DocumentID: e.DocumentID,
		EventType:  e.EventType,
		Payload:    string(e.Payload),
		CreatedAt:  e.CreatedAt,
	}
}

// AuditLogModel is the persistence model for generic audit entries
type AuditLogModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_audit_logs_entity,priority:1"`
	ActorID    *uuid.UUID `gorm:"type:uuid"`
	Action     string     `gorm:"type:varchar(100);not null"`
	EntityType string     `gorm:"type:varchar(50);not null"`
	EntityID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_audit_logs_entity,priority:2"`
	Details    string     `gorm:"type:text"`
	CreatedAt  time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the persistence model to a domain AuditLog
func (m *AuditLogModel) ToDomain() *compliance.AuditLog {
	return &compliance.AuditLog{
		ID:         m.ID,
		TenantID:   m.TenantID,
		ActorID:    m.ActorID,
		Action:     m.Action,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		Details:    []byte(m.Details),
		CreatedAt:  m.CreatedAt,
	}
}

// AuditLogModelFromDomain creates a persistence model from a domain AuditLog
func AuditLogModelFromDomain(a *compliance.AuditLog) *AuditLogModel {
	return &AuditLogModel{
		ID:         a.ID,
		TenantID:   a.TenantID,
		ActorID:    a.ActorID,
		Action:     a.Action,
		EntityType: a.EntityType,
		EntityID:   a.EntityID,
		Details:    string(a.Details),
		CreatedAt:  a.CreatedAt,
	}
}

// ExportBatchModel is the persistence model for registry export metadata
type ExportBatchModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	PeriodFrom  time.Time  `gorm:"not null"`
	PeriodTo    time.Time  `gorm:"not null"`
	RecordCount int        `gorm:"not null"`
	FileHash    string     `gorm:"type:varchar(64);not null"`
	StorageKey  string     `gorm:"type:varchar(500);not null"`
	GeneratedBy *uuid.UUID `gorm:"type:uuid"`
	GeneratedAt time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ExportBatchModel) TableName() string {
	return "export_batches"
}

// ToDomain converts the persistence model to a domain ExportBatch
func (m *ExportBatchModel) ToDomain() *compliance.ExportBatch {
	return &compliance.ExportBatch{
		ID:          m.ID,
		TenantID:    m.TenantID,
		PeriodFrom:  m.PeriodFrom,
		PeriodTo:    m.PeriodTo,
		RecordCount: m.RecordCount,
		FileHash:    m.FileHash,
		StorageKey:  m.StorageKey,
		GeneratedBy: m.GeneratedBy,
		GeneratedAt: m.GeneratedAt,
	}
}

// ExportBatchModelFromDomain creates a persistence model from a domain ExportBatch
func ExportBatchModelFromDomain(b *compliance.ExportBatch) *ExportBatchModel {
	return &ExportBatchModel{
		ID:          b.ID,
		TenantID:    b.TenantID,
		PeriodFrom:  b.PeriodFrom,
		PeriodTo:    b.PeriodTo,
		RecordCount: b.RecordCount,
		FileHash:    b.FileHash,
		StorageKey:  b.StorageKey,
		GeneratedBy: b.GeneratedBy,
		GeneratedAt: b.GeneratedAt,
	}
}
