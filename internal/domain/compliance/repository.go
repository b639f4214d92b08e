package compliance

import (
	"context"

	"github.com/google/uuid"
)

// EventRepository persists compliance events. Append only.
type EventRepository interface {
	Append(ctx context.Context, event *Event) error
	FindByDocument(ctx context.Context, tenantID, documentID uuid.UUID) ([]Event, error)
	FindByType(ctx context.Context, tenantID uuid.UUID, eventType EventType) ([]Event, error)
}

// AuditLogRepository persists audit entries. Append only.
type AuditLogRepository interface {
	Append(ctx context.Context, entry *AuditLog) error
	FindByEntity(ctx context.Context, tenantID, entityID uuid.UUID) ([]AuditLog, error)
}

// ExportBatchRepository persists export batch metadata. Append only.
type ExportBatchRepository interface {
	Append(ctx context.Context, batch *ExportBatch) error
	FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]ExportBatch, error)
}
