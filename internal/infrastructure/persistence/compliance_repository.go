package persistence

import (
	"context"

	"github.com/erp/posting/internal/domain/compliance"
	"github.com/erp/posting/internal/infrastructure/persistence/models"
	"github.com/erp/posting/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormComplianceEventRepository implements compliance.EventRepository.
// Rows are only ever inserted.
type GormComplianceEventRepository struct {
	db *gorm.DB
}

// NewGormComplianceEventRepository creates a new GormComplianceEventRepository
func NewGormComplianceEventRepository(db *gorm.DB) *GormComplianceEventRepository {
	return &GormComplianceEventRepository{db: db}
}

// Append inserts an event
func (r *GormComplianceEventRepository) Append(ctx context.Context, event *compliance.Event) error {
	return translateError(r.db.WithContext(ctx).Create(models.ComplianceEventModelFromDomain(event)).Error)
}

// FindByDocument lists the events of a document in creation order
func (r *GormComplianceEventRepository) FindByDocument(ctx context.Context, tenantID, documentID uuid.UUID) ([]compliance.Event, error) {
	return r.find(r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("document_id = ?", documentID))
}

// FindByType lists the events of one type in creation order
func (r *GormComplianceEventRepository) FindByType(ctx context.Context, tenantID uuid.UUID, eventType compliance.EventType) ([]compliance.Event, error) {
	return r.find(r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("event_type = ?", eventType))
}

func (r *GormComplianceEventRepository) find(query *gorm.DB) ([]compliance.Event, error) {
	var rows []models.ComplianceEventModel
	if err := query.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	events := make([]compliance.Event, len(rows))
	for i := range rows {
		events[i] = *rows[i].ToDomain()
	}
	return events, nil
}

// GormAuditLogRepository implements compliance.AuditLogRepository
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewGormAuditLogRepository creates a new GormAuditLogRepository
func NewGormAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Append inserts an audit entry
func (r *GormAuditLogRepository) Append(ctx context.Context, entry *compliance.AuditLog) error {
	return translateError(r.db.WithContext(ctx).Create(models.AuditLogModelFromDomain(entry)).Error)
}

// FindByEntity lists the audit entries of an entity in creation order
func (r *GormAuditLogRepository) FindByEntity(ctx context.Context, tenantID, entityID uuid.UUID) ([]compliance.AuditLog, error) {
	var rows []models.AuditLogModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("entity_id = ?", entityID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	entries := make([]compliance.AuditLog, len(rows))
	for i := range rows {
		entries[i] = *rows[i].ToDomain()
	}
	return entries, nil
}

// GormExportBatchRepository implements compliance.ExportBatchRepository
type GormExportBatchRepository struct {
	db *gorm.DB
}

// NewGormExportBatchRepository creates a new GormExportBatchRepository
func NewGormExportBatchRepository(db *gorm.DB) *GormExportBatchRepository {
	return &GormExportBatchRepository{db: db}
}

// Append inserts export batch metadata
func (r *GormExportBatchRepository) Append(ctx context.Context, batch *compliance.ExportBatch) error {
	return translateError(r.db.WithContext(ctx).Create(models.ExportBatchModelFromDomain(batch)).Error)
}

// FindByTenant lists the export batches of a tenant, newest first
func (r *GormExportBatchRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]compliance.ExportBatch, error) {
	var rows []models.ExportBatchModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Order("generated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	batches := make([]compliance.ExportBatch, len(rows))
	for i := range rows {
		batches[i] = *rows[i].ToDomain()
	}
	return batches, nil
}

var (
	_ compliance.EventRepository       = (*GormComplianceEventRepository)(nil)
	_ compliance.AuditLogRepository    = (*GormAuditLogRepository)(nil)
	_ compliance.ExportBatchRepository = (*GormExportBatchRepository)(nil)
)
