package persistence

import (
	"context"
	"time"

	"github.com/erp/posting/internal/domain/document"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/persistence/models"
	"github.com/erp/posting/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDocumentRepository implements DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

// FindByIDForTenant finds a document by ID within a tenant
func (r *GormDocumentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*document.Document, error) {
	var model models.DocumentModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Preload("Lines", orderedLines).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByID finds a document by ID regardless of tenant
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	var model models.DocumentModel
	err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindForUpdate loads a document under SELECT ... FOR UPDATE
func (r *GormDocumentRepository) FindForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*document.Document, error) {
	var model models.DocumentModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(tenant.TenantScope(tenantID)).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}

	var lines []models.DocumentLineModel
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", id).
		Order("line_no ASC").
		Find(&lines).Error; err != nil {
		return nil, translateError(err)
	}
	model.Lines = lines
	return model.ToDomain(), nil
}

// FindAllForTenant lists documents of a tenant with filtering and pagination
func (r *GormDocumentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]document.Document, int64, error) {
	base := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&models.DocumentModel{}).Scopes(tenant.TenantScope(tenantID)),
		filter,
	)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var rows []models.DocumentModel
	if err := r.applyFilter(base, filter).Preload("Lines", orderedLines).Find(&rows).Error; err != nil {
		return nil, 0, translateError(err)
	}

	docs := make([]document.Document, len(rows))
	for i := range rows {
		docs[i] = *rows[i].ToDomain()
	}
	return docs, total, nil
}

// FindPostedInChain returns the posted documents of a chain in number order
func (r *GormDocumentRepository) FindPostedInChain(ctx context.Context, tenantID uuid.UUID, series string) ([]document.Document, error) {
	var rows []models.DocumentModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Preload("Lines", orderedLines).
		Where("series = ? AND status = ?", series, document.StatusPosted).
		Order("number ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	return toDocuments(rows), nil
}

// FindPostedSeries lists the series with at least one posted document
func (r *GormDocumentRepository) FindPostedSeries(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	var series []string
	err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Scopes(tenant.TenantScope(tenantID)).
		Where("status = ?", document.StatusPosted).
		Distinct("series").
		Order("series ASC").
		Pluck("series", &series).Error
	if err != nil {
		return nil, translateError(err)
	}
	return series, nil
}

// FindPostedBetween returns posted documents whose posting time is in [from, to)
func (r *GormDocumentRepository) FindPostedBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]document.Document, error) {
	var rows []models.DocumentModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Preload("Lines", orderedLines).
		Where("status = ? AND posted_at >= ? AND posted_at < ?", document.StatusPosted, from, to).
		Order("series ASC").
		Order("number ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	return toDocuments(rows), nil
}

// CountCorrections counts non-cancelled credit notes referencing a document
func (r *GormDocumentRepository) CountCorrections(ctx context.Context, tenantID, originalID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Scopes(tenant.TenantScope(tenantID)).
		Where("corrects_document_id = ? AND status <> ?", originalID, document.StatusCancelled).
		Count(&count).Error
	if err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

// CreateDraft inserts a draft header and its lines
func (r *GormDocumentRepository) CreateDraft(ctx context.Context, doc *document.Document) error {
	if doc.IsLocked() {
		return shared.ErrDocumentLocked
	}
	model := models.DocumentModelFromDomain(doc)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// SaveDraft updates a draft and replaces its lines. The update is guarded on
// the stored row still being an unlocked draft.
func (r *GormDocumentRepository) SaveDraft(ctx context.Context, doc *document.Document) error {
	model := models.DocumentModelFromDomain(doc)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := r.guarded(tx, doc).Updates(map[string]any{
			"status":        model.Status,
			"issue_date":    model.IssueDate,
			"currency":      model.Currency,
			"customer_ref":  model.CustomerRef,
			"total_net":     model.TotalNet,
			"total_tax":     model.TotalTax,
			"total_gross":   model.TotalGross,
			"cancelled_at":  model.CancelledAt,
			"cancel_reason": model.CancelReason,
			"updated_at":    model.UpdatedAt,
			"version":       model.Version,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.missingOrLocked(tx, doc)
		}

		if err := tx.Where("document_id = ?", doc.ID).Delete(&models.DocumentLineModel{}).Error; err != nil {
			return err
		}
		if len(model.Lines) == 0 {
			return nil
		}
		return tx.Create(&model.Lines).Error
	})
	return translateError(err)
}

// SavePosted writes the line amounts that went into the hash, plus any
// captured costs, and seals the header in one guarded UPDATE. Zero affected
// rows means another transaction already posted or cancelled the document.
func (r *GormDocumentRepository) SavePosted(ctx context.Context, doc *document.Document) error {
	model := models.DocumentModelFromDomain(doc)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range model.Lines {
			values := map[string]any{
				"line_net":   line.LineNet,
				"line_tax":   line.LineTax,
				"line_gross": line.LineGross,
			}
			if line.UnitCost != nil {
				values["unit_cost"] = line.UnitCost
				values["total_cost"] = line.TotalCost
			}
			if err := tx.Model(&models.DocumentLineModel{}).
				Where("id = ? AND document_id = ?", line.ID, doc.ID).
				Updates(values).Error; err != nil {
				return err
			}
		}

		result := r.guarded(tx, doc).Updates(map[string]any{
			"status":            model.Status,
			"number":            model.Number,
			"full_number":       model.FullNumber,
			"total_net":         model.TotalNet,
			"total_tax":         model.TotalTax,
			"total_gross":       model.TotalGross,
			"payload":           model.Payload,
			"canonical_payload": model.CanonicalPayload,
			"hash":              model.Hash,
			"previous_hash":     model.PreviousHash,
			"qr_payload":        model.QRPayload,
			"posted_at":         model.PostedAt,
			"posted_by":         model.PostedBy,
			"locked_at":         model.LockedAt,
			"updated_at":        model.UpdatedAt,
			"version":           model.Version,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.missingOrLocked(tx, doc)
		}
		return nil
	})
	return translateError(err)
}

func (r *GormDocumentRepository) guarded(tx *gorm.DB, doc *document.Document) *gorm.DB {
	return tx.Model(&models.DocumentModel{}).
		Scopes(tenant.TenantScope(doc.TenantID)).
		Where("id = ? AND status = ? AND locked_at IS NULL", doc.ID, document.StatusDraft)
}

func (r *GormDocumentRepository) missingOrLocked(tx *gorm.DB, doc *document.Document) error {
	var count int64
	if err := tx.Model(&models.DocumentModel{}).
		Scopes(tenant.TenantScope(doc.TenantID)).
		Where("id = ?", doc.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return shared.ErrDocumentLocked
}

func (r *GormDocumentRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	orderBy := ValidateSortField(filter.OrderBy, DocumentSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

func (r *GormDocumentRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "series":
			query = query.Where("series = ?", value)
		case "doc_type":
			query = query.Where("doc_type = ?", value)
		case "corrects_document_id":
			query = query.Where("corrects_document_id = ?", value)
		case "start_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("issue_date >= ?", t)
			}
		case "end_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("issue_date <= ?", t)
			}
		}
	}
	return query
}

func toDocuments(rows []models.DocumentModel) []document.Document {
	docs := make([]document.Document, len(rows))
	for i := range rows {
		docs[i] = *rows[i].ToDomain()
	}
	return docs
}

// Ensure GormDocumentRepository implements DocumentRepository
var _ document.DocumentRepository = (*GormDocumentRepository)(nil)
