package persistence

import (
	"context"

	"github.com/erp/posting/internal/domain/trade"
	"github.com/erp/posting/internal/infrastructure/persistence/models"
	"github.com/erp/posting/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVendorBillRepository implements VendorBillRepository using GORM
type GormVendorBillRepository struct {
	db *gorm.DB
}

// NewGormVendorBillRepository creates a new GormVendorBillRepository
func NewGormVendorBillRepository(db *gorm.DB) *GormVendorBillRepository {
	return &GormVendorBillRepository{db: db}
}

// FindByIDForTenant loads a bill with its lines
func (r *GormVendorBillRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*trade.VendorBill, error) {
	var model models.VendorBillModel
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

// FindForUpdate loads a bill under SELECT ... FOR UPDATE. Concurrent
// receipts of the same bill queue on the header row.
func (r *GormVendorBillRepository) FindForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*trade.VendorBill, error) {
	var model models.VendorBillModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(tenant.TenantScope(tenantID)).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	if err := r.db.WithContext(ctx).
		Where("bill_id = ?", id).
		Order("line_no ASC").
		Find(&model.Lines).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a bill with its lines
func (r *GormVendorBillRepository) Create(ctx context.Context, bill *trade.VendorBill) error {
	return translateError(r.db.WithContext(ctx).Create(models.VendorBillModelFromDomain(bill)).Error)
}

// UpdateStatus persists the receiving status of a bill
func (r *GormVendorBillRepository) UpdateStatus(ctx context.Context, bill *trade.VendorBill) error {
	result := r.db.WithContext(ctx).
		Model(&models.VendorBillModel{}).
		Scopes(tenant.TenantScope(bill.TenantID)).
		Where("id = ?", bill.ID).
		Updates(map[string]any{
			"status":      bill.Status,
			"received_at": bill.ReceivedAt,
			"updated_at":  bill.UpdatedAt,
			"version":     bill.Version,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound)
	}
	return nil
}

var _ trade.VendorBillRepository = (*GormVendorBillRepository)(nil)
