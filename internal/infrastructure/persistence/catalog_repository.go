package persistence

import (
	"context"

	"github.com/erp/posting/internal/domain/catalog"
	"github.com/erp/posting/internal/domain/identity"
	"github.com/erp/posting/internal/infrastructure/persistence/models"
	"github.com/erp/posting/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByIDForTenant finds a product by ID within a tenant
func (r *GormProductRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByIDs finds multiple products of a tenant; unknown IDs are skipped
func (r *GormProductRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var rows []models.ProductModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	products := make([]catalog.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products, nil
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return translateError(r.db.WithContext(ctx).Save(models.ProductModelFromDomain(product)).Error)
}

// GormTenantRepository implements TenantRepository using GORM
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// FindByID finds a tenant by its ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	var model models.TenantModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindActive returns active tenants ordered by code
func (r *GormTenantRepository) FindActive(ctx context.Context) ([]identity.Tenant, error) {
	var rows []models.TenantModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", identity.TenantStatusActive).
		Order("code ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	tenants := make([]identity.Tenant, len(rows))
	for i := range rows {
		tenants[i] = *rows[i].ToDomain()
	}
	return tenants, nil
}

// Save creates or updates a tenant
func (r *GormTenantRepository) Save(ctx context.Context, t *identity.Tenant) error {
	return translateError(r.db.WithContext(ctx).Save(models.TenantModelFromDomain(t)).Error)
}

var (
	_ catalog.ProductRepository = (*GormProductRepository)(nil)
	_ identity.TenantRepository = (*GormTenantRepository)(nil)
)
