package persistence

import (
	"context"
	"time"

	"github.com/erp/posting/internal/domain/inventory"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/persistence/models"
	"github.com/erp/posting/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockMoveRepository implements StockMoveRepository using GORM.
// The ledger is append only: there is no update or delete.
type GormStockMoveRepository struct {
	db *gorm.DB
}

// NewGormStockMoveRepository creates a new GormStockMoveRepository
func NewGormStockMoveRepository(db *gorm.DB) *GormStockMoveRepository {
	return &GormStockMoveRepository{db: db}
}

// Append inserts a move
func (r *GormStockMoveRepository) Append(ctx context.Context, move *inventory.StockMove) error {
	return translateError(r.db.WithContext(ctx).Create(models.StockMoveModelFromDomain(move)).Error)
}

// FindInflows returns the inflow moves of a product across warehouses, oldest first
func (r *GormStockMoveRepository) FindInflows(ctx context.Context, tenantID, productID uuid.UUID) ([]inventory.StockMove, error) {
	var rows []models.StockMoveModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("product_id = ? AND move_type IN ?", productID, inventory.InflowMoveTypes).
		Order("moved_at ASC").
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	return toStockMoves(rows), nil
}

// SumQuantity returns the signed quantity sum of a product in a warehouse
func (r *GormStockMoveRepository) SumQuantity(ctx context.Context, tenantID, productID, warehouseID uuid.UUID) (decimal.Decimal, error) {
	var out struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.StockMoveModel{}).
		Select("COALESCE(SUM(quantity), 0) AS total").
		Scopes(tenant.TenantScope(tenantID)).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		Scan(&out).Error
	if err != nil {
		return decimal.Zero, translateError(err)
	}
	return out.Total, nil
}

// ExistsForSourceLine reports whether a source line already produced a move
func (r *GormStockMoveRepository) ExistsForSourceLine(ctx context.Context, tenantID uuid.UUID, sourceType inventory.SourceType, sourceLineID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StockMoveModel{}).
		Scopes(tenant.TenantScope(tenantID)).
		Where("source_type = ? AND source_line_id = ?", sourceType, sourceLineID).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// FindByProduct lists the moves of a product with pagination, newest first by default
func (r *GormStockMoveRepository) FindByProduct(ctx context.Context, tenantID, productID uuid.UUID, filter shared.Filter) ([]inventory.StockMove, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.StockMoveModel{}).
		Scopes(tenant.TenantScope(tenantID)).
		Where("product_id = ?", productID)
	if warehouseID, ok := filter.Filters["warehouse_id"]; ok {
		query = query.Where("warehouse_id = ?", warehouseID)
	}
	if moveType, ok := filter.Filters["move_type"]; ok {
		query = query.Where("move_type = ?", moveType)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	orderBy := ValidateSortField(filter.OrderBy, StockMoveSortFields, "moved_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.StockMoveModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return toStockMoves(rows), total, nil
}

func toStockMoves(rows []models.StockMoveModel) []inventory.StockMove {
	moves := make([]inventory.StockMove, len(rows))
	for i := range rows {
		moves[i] = *rows[i].ToDomain()
	}
	return moves
}

// GormProductCostRepository implements ProductCostRepository using GORM
type GormProductCostRepository struct {
	db *gorm.DB
}

// NewGormProductCostRepository creates a new GormProductCostRepository
func NewGormProductCostRepository(db *gorm.DB) *GormProductCostRepository {
	return &GormProductCostRepository{db: db}
}

// Find returns the cost record of a product
func (r *GormProductCostRepository) Find(ctx context.Context, tenantID, productID uuid.UUID) (*inventory.ProductCost, error) {
	var model models.ProductCostModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("product_id = ?", productID).
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// GetOrCreateForUpdate seeds a zero-cost row if missing, then locks it
func (r *GormProductCostRepository) GetOrCreateForUpdate(ctx context.Context, tenantID, productID uuid.UUID) (*inventory.ProductCost, error) {
	db := r.db.WithContext(ctx)
	seed := models.ProductCostModelFromDomain(inventory.NewProductCost(tenantID, productID, time.Now().UTC()))
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
		return nil, translateError(err)
	}

	var model models.ProductCostModel
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(tenant.TenantScope(tenantID)).
		Where("product_id = ?", productID).
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Save upserts a cost record
func (r *GormProductCostRepository) Save(ctx context.Context, cost *inventory.ProductCost) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"average_cost", "recalculated_at"}),
		}).
		Create(models.ProductCostModelFromDomain(cost)).Error
	return translateError(err)
}

// GormStockOnHandRepository implements StockOnHandRepository using GORM
type GormStockOnHandRepository struct {
	db *gorm.DB
}

// NewGormStockOnHandRepository creates a new GormStockOnHandRepository
func NewGormStockOnHandRepository(db *gorm.DB) *GormStockOnHandRepository {
	return &GormStockOnHandRepository{db: db}
}

// Upsert writes the projection row
func (r *GormStockOnHandRepository) Upsert(ctx context.Context, onHand *inventory.StockOnHand) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "product_id"}, {Name: "warehouse_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).
		Create(models.StockOnHandModelFromDomain(onHand)).Error
	return translateError(err)
}

// Find returns the projection row
func (r *GormStockOnHandRepository) Find(ctx context.Context, tenantID, productID, warehouseID uuid.UUID) (*inventory.StockOnHand, error) {
	var model models.StockOnHandModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// GormNegativeStockAlertRepository implements NegativeStockAlertRepository using GORM
type GormNegativeStockAlertRepository struct {
	db *gorm.DB
}

// NewGormNegativeStockAlertRepository creates a new GormNegativeStockAlertRepository
func NewGormNegativeStockAlertRepository(db *gorm.DB) *GormNegativeStockAlertRepository {
	return &GormNegativeStockAlertRepository{db: db}
}

// Save inserts an alert
func (r *GormNegativeStockAlertRepository) Save(ctx context.Context, alert *inventory.NegativeStockAlert) error {
	return translateError(r.db.WithContext(ctx).Create(models.NegativeStockAlertModelFromDomain(alert)).Error)
}

// FindByProduct lists alerts of a product, newest first
func (r *GormNegativeStockAlertRepository) FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]inventory.NegativeStockAlert, error) {
	var rows []models.NegativeStockAlertModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	alerts := make([]inventory.NegativeStockAlert, len(rows))
	for i := range rows {
		alerts[i] = *rows[i].ToDomain()
	}
	return alerts, nil
}

var (
	_ inventory.StockMoveRepository          = (*GormStockMoveRepository)(nil)
	_ inventory.ProductCostRepository        = (*GormProductCostRepository)(nil)
	_ inventory.StockOnHandRepository        = (*GormStockOnHandRepository)(nil)
	_ inventory.NegativeStockAlertRepository = (*GormNegativeStockAlertRepository)(nil)
)
