package models

import (
	"time"

	"github.com/erp/posting/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockMoveModel is the persistence model for an append-only stock move
type StockMoveModel struct {
	ID           uuid.UUID            `gorm:"type:uuid;primaryKey"`
	TenantID     uuid.UUID            `gorm:"type:uuid;not null;index:idx_stock_moves_product,priority:1"`
	ProductID    uuid.UUID            `gorm:"type:uuid;not null;index:idx_stock_moves_product,priority:2"`
	WarehouseID  uuid.UUID            `gorm:"type:uuid;not null;index:idx_stock_moves_product,priority:3"`
	LocationID   *uuid.UUID           `gorm:"type:uuid"`
	MoveType     inventory.MoveType   `gorm:"type:varchar(20);not null"`
	Quantity     decimal.Decimal      `gorm:"type:decimal(18,3);not null"`
	UnitCost     decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	TotalCost    decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	SourceType   inventory.SourceType `gorm:"type:varchar(20);not null;index:idx_stock_moves_source,priority:1"`
	SourceID     *uuid.UUID           `gorm:"type:uuid"`
	SourceLineID *uuid.UUID           `gorm:"type:uuid;index:idx_stock_moves_source,priority:2"`
	OperatorID   *uuid.UUID           `gorm:"type:uuid"`
	MovedAt      time.Time            `gorm:"not null"`
	CreatedAt    time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockMoveModel) TableName() string {
	return "stock_moves"
}

// ToDomain converts the persistence model to a domain StockMove
func (m *StockMoveModel) ToDomain() *inventory.StockMove {
	return &inventory.StockMove{
		ID:           m.ID,
		TenantID:     m.TenantID,
		ProductID:    m.ProductID,
		WarehouseID:  m.WarehouseID,
		LocationID:   m.LocationID,
		MoveType:     m.MoveType,
		Quantity:     m.Quantity,
		UnitCost:     m.UnitCost,
		TotalCost:    m.TotalCost,
		SourceType:   m.SourceType,
		SourceID:     m.SourceID,
		SourceLineID: m.SourceLineID,
		OperatorID:   m.OperatorID,
		MovedAt:      m.MovedAt,
		CreatedAt:    m.CreatedAt,
	}
}

// StockMoveModelFromDomain creates a persistence model from a domain StockMove
func StockMoveModelFromDomain(s *inventory.StockMove) *StockMoveModel {
	return &StockMoveModel{
		ID:           s.ID,
		TenantID:     s.TenantID,
		ProductID:    s.ProductID,
		WarehouseID:  s.WarehouseID,
		LocationID:   s.LocationID,
		MoveType:     s.MoveType,
		Quantity:     s.Quantity,
		UnitCost:     s.UnitCost,
		TotalCost:    s.TotalCost,
		SourceType:   s.SourceType,
		SourceID:     s.SourceID,
		SourceLineID: s.SourceLineID,
		OperatorID:   s.OperatorID,
		MovedAt:      s.MovedAt,
		CreatedAt:    s.CreatedAt,
	}
}

// ProductCostModel is the average-cost projection row of a product
type ProductCostModel struct {
	TenantID       uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProductID      uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AverageCost    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	RecalculatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductCostModel) TableName() string {
	return "product_costs"
}

// ToDomain converts the persistence model to a domain ProductCost
func (m *ProductCostModel) ToDomain() *inventory.ProductCost {
	return &inventory.ProductCost{
		TenantID:       m.TenantID,
		ProductID:      m.ProductID,
		AverageCost:    m.AverageCost,
		RecalculatedAt: m.RecalculatedAt,
	}
}

// ProductCostModelFromDomain creates a persistence model from a domain ProductCost
func ProductCostModelFromDomain(c *inventory.ProductCost) *ProductCostModel {
	return &ProductCostModel{
		TenantID:       c.TenantID,
		ProductID:      c.ProductID,
		AverageCost:    c.AverageCost,
		RecalculatedAt: c.RecalculatedAt,
	}
}

// StockOnHandModel is the current quantity projection of a product in a warehouse
type StockOnHandModel struct {
	TenantID    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProductID   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	WarehouseID uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,3);not null;default:0"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockOnHandModel) TableName() string {
	return "stock_on_hand"
}

// ToDomain converts the persistence model to a domain StockOnHand
func (m *StockOnHandModel) ToDomain() *inventory.StockOnHand {
	return &inventory.StockOnHand{
		TenantID:    m.TenantID,
		ProductID:   m.ProductID,
		WarehouseID: m.WarehouseID,
		Quantity:    m.Quantity,
		UpdatedAt:   m.UpdatedAt,
	}
}

// NegativeStockAlertModel is the persistence model for negative-stock alerts
type NegativeStockAlertModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_negative_stock_alerts_product,priority:1"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_negative_stock_alerts_product,priority:2"`
	WarehouseID uuid.UUID       `gorm:"type:uuid;not null"`
	StockMoveID uuid.UUID       `gorm:"type:uuid;not null"`
	OnHand      decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	CreatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (NegativeStockAlertModel) TableName() string {
	return "negative_stock_alerts"
}

// ToDomain converts the persistence model to a domain NegativeStockAlert
func (m *NegativeStockAlertModel) ToDomain() *inventory.NegativeStockAlert {
	return &inventory.NegativeStockAlert{
		ID:          m.ID,
		TenantID:    m.TenantID,
		ProductID:   m.ProductID,
		WarehouseID: m.WarehouseID,
		StockMoveID: m.StockMoveID,
		OnHand:      m.OnHand,
		CreatedAt:   m.CreatedAt,
	}
}

// StockOnHandModelFromDomain creates a persistence model from a domain StockOnHand
func StockOnHandModelFromDomain(s *inventory.StockOnHand) *StockOnHandModel {
	return &StockOnHandModel{
		TenantID:    s.TenantID,
		ProductID:   s.ProductID,
		WarehouseID: s.WarehouseID,
		Quantity:    s.Quantity,
		UpdatedAt:   s.UpdatedAt,
	}
}

// NegativeStockAlertModelFromDomain creates a persistence model from a domain NegativeStockAlert
func NegativeStockAlertModelFromDomain(a *inventory.NegativeStockAlert) *NegativeStockAlertModel {
	return &NegativeStockAlertModel{
		ID:          a.ID,
		TenantID:    a.TenantID,
		ProductID:   a.ProductID,
		WarehouseID: a.WarehouseID,
		StockMoveID: a.StockMoveID,
		OnHand:      a.OnHand,
		CreatedAt:   a.CreatedAt,
	}
}
