package inventory

import (
	"time"

	"github.com/erp/posting/internal/domain/inventory"
	"github.com/erp/posting/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PostMoveCommand describes a single stock movement
type PostMoveCommand struct {
	TenantID    uuid.UUID
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	LocationID  *uuid.UUID
	MoveType    inventory.MoveType
	Quantity    decimal.Decimal // signed
	UnitCost    *decimal.Decimal
	Source      inventory.MoveSource
	OperatorID  *uuid.UUID
}

// MoveResult is the outcome of posting a move
type MoveResult struct {
	Move   *inventory.StockMove
	OnHand decimal.Decimal
	Alert  *inventory.NegativeStockAlert // set when on-hand went negative
}

// PostMoveRequest is the HTTP body for a manual stock move
type PostMoveRequest struct {
	ProductID   uuid.UUID        `json:"product_id" binding:"required"`
	WarehouseID uuid.UUID        `json:"warehouse_id" binding:"required"`
	LocationID  *uuid.UUID       `json:"location_id"`
	MoveType    string           `json:"move_type" binding:"required"`
	Quantity    decimal.Decimal  `json:"quantity" binding:"required"`
	UnitCost    *decimal.Decimal `json:"unit_cost"`
}

// StockMoveResponse represents a stock move in API responses
type StockMoveResponse struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"product_id"`
	WarehouseID  uuid.UUID       `json:"warehouse_id"`
	LocationID   *uuid.UUID      `json:"location_id,omitempty"`
	MoveType     string          `json:"move_type"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	SourceType   string          `json:"source_type"`
	SourceID     *uuid.UUID      `json:"source_id,omitempty"`
	SourceLineID *uuid.UUID      `json:"source_line_id,omitempty"`
	MovedAt      time.Time       `json:"moved_at"`
}

// ToStockMoveResponse converts a domain StockMove to a response
func ToStockMoveResponse(m *inventory.StockMove) StockMoveResponse {
	return StockMoveResponse{
		ID:           m.ID,
		ProductID:    m.ProductID,
		WarehouseID:  m.WarehouseID,
		LocationID:   m.LocationID,
		MoveType:     string(m.MoveType),
		Quantity:     m.Quantity,
		UnitCost:     m.UnitCost,
		TotalCost:    m.TotalCost,
		SourceType:   string(m.SourceType),
		SourceID:     m.SourceID,
		SourceLineID: m.SourceLineID,
		MovedAt:      m.MovedAt,
	}
}

// MoveListFilter represents filter options for listing moves of a product
type MoveListFilter struct {
	WarehouseID string `form:"warehouse_id" binding:"omitempty,uuid"`
	MoveType    string `form:"move_type"`
	Page        int    `form:"page" binding:"omitempty,min=1"`
	PageSize    int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy     string `form:"order_by"`
	OrderDir    string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ProductCostResponse represents the average cost of a product
type ProductCostResponse struct {
	ProductID      uuid.UUID       `json:"product_id"`
	AverageCost    decimal.Decimal `json:"average_cost"`
	RecalculatedAt time.Time       `json:"recalculated_at"`
}

// ToProductCostResponse converts a domain ProductCost to a response
func ToProductCostResponse(c *inventory.ProductCost) ProductCostResponse {
	return ProductCostResponse{
		ProductID:      c.ProductID,
		AverageCost:    c.AverageCost,
		RecalculatedAt: c.RecalculatedAt,
	}
}

// CreateVendorBillRequest is the HTTP body for registering a vendor bill
type CreateVendorBillRequest struct {
	SupplierName string                  `json:"supplier_name" binding:"max=200"`
	BillNumber   string                  `json:"bill_number" binding:"required,max=50"`
	WarehouseID  *uuid.UUID              `json:"warehouse_id"`
	Lines        []VendorBillLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// VendorBillLineRequest is one purchased line
type VendorBillLineRequest struct {
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitCost    decimal.Decimal `json:"unit_cost" binding:"gte=0"`
}

// VendorBillResponse represents a vendor bill in API responses
type VendorBillResponse struct {
	ID           uuid.UUID  `json:"id"`
	SupplierName string     `json:"supplier_name"`
	BillNumber   string     `json:"bill_number"`
	WarehouseID  *uuid.UUID `json:"warehouse_id,omitempty"`
	Status       string     `json:"status"`
	ReceivedAt   *time.Time `json:"received_at,omitempty"`
	LineCount    int        `json:"line_count"`
}

// ToVendorBillResponse converts a domain VendorBill to a response
func ToVendorBillResponse(b *trade.VendorBill) VendorBillResponse {
	return VendorBillResponse{
		ID:           b.ID,
		SupplierName: b.SupplierName,
		BillNumber:   b.BillNumber,
		WarehouseID:  b.WarehouseID,
		Status:       string(b.Status),
		ReceivedAt:   b.ReceivedAt,
		LineCount:    len(b.Lines),
	}
}

// ReceiveResult reports what receiving a vendor bill did
type ReceiveResult struct {
	BillID  uuid.UUID           `json:"bill_id"`
	Posted  []StockMoveResponse `json:"posted"`
	Skipped []uuid.UUID         `json:"skipped_line_ids"` // lines that already had a move
}

// PreviewLine is the projected cost position after one bill line
type PreviewLine struct {
	LineNo      int             `json:"line_no"`
	ProductID   uuid.UUID       `json:"product_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	OnHand      decimal.Decimal `json:"on_hand"`
	AverageCost decimal.Decimal `json:"average_cost"`
}
