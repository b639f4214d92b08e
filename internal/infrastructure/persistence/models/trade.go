package models

import (
	"time"

	"github.com/erp/posting/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VendorBillModel is the persistence model for the VendorBill aggregate
type VendorBillModel struct {
	TenantAggregateModel
	SupplierName string                 `gorm:"type:varchar(200)"`
	BillNumber   string                 `gorm:"type:varchar(50);not null"`
	WarehouseID  *uuid.UUID             `gorm:"type:uuid"`
	Status       trade.VendorBillStatus `gorm:"type:varchar(20);not null"`
	ReceivedAt   *time.Time
	Lines        []VendorBillLineModel `gorm:"foreignKey:BillID;references:ID"`
}

// TableName returns the table name for GORM
func (VendorBillModel) TableName() string {
	return "vendor_bills"
}

// ToDomain converts the persistence model to a domain VendorBill
func (m *VendorBillModel) ToDomain() *trade.VendorBill {
	bill := &trade.VendorBill{
		TenantAggregateRoot: m.TenantAggregateRoot(),
		SupplierName:        m.SupplierName,
		BillNumber:          m.BillNumber,
		WarehouseID:         m.WarehouseID,
		Status:              m.Status,
		ReceivedAt:          m.ReceivedAt,
		Lines:               make([]trade.VendorBillLine, len(m.Lines)),
	}
	for i, l := range m.Lines {
		bill.Lines[i] = trade.VendorBillLine{
			ID:          l.ID,
			BillID:      l.BillID,
			LineNo:      l.LineNo,
			ProductID:   l.ProductID,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitCost:    l.UnitCost,
		}
	}
	return bill
}

// VendorBillModelFromDomain creates a persistence model from a domain VendorBill
func VendorBillModelFromDomain(b *trade.VendorBill) *VendorBillModel {
	m := &VendorBillModel{
		SupplierName: b.SupplierName,
		BillNumber:   b.BillNumber,
		WarehouseID:  b.WarehouseID,
		Status:       b.Status,
		ReceivedAt:   b.ReceivedAt,
		Lines:        make([]VendorBillLineModel, len(b.Lines)),
	}
	m.FromDomainTenantAggregateRoot(b.TenantAggregateRoot)
	for i, l := range b.Lines {
		m.Lines[i] = VendorBillLineModel{
			ID:          l.ID,
			BillID:      l.BillID,
			LineNo:      l.LineNo,
			ProductID:   l.ProductID,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitCost:    l.UnitCost,
		}
	}
	return m
}

// VendorBillLineModel is the persistence model for a vendor bill line
type VendorBillLineModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BillID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo      int             `gorm:"not null"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null"`
	Description string          `gorm:"type:text"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (VendorBillLineModel) TableName() string {
	return "vendor_bill_lines"
}
