package catalog

import (
	"strings"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductKind controls whether a product participates in perpetual inventory
type ProductKind string

const (
	ProductKindStockable  ProductKind = "stockable"
	ProductKindConsumable ProductKind = "consumable"
	ProductKindService    ProductKind = "service"
)

// IsValid checks if the kind is known
func (k ProductKind) IsValid() bool {
	switch k {
	case ProductKindStockable, ProductKindConsumable, ProductKindService:
		return true
	}
	return false
}

// Product is a sellable or purchasable item of a tenant's catalog
type Product struct {
	shared.TenantAggregateRoot
	Code   string
	Name   string
	Kind   ProductKind
	Active bool
}

// NewProduct creates a new active product
func NewProduct(tenantID uuid.UUID, code, name string, kind ProductKind, at time.Time) (*Product, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Product code cannot be empty")
	}
	if len(code) > 50 {
		return nil, shared.NewDomainError("INVALID_CODE", "Product code cannot exceed 50 characters")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_PRODUCT_KIND", "Product kind must be stockable, consumable or service")
	}

	return &Product{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, at),
		Code:                code,
		Name:                name,
		Kind:                kind,
		Active:              true,
	}, nil
}

// IsStockable reports whether inventory moves may be posted for this product.
// Consumables are tracked like stockable goods; services never move stock.
func (p *Product) IsStockable() bool {
	return p.Kind == ProductKindStockable || p.Kind == ProductKindConsumable
}
