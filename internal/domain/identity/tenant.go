package identity

import (
	"strings"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

// TenantStatus represents the status of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
)

// Tenant is an isolated company whose documents, stock and sequences never
// mix with another tenant's.
type Tenant struct {
	shared.BaseAggregateRoot
	Code               string
	Name               string
	TaxID              string // issuer tax id printed in the chain and the QR payload
	Currency           string
	Timezone           string
	Status             TenantStatus
	DefaultWarehouseID *uuid.UUID
	DefaultLocationID  *uuid.UUID
}

// NewTenant creates a new active tenant
func NewTenant(code, name, taxID, currency string, at time.Time) (*Tenant, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Tenant code cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Tenant name cannot be empty")
	}
	taxID = strings.ToUpper(strings.TrimSpace(taxID))
	if taxID == "" {
		return nil, shared.NewDomainError("INVALID_TAX_ID", "Tenant tax id cannot be empty")
	}
	if len(currency) != 3 {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter ISO code")
	}

	return &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(at),
		Code:              code,
		Name:              name,
		TaxID:             taxID,
		Currency:          strings.ToUpper(currency),
		Timezone:          "UTC",
		Status:            TenantStatusActive,
	}, nil
}

// SetDefaultStockLocation sets where posted documents move stock
func (t *Tenant) SetDefaultStockLocation(warehouseID uuid.UUID, locationID *uuid.UUID, at time.Time) {
	t.DefaultWarehouseID = &warehouseID
	t.DefaultLocationID = locationID
	t.MarkChanged(at)
}

// StockLocation returns the default warehouse and optional location.
// Fails when the tenant has not configured a default warehouse.
func (t *Tenant) StockLocation() (uuid.UUID, *uuid.UUID, error) {
	if t.DefaultWarehouseID == nil {
		return uuid.Nil, nil, shared.NewDomainError("NO_DEFAULT_WAREHOUSE", "Tenant has no default warehouse configured")
	}
	return *t.DefaultWarehouseID, t.DefaultLocationID, nil
}

// Location returns the tenant timezone, falling back to UTC
func (t *Tenant) Location() *time.Location {
	if t.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
