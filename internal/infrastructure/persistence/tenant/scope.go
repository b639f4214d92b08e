// Package tenant provides tenant scoping for GORM queries. Every repository
// read and write that touches tenant data goes through TenantScope, so a
// caller cannot see or change another tenant's rows by ID alone.
package tenant

import (
	"context"
	"errors"

	"github.com/erp/posting/internal/infrastructure/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when tenant_id is required but not found
var ErrTenantIDRequired = errors.New("tenant_id is required but not found in context")

// ErrInvalidTenantID is returned when tenant_id format is invalid
var ErrInvalidTenantID = errors.New("invalid tenant_id format")

// TenantScope applies tenant filtering to GORM queries. A nil tenant ID
// makes the statement fail instead of silently matching nothing.
func TenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == uuid.Nil {
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		return db.Where("tenant_id = ?", tenantID)
	}
}

// ContextScope applies the tenant carried by the request context
func ContextScope(ctx context.Context) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		raw := logger.GetTenantID(ctx)
		if raw == "" {
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			_ = db.AddError(ErrInvalidTenantID)
			return db
		}
		return db.Where("tenant_id = ?", id)
	}
}

// FromContext parses the tenant ID stored in ctx
func FromContext(ctx context.Context) (uuid.UUID, error) {
	raw := logger.GetTenantID(ctx)
	if raw == "" {
		return uuid.Nil, ErrTenantIDRequired
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidTenantID
	}
	return id, nil
}
