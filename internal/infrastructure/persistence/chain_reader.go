package persistence

import (
	"context"

	"github.com/erp/posting/internal/domain/document"
	"github.com/erp/posting/internal/infrastructure/persistence/models"
	"github.com/erp/posting/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormChainReader reads the tail of a (tenant, series) hash chain. Its answer
// is only stable while the caller holds the series lock taken by
// GormSequenceAllocator on the same transaction.
type GormChainReader struct {
	db *gorm.DB
}

// NewGormChainReader creates a new GormChainReader
func NewGormChainReader(db *gorm.DB) *GormChainReader {
	return &GormChainReader{db: db}
}

// ResolvePreviousHash returns the hash of the chain tail, or nil when the
// chain is empty.
func (r *GormChainReader) ResolvePreviousHash(ctx context.Context, tenantID uuid.UUID, series string, excludeID uuid.UUID) (*string, error) {
	var rows []models.DocumentModel
	err := r.db.WithContext(ctx).
		Select("id", "hash").
		Scopes(tenant.TenantScope(tenantID)).
		Where("series = ? AND status = ? AND id <> ?", series, document.StatusPosted, excludeID).
		Order("number DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	if len(rows) == 0 || rows[0].Hash == "" {
		return nil, nil
	}
	hash := rows[0].Hash
	return &hash, nil
}

var _ document.ChainReader = (*GormChainReader)(nil)
