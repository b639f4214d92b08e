package persistence

import (
	"context"
	"time"

	"github.com/erp/posting/internal/domain/document"
	"github.com/erp/posting/internal/infrastructure/persistence/models"
	"github.com/erp/posting/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSequenceAllocator hands out gapless document numbers. It must run on a
// transaction handle: the document_series row lock it takes is what
// serializes concurrent posts on the same (tenant, series) and it is only
// released at commit or rollback.
type GormSequenceAllocator struct {
	db *gorm.DB
}

// NewGormSequenceAllocator creates a new GormSequenceAllocator
func NewGormSequenceAllocator(db *gorm.DB) *GormSequenceAllocator {
	return &GormSequenceAllocator{db: db}
}

// AllocateNextNumber locks the series row and returns max(posted number) + 1.
// Deriving the number from posted documents rather than a counter means a
// rolled back post never burns a number.
func (a *GormSequenceAllocator) AllocateNextNumber(ctx context.Context, tenantID uuid.UUID, series string) (int64, error) {
	db := a.db.WithContext(ctx)

	seed := models.DocumentSeriesModel{TenantID: tenantID, Series: series, UpdatedAt: time.Now().UTC()}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, translateError(err)
	}

	var row models.DocumentSeriesModel
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(tenant.TenantScope(tenantID)).
		Where("series = ?", series).
		First(&row).Error; err != nil {
		return 0, translateError(err)
	}

	var maxNumber int64
	if err := db.Model(&models.DocumentModel{}).
		Scopes(tenant.TenantScope(tenantID)).
		Where("series = ? AND status = ?", series, document.StatusPosted).
		Select("COALESCE(MAX(number), 0)").
		Scan(&maxNumber).Error; err != nil {
		return 0, translateError(err)
	}
	next := maxNumber + 1

	if err := db.Model(&models.DocumentSeriesModel{}).
		Scopes(tenant.TenantScope(tenantID)).
		Where("series = ?", series).
		Updates(map[string]any{"last_number": next, "updated_at": time.Now().UTC()}).Error; err != nil {
		return 0, translateError(err)
	}
	return next, nil
}

var _ document.SequenceAllocator = (*GormSequenceAllocator)(nil)
