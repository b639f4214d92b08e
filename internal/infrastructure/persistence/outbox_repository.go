package persistence

import (
	"context"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOutboxRepository implements OutboxRepository using GORM. Entries are
// saved on the posting transaction so they commit or vanish with it.
type GormOutboxRepository struct {
	db *gorm.DB
}

// NewGormOutboxRepository creates a new GORM-based outbox repository
func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

// Save persists one or more outbox entries
func (r *GormOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.OutboxEventModel, len(entries))
	for i, e := range entries {
		rows[i] = models.NewOutboxEventModel(e)
	}
	return translateError(r.db.WithContext(ctx).Create(rows).Error)
}

// FindDeliverable returns pending entries and failed entries whose retry time
// has come, oldest first. Rows locked by another relay are skipped.
func (r *GormOutboxRepository) FindDeliverable(ctx context.Context, at time.Time, limit int) ([]*shared.OutboxEntry, error) {
	var rows []models.OutboxEventModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? OR (status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?))",
			shared.OutboxStatusPending, shared.OutboxStatusFailed, at).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	entries := make([]*shared.OutboxEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToEntry()
	}
	return entries, nil
}

// Update writes back the delivery state of an entry
func (r *GormOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	err := r.db.WithContext(ctx).
		Model(&models.OutboxEventModel{}).
		Where("id = ?", entry.ID).
		Select("status", "retry_count", "max_retries", "last_error", "next_retry_at", "processed_at", "updated_at").
		Updates(&models.OutboxEventModel{Delivery: models.DeliveryOf(entry), UpdatedAt: entry.UpdatedAt}).Error
	return translateError(err)
}

// CountByStatus returns how many entries sit in a status
func (r *GormOutboxRepository) CountByStatus(ctx context.Context, status shared.OutboxStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OutboxEventModel{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, translateError(err)
}

// InTx runs fn with a repository bound to a new transaction, so rows
// claimed by FindDeliverable stay locked until their updates commit
func (r *GormOutboxRepository) InTx(ctx context.Context, fn func(repo shared.OutboxRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormOutboxRepository{db: tx})
	})
}

var _ shared.OutboxRepository = (*GormOutboxRepository)(nil)
