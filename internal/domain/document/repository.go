package document

import (
	"context"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

// DocumentRepository defines the interface for document persistence.
// Implementations reject any write to a document whose LockedAt is set.
type DocumentRepository interface {
	// FindByIDForTenant loads a document with its lines without locking
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Document, error)

	// FindByID loads a document with its lines regardless of tenant
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)

	// FindForUpdate loads a document and its lines under a row lock
	FindForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Document, error)

	// FindAllForTenant lists documents with pagination
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Document, int64, error)

	// FindPostedInChain returns the posted documents of a (tenant, series) chain ordered by number
	FindPostedInChain(ctx context.Context, tenantID uuid.UUID, series string) ([]Document, error)

	// FindPostedSeries returns the distinct series holding posted documents of a tenant
	FindPostedSeries(ctx context.Context, tenantID uuid.UUID) ([]string, error)

	// FindPostedBetween returns posted documents of a tenant whose posting time is in [from, to)
	FindPostedBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]Document, error)

	// CountCorrections counts credit notes (any status but cancelled) referencing a document
	CountCorrections(ctx context.Context, tenantID, originalID uuid.UUID) (int64, error)

	// CreateDraft inserts a new draft with its lines
	CreateDraft(ctx context.Context, doc *Document) error

	// SaveDraft updates a draft and replaces its lines
	SaveDraft(ctx context.Context, doc *Document) error

	// SavePosted writes line costs and the sealed header of a freshly posted
	// document with a single guarded update
	SavePosted(ctx context.Context, doc *Document) error
}

// SequenceAllocator hands out gapless per-(tenant, series) numbers
type SequenceAllocator interface {
	// AllocateNextNumber returns max(posted number) + 1 while holding the
	// series lock for the rest of the surrounding transaction
	AllocateNextNumber(ctx context.Context, tenantID uuid.UUID, series string) (int64, error)
}

// ChainReader resolves the tail of a hash chain
type ChainReader interface {
	// ResolvePreviousHash returns the hash of the highest-numbered posted
	// document of the chain, excluding excludeID, or nil for an empty chain
	ResolvePreviousHash(ctx context.Context, tenantID uuid.UUID, series string, excludeID uuid.UUID) (*string, error)
}
