package document

import (
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeDocument = "Document"

// Event type constants
const (
	EventTypeDocumentPosted    = "DocumentPosted"
	EventTypeDocumentCancelled = "DocumentCancelled"
	EventTypeCreditNoteDrafted = "CreditNoteDrafted"
)

// DocumentPostedEvent is raised when a draft becomes an immutable chained entry
type DocumentPostedEvent struct {
	shared.BaseDomainEvent
	DocumentID   uuid.UUID       `json:"document_id"`
	DocType      DocType         `json:"doc_type"`
	Series       string          `json:"series"`
	Number       int64           `json:"number"`
	FullNumber   string          `json:"full_number"`
	TotalGross   decimal.Decimal `json:"total_gross"`
	Hash         string          `json:"hash"`
	PreviousHash *string         `json:"previous_hash"`
}

// NewDocumentPostedEvent creates a new DocumentPostedEvent
func NewDocumentPostedEvent(d *Document, at time.Time) *DocumentPostedEvent {
	var number int64
	if d.Number != nil {
		number = *d.Number
	}
	return &DocumentPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentPosted, AggregateTypeDocument, d.ID, d.TenantID, at),
		DocumentID:      d.ID,
		DocType:         d.DocType,
		Series:          d.Series,
		Number:          number,
		FullNumber:      d.FullNumber,
		TotalGross:      d.TotalGross,
		Hash:            d.Hash,
		PreviousHash:    d.PreviousHash,
	}
}

// DocumentCancelledEvent is raised when a draft is abandoned
type DocumentCancelledEvent struct {
	shared.BaseDomainEvent
	DocumentID uuid.UUID `json:"document_id"`
	Series     string    `json:"series"`
	Reason     string    `json:"reason"`
}

// NewDocumentCancelledEvent creates a new DocumentCancelledEvent
func NewDocumentCancelledEvent(d *Document, at time.Time) *DocumentCancelledEvent {
	return &DocumentCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentCancelled, AggregateTypeDocument, d.ID, d.TenantID, at),
		DocumentID:      d.ID,
		Series:          d.Series,
		Reason:          d.CancelReason,
	}
}

// CreditNoteDraftedEvent is raised when a correction of a posted document is drafted
type CreditNoteDraftedEvent struct {
	shared.BaseDomainEvent
	CreditNoteID       uuid.UUID `json:"credit_note_id"`
	OriginalID         uuid.UUID `json:"original_id"`
	OriginalFullNumber string    `json:"original_full_number"`
	Reason             string    `json:"reason"`
}

// NewCreditNoteDraftedEvent creates a new CreditNoteDraftedEvent
func NewCreditNoteDraftedEvent(note, original *Document, reason string, at time.Time) *CreditNoteDraftedEvent {
	return &CreditNoteDraftedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeCreditNoteDrafted, AggregateTypeDocument, note.ID, note.TenantID, at),
		CreditNoteID:       note.ID,
		OriginalID:         original.ID,
		OriginalFullNumber: original.FullNumber,
		Reason:             reason,
	}
}
