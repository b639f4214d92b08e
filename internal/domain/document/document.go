package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Document is a ticket, invoice or credit note. It is a mutable draft until
// posted; posting assigns a number, links it into the hash chain and sets
// LockedAt, after which no field may change.
type Document struct {
	shared.TenantAggregateRoot
	Series             string
	DocType            DocType
	Status             Status
	Number             *int64
	FullNumber         string
	IssueDate          time.Time
	Currency           string
	CustomerRef        string
	CorrectsDocumentID *uuid.UUID
	TotalNet           decimal.Decimal
	TotalTax           decimal.Decimal
	TotalGross         decimal.Decimal
	Payload            []byte // immutable snapshot captured at posting
	CanonicalPayload   []byte // exact bytes that were hashed
	Hash               string
	PreviousHash       *string
	QRPayload          string
	PostedAt           *time.Time
	PostedBy           *uuid.UUID
	LockedAt           *time.Time
	CancelledAt        *time.Time
	CancelReason       string
	Lines              []Line
}

// DraftParams describes a new draft document
type DraftParams struct {
	TenantID    uuid.UUID
	Series      string
	DocType     DocType
	IssueDate   time.Time
	Currency    string
	CustomerRef string
	CreatedBy   uuid.UUID
	Lines       []LineInput
}

// NewDraft creates a draft document with its lines
func NewDraft(p DraftParams, at time.Time) (*Document, error) {
	if p.TenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	series := strings.TrimSpace(p.Series)
	if series == "" {
		return nil, shared.NewDomainError("INVALID_SERIES", "Series cannot be empty")
	}
	if len(series) > 20 {
		return nil, shared.NewDomainError("INVALID_SERIES", "Series cannot exceed 20 characters")
	}
	if !p.DocType.IsValid() {
		return nil, shared.NewDomainError("INVALID_DOC_TYPE", "Document type must be ticket, invoice or credit_note")
	}
	if len(p.Currency) != 3 {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter ISO code")
	}
	if p.IssueDate.IsZero() {
		p.IssueDate = at
	}

	doc := &Document{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(p.TenantID, at),
		Series:              series,
		DocType:             p.DocType,
		Status:              StatusDraft,
		IssueDate:           p.IssueDate,
		Currency:            strings.ToUpper(p.Currency),
		CustomerRef:         p.CustomerRef,
	}
	doc.SetCreatedBy(p.CreatedBy)

	if err := doc.setLines(p.Lines); err != nil {
		return nil, err
	}
	return doc, nil
}

// IsLocked reports whether the document has been sealed by posting
func (d *Document) IsLocked() bool {
	return d.LockedAt != nil
}

// EnsureMutable fails unless the document is an unlocked draft
func (d *Document) EnsureMutable() error {
	if d.IsLocked() || d.Status == StatusPosted {
		return shared.ErrDocumentLocked
	}
	if d.Status != StatusDraft {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot modify document in %s status", d.Status))
	}
	return nil
}

// ReplaceLines swaps the full line set of a draft
func (d *Document) ReplaceLines(inputs []LineInput, at time.Time) error {
	if err := d.EnsureMutable(); err != nil {
		return err
	}
	if err := d.setLines(inputs); err != nil {
		return err
	}
	d.MarkChanged(at)
	return nil
}

// UpdateHeader changes the customer reference and issue date of a draft
func (d *Document) UpdateHeader(customerRef string, issueDate time.Time, at time.Time) error {
	if err := d.EnsureMutable(); err != nil {
		return err
	}
	d.CustomerRef = customerRef
	if !issueDate.IsZero() {
		d.IssueDate = issueDate
	}
	d.MarkChanged(at)
	return nil
}

func (d *Document) setLines(inputs []LineInput) error {
	lines := make([]Line, 0, len(inputs))
	for i, in := range inputs {
		if d.DocType == DocTypeCreditNote && in.Quantity.IsPositive() {
			return shared.NewDomainError("INVALID_LINE", "Credit note lines must carry negative quantities")
		}
		l, err := newLine(d.ID, i+1, in)
		if err != nil {
			return err
		}
		lines = append(lines, *l)
	}
	d.Lines = lines
	d.applyTotals(ComputeTotals(lines))
	return nil
}

func (d *Document) applyTotals(t Totals) {
	d.TotalNet = t.Net
	d.TotalTax = t.Tax
	d.TotalGross = t.Gross
}

// Cancel abandons a draft. Posted documents are never cancelled in place;
// they are compensated by a credit note.
func (d *Document) Cancel(reason string, at time.Time) error {
	if d.IsLocked() || d.Status == StatusPosted {
		return shared.ErrDocumentLocked
	}
	if !d.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot cancel document in %s status", d.Status))
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason cannot be empty")
	}

	d.Status = StatusCancelled
	d.CancelReason = reason
	d.CancelledAt = &at
	d.MarkChanged(at)

	d.Record(NewDocumentCancelledEvent(d, at))
	return nil
}

// CanPost checks that the document may enter the posting pipeline
func (d *Document) CanPost() error {
	if d.IsLocked() {
		return shared.NewDomainError(shared.CodeInvalidState, "Document is already locked")
	}
	if !d.Status.CanTransitionTo(StatusPosted) {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot post document in %s status", d.Status))
	}
	if len(d.Lines) == 0 {
		return shared.NewDomainError("NO_LINES", "Cannot post document without lines")
	}
	return nil
}

// Sealed is the computed outcome of posting, applied in one step
type Sealed struct {
	Number           int64
	FullNumber       string
	Totals           Totals
	Payload          []byte
	CanonicalPayload []byte
	Hash             string
	PreviousHash     *string
	QRPayload        string
	PostedBy         uuid.UUID
	PostedAt         time.Time
}

// Seal transitions the draft to posted and locks it
func (d *Document) Seal(s Sealed) error {
	if err := d.CanPost(); err != nil {
		return err
	}
	if s.Number < 1 {
		return shared.NewDomainError("INVALID_NUMBER", "Document number must be positive")
	}
	if s.Hash == "" {
		return shared.NewDomainError("INVALID_HASH", "Posted document requires a hash")
	}

	number := s.Number
	postedAt := s.PostedAt
	d.Number = &number
	d.FullNumber = s.FullNumber
	d.applyTotals(s.Totals)
	d.Payload = s.Payload
	d.CanonicalPayload = s.CanonicalPayload
	d.Hash = s.Hash
	d.PreviousHash = s.PreviousHash
	d.QRPayload = s.QRPayload
	d.Status = StatusPosted
	d.PostedAt = &postedAt
	d.LockedAt = &postedAt
	if s.PostedBy != uuid.Nil {
		postedBy := s.PostedBy
		d.PostedBy = &postedBy
	}
	d.MarkChanged(postedAt)

	d.Record(NewDocumentPostedEvent(d, postedAt))
	return nil
}

// FormatFullNumber builds the display number: series, year and a six digit sequence
func FormatFullNumber(series string, year int, number int64) string {
	return fmt.Sprintf("%s-%d-%06d", series, year, number)
}

// NewCreditNote drafts a compensating document for a posted original. The
// original is never touched; the credit note mirrors its lines with negated
// quantities and is numbered in its own series when posted.
func NewCreditNote(original *Document, series string, reason string, createdBy uuid.UUID, at time.Time) (*Document, error) {
	if original.Status != StatusPosted || !original.IsLocked() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Only posted documents can be corrected")
	}
	if original.DocType == DocTypeCreditNote {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "A credit note cannot be corrected by another credit note")
	}

	inputs := make([]LineInput, 0, len(original.Lines))
	for _, l := range original.Lines {
		inputs = append(inputs, LineInput{
			ProductID:   l.ProductID,
			Description: l.Description,
			Quantity:    l.Quantity.Abs().Neg(),
			UnitPrice:   l.UnitPrice,
			TaxRate:     l.TaxRate,
		})
	}

	note, err := NewDraft(DraftParams{
		TenantID:    original.TenantID,
		Series:      series,
		DocType:     DocTypeCreditNote,
		IssueDate:   at,
		Currency:    original.Currency,
		CustomerRef: original.CustomerRef,
		CreatedBy:   createdBy,
		Lines:       inputs,
	}, at)
	if err != nil {
		return nil, err
	}
	originalID := original.ID
	note.CorrectsDocumentID = &originalID
	note.Record(NewCreditNoteDraftedEvent(note, original, reason, at))
	return note, nil
}
