package posting

import (
	"time"

	"github.com/erp/posting/internal/domain/document"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PostCommand posts a draft document
type PostCommand struct {
	TenantID   uuid.UUID
	UserID     uuid.UUID
	DocumentID uuid.UUID
}

// CancelCommand abandons a draft document
type CancelCommand struct {
	TenantID   uuid.UUID
	UserID     uuid.UUID
	DocumentID uuid.UUID
	Reason     string
}

// CreditNoteCommand drafts a credit note against a posted document
type CreditNoteCommand struct {
	TenantID   uuid.UUID
	UserID     uuid.UUID
	OriginalID uuid.UUID
	Series     string // defaults to the configured credit note series
	Reason     string
	AutoPost   bool
}

// CreateDraftCommand creates a draft document
type CreateDraftCommand struct {
	TenantID    uuid.UUID
	UserID      uuid.UUID
	Series      string // defaults to the configured series of the doc type
	DocType     document.DocType
	IssueDate   time.Time
	Currency    string // defaults to the tenant currency
	CustomerRef string
	Lines       []document.LineInput
}

// ReplaceLinesCommand swaps the lines of a draft
type ReplaceLinesCommand struct {
	TenantID   uuid.UUID
	UserID     uuid.UUID
	DocumentID uuid.UUID
	Lines      []document.LineInput
}

// CreateDraftRequest is the HTTP body for creating a draft
type CreateDraftRequest struct {
	Series      string        `json:"series" binding:"omitempty,max=20,series"`
	DocType     string        `json:"doc_type" binding:"required,oneof=ticket invoice credit_note"`
	IssueDate   *time.Time    `json:"issue_date"`
	Currency    string        `json:"currency" binding:"omitempty,currency"`
	CustomerRef string        `json:"customer_ref" binding:"max=100"`
	Lines       []LineRequest `json:"lines" binding:"dive"`
}

// ReplaceLinesRequest is the HTTP body for replacing draft lines
type ReplaceLinesRequest struct {
	Lines []LineRequest `json:"lines" binding:"required,dive"`
}

// LineRequest is one document line in a request
type LineRequest struct {
	ProductID   *uuid.UUID      `json:"product_id"`
	Description string          `json:"description" binding:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
}

// ToLineInputs converts request lines to domain inputs
func ToLineInputs(lines []LineRequest) []document.LineInput {
	out := make([]document.LineInput, len(lines))
	for i, l := range lines {
		out[i] = document.LineInput{
			ProductID:   l.ProductID,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TaxRate:     l.TaxRate,
		}
	}
	return out
}

// CancelRequest is the HTTP body for cancelling a draft
type CancelRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// CreditNoteRequest is the HTTP body for correcting a posted document
type CreditNoteRequest struct {
	Series   string `json:"series" binding:"omitempty,max=20,series"`
	Reason   string `json:"reason" binding:"required,max=500"`
	AutoPost bool   `json:"auto_post"`
}

// DocumentListFilter represents filter options for listing documents
type DocumentListFilter struct {
	Status    string     `form:"status" binding:"omitempty,oneof=draft posted cancelled"`
	Series    string     `form:"series"`
	DocType   string     `form:"doc_type" binding:"omitempty,oneof=ticket invoice credit_note"`
	StartDate *time.Time `form:"start_date" time_format:"2006-01-02"`
	EndDate   *time.Time `form:"end_date" time_format:"2006-01-02"`
	Page      int        `form:"page" binding:"omitempty,min=1"`
	PageSize  int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy   string     `form:"order_by"`
	OrderDir  string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// DocumentResponse represents a document in API responses
type DocumentResponse struct {
	ID                 uuid.UUID      `json:"id"`
	TenantID           uuid.UUID      `json:"tenant_id"`
	Series             string         `json:"series"`
	DocType            string         `json:"doc_type"`
	Status             string         `json:"status"`
	Number             *int64         `json:"number,omitempty"`
	FullNumber         string         `json:"full_number,omitempty"`
	IssueDate          time.Time      `json:"issue_date"`
	Currency           string         `json:"currency"`
	CustomerRef        string         `json:"customer_ref,omitempty"`
	CorrectsDocumentID *uuid.UUID     `json:"corrects_document_id,omitempty"`
	TotalNet           string         `json:"total_net"`
	TotalTax           string         `json:"total_tax"`
	TotalGross         string         `json:"total_gross"`
	Hash               string         `json:"hash,omitempty"`
	PreviousHash       *string        `json:"previous_hash,omitempty"`
	QRPayload          string         `json:"qr_payload,omitempty"`
	PostedAt           *time.Time     `json:"posted_at,omitempty"`
	CancelledAt        *time.Time     `json:"cancelled_at,omitempty"`
	CancelReason       string         `json:"cancel_reason,omitempty"`
	Lines              []LineResponse `json:"lines"`
	Version            int            `json:"version"`
}

// LineResponse represents a document line in API responses
type LineResponse struct {
	ID          uuid.UUID        `json:"id"`
	LineNo      int              `json:"line_no"`
	ProductID   *uuid.UUID       `json:"product_id,omitempty"`
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	TaxRate     decimal.Decimal  `json:"tax_rate"`
	LineNet     decimal.Decimal  `json:"line_net"`
	LineTax     decimal.Decimal  `json:"line_tax"`
	LineGross   decimal.Decimal  `json:"line_gross"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
	TotalCost   *decimal.Decimal `json:"total_cost,omitempty"`
}

// ToDocumentResponse converts a domain Document to a response
func ToDocumentResponse(d *document.Document) DocumentResponse {
	lines := make([]LineResponse, len(d.Lines))
	for i, l := range d.Lines {
		lines[i] = LineResponse{
			ID:          l.ID,
			LineNo:      l.LineNo,
			ProductID:   l.ProductID,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TaxRate:     l.TaxRate,
			LineNet:     l.LineNet,
			LineTax:     l.LineTax,
			LineGross:   l.LineGross,
			UnitCost:    l.UnitCost,
			TotalCost:   l.TotalCost,
		}
	}
	return DocumentResponse{
		ID:                 d.ID,
		TenantID:           d.TenantID,
		Series:             d.Series,
		DocType:            string(d.DocType),
		Status:             string(d.Status),
		Number:             d.Number,
		FullNumber:         d.FullNumber,
		IssueDate:          d.IssueDate,
		Currency:           d.Currency,
		CustomerRef:        d.CustomerRef,
		CorrectsDocumentID: d.CorrectsDocumentID,
		TotalNet:           d.TotalNet.StringFixed(2),
		TotalTax:           d.TotalTax.StringFixed(2),
		TotalGross:         d.TotalGross.StringFixed(2),
		Hash:               d.Hash,
		PreviousHash:       d.PreviousHash,
		QRPayload:          d.QRPayload,
		PostedAt:           d.PostedAt,
		CancelledAt:        d.CancelledAt,
		CancelReason:       d.CancelReason,
		Lines:              lines,
		Version:            d.Version,
	}
}
