package compliance

import (
	"time"

	"github.com/erp/posting/internal/domain/compliance"
	"github.com/erp/posting/internal/domain/document"
	"github.com/google/uuid"
)

// ExportCommand exports the posted documents of a period
type ExportCommand struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	From     time.Time // inclusive
	To       time.Time // exclusive
}

// ExportRequest is the HTTP body for a registry export
type ExportRequest struct {
	From time.Time `json:"from" binding:"required"`
	To   time.Time `json:"to" binding:"required,gtfield=From"`
}

// Registry is the exported file
type Registry struct {
	TenantID    uuid.UUID        `json:"tenant_id"`
	IssuerTaxID string           `json:"issuer_tax_id"`
	PeriodFrom  time.Time        `json:"period_from"`
	PeriodTo    time.Time        `json:"period_to"`
	GeneratedAt time.Time        `json:"generated_at"`
	Records     []RegistryRecord `json:"records"`
}

// RegistryRecord is one posted document in the export. CanonicalPayload
// holds the exact hashed bytes so a verifier can recompute the hash.
type RegistryRecord struct {
	ID               uuid.UUID  `json:"id"`
	Series           string     `json:"series"`
	Number           int64      `json:"number"`
	FullNumber       string     `json:"full_number"`
	DocType          string     `json:"doc_type"`
	Status           string     `json:"status"`
	IssueDate        time.Time  `json:"issue_date"`
	PostedAt         *time.Time `json:"posted_at"`
	TotalGross       string     `json:"total_gross"`
	Hash             string     `json:"hash"`
	PreviousHash     *string    `json:"previous_hash"`
	QRPayload        string     `json:"qr_payload"`
	CanonicalPayload string     `json:"canonical_payload"`
	CorrectsID       *uuid.UUID `json:"corrects_document_id,omitempty"`
}

// NewRegistryRecord converts a posted document to a registry record
func NewRegistryRecord(d *document.Document) RegistryRecord {
	var number int64
	if d.Number != nil {
		number = *d.Number
	}
	return RegistryRecord{
		ID:               d.ID,
		Series:           d.Series,
		Number:           number,
		FullNumber:       d.FullNumber,
		DocType:          string(d.DocType),
		Status:           string(d.Status),
		IssueDate:        d.IssueDate,
		PostedAt:         d.PostedAt,
		TotalGross:       d.TotalGross.StringFixed(2),
		Hash:             d.Hash,
		PreviousHash:     d.PreviousHash,
		QRPayload:        d.QRPayload,
		CanonicalPayload: string(d.CanonicalPayload),
		CorrectsID:       d.CorrectsDocumentID,
	}
}

// ExportResult describes a generated registry file
type ExportResult struct {
	BatchID     uuid.UUID `json:"batch_id"`
	RecordCount int       `json:"record_count"`
	FileHash    string    `json:"file_hash"`
	StorageKey  string    `json:"storage_key"`
	DownloadURL string    `json:"download_url,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ExportBatchResponse represents a past export in API responses
type ExportBatchResponse struct {
	ID          uuid.UUID `json:"id"`
	PeriodFrom  time.Time `json:"period_from"`
	PeriodTo    time.Time `json:"period_to"`
	RecordCount int       `json:"record_count"`
	FileHash    string    `json:"file_hash"`
	StorageKey  string    `json:"storage_key"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ToExportBatchResponse converts a domain ExportBatch to a response
func ToExportBatchResponse(b *compliance.ExportBatch) ExportBatchResponse {
	return ExportBatchResponse{
		ID:          b.ID,
		PeriodFrom:  b.PeriodFrom,
		PeriodTo:    b.PeriodTo,
		RecordCount: b.RecordCount,
		FileHash:    b.FileHash,
		StorageKey:  b.StorageKey,
		GeneratedAt: b.GeneratedAt,
	}
}
