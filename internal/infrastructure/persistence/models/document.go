package models

import (
	"time"

	"github.com/erp/posting/internal/domain/document"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentModel is the persistence model for the Document aggregate
type DocumentModel struct {
	AggregateModel
	TenantID           uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_documents_chain_number,priority:1;index:idx_documents_chain,priority:1"`
	CreatedBy          *uuid.UUID       `gorm:"type:uuid"`
	Series             string           `gorm:"type:varchar(20);not null;uniqueIndex:idx_documents_chain_number,priority:2;index:idx_documents_chain,priority:2"`
	DocType            document.DocType `gorm:"type:varchar(20);not null"`
	Status             document.Status  `gorm:"type:varchar(20);not null;index:idx_documents_chain,priority:3"`
	Number             *int64           `gorm:"uniqueIndex:idx_documents_chain_number,priority:3"`
	FullNumber         string           `gorm:"type:varchar(50)"`
	IssueDate          time.Time        `gorm:"not null"`
	Currency           string           `gorm:"type:varchar(3);not null"`
	CustomerRef        string           `gorm:"type:varchar(200)"`
	CorrectsDocumentID *uuid.UUID       `gorm:"type:uuid;index"`
	TotalNet           decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	TotalTax           decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	TotalGross         decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	Payload            string           `gorm:"type:text"`
	CanonicalPayload   string           `gorm:"type:text"`
	Hash               string           `gorm:"type:varchar(64)"`
	PreviousHash       *string          `gorm:"type:varchar(64)"`
	QRPayload          string           `gorm:"type:text"`
	PostedAt           *time.Time       `gorm:"index"`
	PostedBy           *uuid.UUID       `gorm:"type:uuid"`
	LockedAt           *time.Time
	CancelledAt        *time.Time
	CancelReason       string              `gorm:"type:text"`
	Lines              []DocumentLineModel `gorm:"foreignKey:DocumentID;references:ID"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// ToDomain converts the persistence model to a domain Document
func (m *DocumentModel) ToDomain() *document.Document {
	doc := &document.Document{
		TenantAggregateRoot: shared.TenantAggregateRoot{
			BaseAggregateRoot: m.AggregateRoot(),
			TenantID:          m.TenantID,
			CreatedBy:         m.CreatedBy,
		},
		Series:             m.Series,
		DocType:            m.DocType,
		Status:             m.Status,
		Number:             m.Number,
		FullNumber:         m.FullNumber,
		IssueDate:          m.IssueDate,
		Currency:           m.Currency,
		CustomerRef:        m.CustomerRef,
		CorrectsDocumentID: m.CorrectsDocumentID,
		TotalNet:           m.TotalNet,
		TotalTax:           m.TotalTax,
		TotalGross:         m.TotalGross,
		Hash:               m.Hash,
		PreviousHash:       m.PreviousHash,
		QRPayload:          m.QRPayload,
		PostedAt:           m.PostedAt,
		PostedBy:           m.PostedBy,
		LockedAt:           m.LockedAt,
		CancelledAt:        m.CancelledAt,
		CancelReason:       m.CancelReason,
		Lines:              make([]document.Line, len(m.Lines)),
	}
	if m.Payload != "" {
		doc.Payload = []byte(m.Payload)
	}
	if m.CanonicalPayload != "" {
		doc.CanonicalPayload = []byte(m.CanonicalPayload)
	}
	for i := range m.Lines {
		doc.Lines[i] = *m.Lines[i].ToDomain()
	}
	return doc
}

// DocumentModelFromDomain creates a persistence model from a domain Document, lines included
func DocumentModelFromDomain(d *document.Document) *DocumentModel {
	m := &DocumentModel{
		Series:             d.Series,
		DocType:            d.DocType,
		Status:             d.Status,
		Number:             d.Number,
		FullNumber:         d.FullNumber,
		IssueDate:          d.IssueDate,
		Currency:           d.Currency,
		CustomerRef:        d.CustomerRef,
		CorrectsDocumentID: d.CorrectsDocumentID,
		TotalNet:           d.TotalNet,
		TotalTax:           d.TotalTax,
		TotalGross:         d.TotalGross,
		Payload:            string(d.Payload),
		CanonicalPayload:   string(d.CanonicalPayload),
		Hash:               d.Hash,
		PreviousHash:       d.PreviousHash,
		QRPayload:          d.QRPayload,
		PostedAt:           d.PostedAt,
		PostedBy:           d.PostedBy,
		LockedAt:           d.LockedAt,
		CancelledAt:        d.CancelledAt,
		CancelReason:       d.CancelReason,
	}
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	m.TenantID = d.TenantID
	m.CreatedBy = d.CreatedBy
	m.Lines = make([]DocumentLineModel, len(d.Lines))
	for i := range d.Lines {
		m.Lines[i] = *DocumentLineModelFromDomain(&d.Lines[i])
	}
	return m
}

// DocumentLineModel is the persistence model for a document line
type DocumentLineModel struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey"`
	DocumentID  uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_document_lines_no,priority:1"`
	LineNo      int              `gorm:"not null;uniqueIndex:idx_document_lines_no,priority:2"`
	ProductID   *uuid.UUID       `gorm:"type:uuid;index"`
	Description string           `gorm:"type:text;not null"`
	Quantity    decimal.Decimal  `gorm:"type:decimal(18,3);not null"`
	UnitPrice   decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	TaxRate     decimal.Decimal  `gorm:"type:decimal(5,2);not null"`
	LineNet     decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	LineTax     decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	LineGross   decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	UnitCost    *decimal.Decimal `gorm:"type:decimal(18,4)"`
	TotalCost   *decimal.Decimal `gorm:"type:decimal(18,4)"`
}

// TableName returns the table name for GORM
func (DocumentLineModel) TableName() string {
	return "document_lines"
}

// ToDomain converts the persistence model to a domain Line
func (m *DocumentLineModel) ToDomain() *document.Line {
	return &document.Line{
		ID:          m.ID,
		DocumentID:  m.DocumentID,
		LineNo:      m.LineNo,
		ProductID:   m.ProductID,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		TaxRate:     m.TaxRate,
		LineNet:     m.LineNet,
		LineTax:     m.LineTax,
		LineGross:   m.LineGross,
		UnitCost:    m.UnitCost,
		TotalCost:   m.TotalCost,
	}
}

// DocumentLineModelFromDomain creates a persistence model from a domain Line
func DocumentLineModelFromDomain(l *document.Line) *DocumentLineModel {
	return &DocumentLineModel{
		ID:          l.ID,
		DocumentID:  l.DocumentID,
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

// DocumentSeriesModel is the lock row of a (tenant, series) numbering stream.
// LastNumber is informational; the allocator derives numbers from posted documents.
type DocumentSeriesModel struct {
	TenantID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Series     string    `gorm:"type:varchar(20);primaryKey"`
	LastNumber int64     `gorm:"not null;default:0"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentSeriesModel) TableName() string {
	return "document_series"
}
