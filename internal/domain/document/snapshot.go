package document

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Snapshot is the immutable payload stored on a posted document
type Snapshot struct {
	TenantID   uuid.UUID      `json:"tenant_id"`
	DocType    DocType        `json:"doc_type"`
	Series     string         `json:"series"`
	Number     int64          `json:"number"`
	FullNumber string         `json:"full_number"`
	IssueDate  time.Time      `json:"issue_date"`
	Currency   string         `json:"currency"`
	Corrects   *uuid.UUID     `json:"corrects_document_id,omitempty"`
	Lines      []SnapshotLine `json:"lines"`
	Totals     SnapshotTotals `json:"totals"`
}

// SnapshotLine is a line inside the snapshot
type SnapshotLine struct {
	LineNo      int              `json:"line_no"`
	ProductID   *uuid.UUID       `json:"product_id"`
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"qty"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	TaxRate     decimal.Decimal  `json:"tax_rate"`
	LineNet     decimal.Decimal  `json:"line_net"`
	LineTax     decimal.Decimal  `json:"line_tax"`
	LineGross   decimal.Decimal  `json:"line_gross"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
	TotalCost   *decimal.Decimal `json:"total_cost,omitempty"`
}

// SnapshotTotals holds the rounded document totals
type SnapshotTotals struct {
	Net   decimal.Decimal `json:"net"`
	Tax   decimal.Decimal `json:"tax"`
	Gross decimal.Decimal `json:"gross"`
}

// BuildSnapshot captures the document as it is about to be posted
func BuildSnapshot(d *Document, number int64, fullNumber string, totals Totals) Snapshot {
	lines := make([]SnapshotLine, 0, len(d.Lines))
	for _, l := range d.Lines {
		lines = append(lines, SnapshotLine{
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
		})
	}
	return Snapshot{
		TenantID:   d.TenantID,
		DocType:    d.DocType,
		Series:     d.Series,
		Number:     number,
		FullNumber: fullNumber,
		IssueDate:  d.IssueDate,
		Currency:   d.Currency,
		Corrects:   d.CorrectsDocumentID,
		Lines:      lines,
		Totals:     SnapshotTotals{Net: totals.Net, Tax: totals.Tax, Gross: totals.Gross},
	}
}

// Marshal encodes the snapshot as JSON
func (s Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// ParseSnapshot decodes a stored snapshot
func ParseSnapshot(raw []byte) (Snapshot, error) {
	var s Snapshot
	err := json.Unmarshal(raw, &s)
	return s, err
}
