package compliance

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/erp/posting/internal/domain/document"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// IssueDateLayout is ISO-8601 with a numeric offset; UTC renders as +00:00
const IssueDateLayout = "2006-01-02T15:04:05-07:00"

// CanonicalLine is a document line reduced to its chained fields
type CanonicalLine struct {
	LineNo      int
	Description string
	Qty         string
	UnitPrice   string
	TaxRate     string
	LineGross   string
}

// CanonicalForm is the exact field set that is hashed into the chain.
// External verifiers depend on byte-identical reproduction of its encoding.
type CanonicalForm struct {
	IssuerTaxID  string
	TenantID     string
	Series       string
	Number       int64
	FullNumber   string
	DocType      string
	IssueDate    string
	Currency     string
	TotalNet     string
	TotalTax     string
	TotalGross   string
	PreviousHash *string
	Lines        []CanonicalLine
}

// Canonicalize reduces a document about to be chained to its canonical form.
// Header, totals and lines come from the document rows, the number from the
// immutable payload. Lines are ordered by line number.
func Canonicalize(issuerTaxID string, doc *document.Document, payload document.Snapshot, previousHash *string, fullNumber string) CanonicalForm {
	lines := make([]document.Line, len(doc.Lines))
	copy(lines, doc.Lines)
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].LineNo < lines[j].LineNo })

	canonicalLines := make([]CanonicalLine, 0, len(lines))
	for _, l := range lines {
		canonicalLines = append(canonicalLines, CanonicalLine{
			LineNo:      l.LineNo,
			Description: norm.NFC.String(l.Description),
			Qty:         fixed(l.Quantity, shared.QuantityScale),
			UnitPrice:   fixed(l.UnitPrice, shared.UnitPriceScale),
			TaxRate:     fixed(l.TaxRate, shared.MoneyScale),
			LineGross:   fixed(l.LineGross, shared.MoneyScale),
		})
	}

	return CanonicalForm{
		IssuerTaxID:  issuerTaxID,
		TenantID:     doc.TenantID.String(),
		Series:       doc.Series,
		Number:       payload.Number,
		FullNumber:   fullNumber,
		DocType:      string(doc.DocType),
		IssueDate:    doc.IssueDate.UTC().Format(IssueDateLayout),
		Currency:     doc.Currency,
		TotalNet:     fixed(doc.TotalNet, shared.MoneyScale),
		TotalTax:     fixed(doc.TotalTax, shared.MoneyScale),
		TotalGross:   fixed(doc.TotalGross, shared.MoneyScale),
		PreviousHash: previousHash,
		Lines:        canonicalLines,
	}
}

// fixed formats d with exactly places decimals, half away from zero,
// never in exponent notation and always with '.' as separator
func fixed(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}

// Tree returns the form as a nested key/value structure
func (f CanonicalForm) Tree() map[string]any {
	lines := make([]any, 0, len(f.Lines))
	for _, l := range f.Lines {
		lines = append(lines, map[string]any{
			"line_no":     l.LineNo,
			"description": l.Description,
			"qty":         l.Qty,
			"unit_price":  l.UnitPrice,
			"tax_rate":    l.TaxRate,
			"line_gross":  l.LineGross,
		})
	}
	var prev any
	if f.PreviousHash != nil {
		prev = *f.PreviousHash
	}
	return map[string]any{
		"issuer_tax_id": f.IssuerTaxID,
		"tenant_id":     f.TenantID,
		"series":        f.Series,
		"number":        f.Number,
		"full_number":   f.FullNumber,
		"doc_type":      f.DocType,
		"issue_date":    f.IssueDate,
		"currency":      f.Currency,
		"total_net":     f.TotalNet,
		"total_tax":     f.TotalTax,
		"total_gross":   f.TotalGross,
		"previous_hash": prev,
		"lines":         lines,
	}
}

// EncodeCanonical serializes a key/value tree with every map's keys sorted,
// list order preserved and no HTML escaping. Non-finite floats fail with an
// EncodingError.
func EncodeCanonical(tree any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tree); err != nil {
		return nil, &EncodingError{Cause: err}
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
