package document

import (
	"strings"
	"unicode/utf8"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LineInput is the caller-supplied part of a line
type LineInput struct {
	ProductID   *uuid.UUID
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal // percentage, e.g. 21 for 21%
}

// Line is a row of a document. Amounts are derived from quantity, price and
// rate; unit and total cost are captured from the stock move at posting.
type Line struct {
	ID          uuid.UUID
	DocumentID  uuid.UUID
	LineNo      int
	ProductID   *uuid.UUID
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	LineNet     decimal.Decimal
	LineTax     decimal.Decimal
	LineGross   decimal.Decimal
	UnitCost    *decimal.Decimal
	TotalCost   *decimal.Decimal
}

// newLine rejects inputs finer than the stored column scales: quantity 3,
// unit price 4 and tax rate 2 decimals.
func newLine(documentID uuid.UUID, lineNo int, in LineInput) (*Line, error) {
	if strings.TrimSpace(in.Description) == "" {
		return nil, shared.NewDomainError("INVALID_LINE", "Line description cannot be empty")
	}
	if !utf8.ValidString(in.Description) {
		return nil, shared.NewDomainError("INVALID_LINE", "Line description must be valid UTF-8")
	}
	switch {
	case exceedsScale(in.Quantity, shared.QuantityScale):
		return nil, shared.NewDomainError("INVALID_LINE", "Quantity cannot have more than 3 decimals")
	case exceedsScale(in.UnitPrice, shared.UnitPriceScale):
		return nil, shared.NewDomainError("INVALID_LINE", "Unit price cannot have more than 4 decimals")
	case exceedsScale(in.TaxRate, shared.MoneyScale):
		return nil, shared.NewDomainError("INVALID_LINE", "Tax rate cannot have more than 2 decimals")
	}
	if in.Quantity.IsZero() {
		return nil, shared.NewDomainError("INVALID_LINE", "Line quantity cannot be zero")
	}
	if in.UnitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_LINE", "Unit price cannot be negative")
	}
	if in.TaxRate.IsNegative() || in.TaxRate.GreaterThan(hundred) {
		return nil, shared.NewDomainError("INVALID_LINE", "Tax rate must be between 0 and 100")
	}

	l := &Line{
		ID:          uuid.New(),
		DocumentID:  documentID,
		LineNo:      lineNo,
		ProductID:   in.ProductID,
		Description: in.Description,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		TaxRate:     in.TaxRate,
	}
	l.Recompute()
	return l, nil
}

func exceedsScale(d decimal.Decimal, scale int32) bool {
	return !d.Equal(d.Truncate(scale))
}

// rawAmounts returns the unrounded net and tax of the line
func (l *Line) rawAmounts() (net, tax decimal.Decimal) {
	net = l.Quantity.Mul(l.UnitPrice)
	tax = net.Mul(l.TaxRate).Div(hundred)
	return net, tax
}

// Recompute derives the rounded line amounts:
// net = round(qty x price, 2), tax = round(net x rate / 100, 2), gross = round(net + tax, 2).
func (l *Line) Recompute() {
	net, _ := l.rawAmounts()
	l.LineNet = shared.RoundMoney(net)
	l.LineTax = shared.RoundMoney(l.LineNet.Mul(l.TaxRate).Div(hundred))
	l.LineGross = shared.RoundMoney(l.LineNet.Add(l.LineTax))
}

// IsStockLine reports whether the line references a product
func (l *Line) IsStockLine() bool {
	return l.ProductID != nil
}

// CaptureCost stores the cost of the stock move produced for this line
func (l *Line) CaptureCost(unitCost, totalCost decimal.Decimal) {
	l.UnitCost = &unitCost
	l.TotalCost = &totalCost
}

// Totals are the document-level amounts
type Totals struct {
	Net   decimal.Decimal
	Tax   decimal.Decimal
	Gross decimal.Decimal
}

// ComputeTotals sums the unrounded line amounts and rounds each total once
// at the document level. Three lines of 10.005 net give 30.02, not 30.03.
func ComputeTotals(lines []Line) Totals {
	net := decimal.Zero
	tax := decimal.Zero
	for i := range lines {
		n, t := lines[i].rawAmounts()
		net = net.Add(n)
		tax = tax.Add(t)
	}
	return Totals{
		Net:   shared.RoundMoney(net),
		Tax:   shared.RoundMoney(tax),
		Gross: shared.RoundMoney(net.Add(tax)),
	}
}
