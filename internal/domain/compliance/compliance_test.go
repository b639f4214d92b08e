package compliance

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/erp/posting/internal/domain/document"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const taxID = "B12345678"

var testAt = time.Date(2026, 3, 10, 12, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newDraft(t *testing.T, tenantID uuid.UUID, series string, lines ...document.LineInput) *document.Document {
	t.Helper()
	if len(lines) == 0 {
		lines = []document.LineInput{
			{Description: "Pantalla táctil", Quantity: dec("1"), UnitPrice: dec("89.9"), TaxRate: dec("21")},
			{Description: "Mano de obra", Quantity: dec("0.5"), UnitPrice: dec("40"), TaxRate: dec("21")},
		}
	}
	doc, err := document.NewDraft(document.DraftParams{
		TenantID: tenantID, Series: series, DocType: document.DocTypeInvoice,
		IssueDate: testAt, Currency: "EUR", Lines: lines,
	}, testAt)
	require.NoError(t, err)
	return doc
}

// post seals doc as the next element of a chain whose tail hash is prev
func post(t *testing.T, doc *document.Document, number int64, prev *string) *document.Document {
	t.Helper()
	fullNumber := document.FormatFullNumber(doc.Series, testAt.Year(), number)
	totals := document.ComputeTotals(doc.Lines)
	snap := document.BuildSnapshot(doc, number, fullNumber, totals)
	payload, err := snap.Marshal()
	require.NoError(t, err)

	digest, err := SHA256Hasher{}.Hash(Canonicalize(taxID, doc, snap, prev, fullNumber))
	require.NoError(t, err)

	require.NoError(t, doc.Seal(document.Sealed{
		Number: number, FullNumber: fullNumber, Totals: totals,
		Payload: payload, CanonicalPayload: digest.Canonical, Hash: digest.Hash,
		PreviousHash: prev, PostedAt: testAt,
	}))
	return doc
}

func TestCanonicalize_Formatting(t *testing.T) {
	doc := newDraft(t, uuid.New(), "F")
	snap := document.BuildSnapshot(doc, 12, "F-2026-000012", document.ComputeTotals(doc.Lines))

	form := Canonicalize(taxID, doc, snap, nil, "F-2026-000012")

	assert.Equal(t, int64(12), form.Number)
	assert.Equal(t, "2026-03-10T12:30:00+00:00", form.IssueDate)
	assert.Equal(t, "109.90", form.TotalNet)
	assert.Equal(t, "23.08", form.TotalTax)
	assert.Equal(t, "132.98", form.TotalGross)
	require.Len(t, form.Lines, 2)
	assert.Equal(t, "0.500", form.Lines[1].Qty)
	assert.Equal(t, "89.9000", form.Lines[0].UnitPrice)
	assert.Equal(t, "21.00", form.Lines[0].TaxRate)
	assert.Equal(t, "108.78", form.Lines[0].LineGross)
	assert.Nil(t, form.PreviousHash)
}

func TestCanonicalize_NormalizesDescriptionToNFC(t *testing.T) {
	decomposed := "Pantalla ta\u0301ctil"
	composed := "Pantalla t\u00e1ctil"
	tenantID := uuid.New()

	a := newDraft(t, tenantID, "F", document.LineInput{Description: decomposed, Quantity: dec("1"), UnitPrice: dec("1"), TaxRate: dec("0")})
	b := newDraft(t, tenantID, "F", document.LineInput{Description: composed, Quantity: dec("1"), UnitPrice: dec("1"), TaxRate: dec("0")})

	fa := Canonicalize(taxID, a, document.Snapshot{Number: 1}, nil, "F-2026-000001")
	fb := Canonicalize(taxID, b, document.Snapshot{Number: 1}, nil, "F-2026-000001")

	assert.Equal(t, composed, fa.Lines[0].Description)
	assert.Equal(t, fa.Lines, fb.Lines)
}

func TestSHA256Hasher_Deterministic(t *testing.T) {
	doc := newDraft(t, uuid.New(), "F")
	snap := document.BuildSnapshot(doc, 1, "F-2026-000001", document.ComputeTotals(doc.Lines))
	prev := "ab12"

	first, err := SHA256Hasher{}.Hash(Canonicalize(taxID, doc, snap, &prev, "F-2026-000001"))
	require.NoError(t, err)
	second, err := SHA256Hasher{}.Hash(Canonicalize(taxID, doc, snap, &prev, "F-2026-000001"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first.Hash, 64)
	assert.Equal(t, strings.ToLower(first.Hash), first.Hash)
	assert.Equal(t, HashBytes(first.Canonical), first.Hash)
}

func TestEncodeCanonical(t *testing.T) {
	t.Run("sorts keys recursively and keeps list order", func(t *testing.T) {
		raw, err := EncodeCanonical(map[string]any{
			"b": []any{map[string]any{"z": 1, "a": 2}, "x"},
			"a": "<&>",
		})
		require.NoError(t, err)
		assert.Equal(t, `{"a":"<&>","b":[{"a":2,"z":1},"x"]}`, string(raw))
	})

	t.Run("preserves unicode", func(t *testing.T) {
		raw, err := EncodeCanonical(map[string]any{"d": "Ñandú"})
		require.NoError(t, err)
		assert.Equal(t, `{"d":"Ñandú"}`, string(raw))
	})

	t.Run("rejects non-finite numbers", func(t *testing.T) {
		_, err := EncodeCanonical(map[string]any{"qty": math.Inf(1)})
		var encErr *EncodingError
		require.True(t, errors.As(err, &encErr))
		assert.True(t, errors.Is(err, ErrChainEncoding))
	})
}

func TestBuildQRPayload(t *testing.T) {
	in := QRInput{
		IssuerTaxID: taxID,
		FullNumber:  "T SHOP-2026-000001",
		IssueDate:   testAt,
		Gross:       dec("12.1"),
		Hash:        "deadbeef",
	}

	got := BuildQRPayload("", in)
	assert.Equal(t, "nif=B12345678&numserie=T%20SHOP-2026-000001&fecha=10-03-2026&importe=12.10&huella=deadbeef", got)
	assert.NotContains(t, got, "+")

	in.FullNumber = "A+B"
	assert.Contains(t, BuildQRPayload("", in), "numserie=A%2BB")

	withBase := BuildQRPayload("https://verify.example/qr", in)
	assert.True(t, strings.HasPrefix(withBase, "https://verify.example/qr?nif="))
}

func TestVerifyChain(t *testing.T) {
	tenantID := uuid.New()
	first := post(t, newDraft(t, tenantID, "F"), 1, nil)
	second := post(t, newDraft(t, tenantID, "F"), 2, &first.Hash)

	t.Run("valid chain", func(t *testing.T) {
		report := VerifyChain(taxID, tenantID, "F", []document.Document{*first, *second})
		assert.True(t, report.Valid())
		assert.Equal(t, 2, report.Checked)
		assert.Equal(t, second.Hash, report.LastHash)
		assert.Equal(t, first.Hash, *second.PreviousHash)
	})

	t.Run("detects tampered totals", func(t *testing.T) {
		tampered := *second
		tampered.TotalGross = dec("1.00")
		report := VerifyChain(taxID, tenantID, "F", []document.Document{*first, tampered})
		require.False(t, report.Valid())
		assert.Equal(t, second.ID, report.Break.DocumentID)
		assert.Contains(t, report.Break.Reason, "no longer match")
	})

	t.Run("detects broken linkage", func(t *testing.T) {
		other := "0000"
		unlinked := post(t, newDraft(t, tenantID, "F"), 2, &other)
		report := VerifyChain(taxID, tenantID, "F", []document.Document{*first, *unlinked})
		require.False(t, report.Valid())
		assert.Contains(t, report.Break.Reason, "previous hash")
	})

	t.Run("detects gaps", func(t *testing.T) {
		report := VerifyChain(taxID, tenantID, "F", []document.Document{*second})
		require.False(t, report.Valid())
		assert.Contains(t, report.Break.Reason, "expected number 1")
	})
}

func TestNewEvent(t *testing.T) {
	docID := uuid.New()
	prev := "abc"
	ev, err := NewEvent(uuid.New(), &docID, EventDocumentPosted, PostedPayload{Series: "F", Number: 2, Hash: "def", PreviousHash: &prev}, testAt)
	require.NoError(t, err)
	assert.JSONEq(t, `{"series":"F","number":2,"full_number":"","hash":"def","previous_hash":"abc"}`, string(ev.Payload))
}
