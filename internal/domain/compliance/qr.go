package compliance

import (
	"net/url"
	"strings"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// QRDateLayout is the date-only format printed in the scan payload
const QRDateLayout = "02-01-2006"

// QRInput holds the five fields of the scan payload
type QRInput struct {
	IssuerTaxID string
	FullNumber  string
	IssueDate   time.Time
	Gross       decimal.Decimal
	Hash        string
}

// BuildQRPayload encodes the scan payload as a query string in fixed key
// order. Values are RFC 3986 percent-encoded; a space is always %20.
// When baseURL is set the query is appended to it.
func BuildQRPayload(baseURL string, in QRInput) string {
	pairs := [][2]string{
		{"nif", in.IssuerTaxID},
		{"numserie", in.FullNumber},
		{"fecha", in.IssueDate.UTC().Format(QRDateLayout)},
		{"importe", in.Gross.StringFixed(shared.MoneyScale)},
		{"huella", in.Hash},
	}

	var b strings.Builder
	if baseURL != "" {
		b.WriteString(baseURL)
		b.WriteByte('?')
	}
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(escapeRFC3986(p[1]))
	}
	return b.String()
}

// escapeRFC3986 leaves only unreserved characters unescaped.
// QueryEscape already encodes a literal '+' as %2B, so every '+' left is a space.
func escapeRFC3986(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
