package event

import (
	"testing"
	"time"

	"github.com/erp/posting/internal/domain/document"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentEventSerializer_RoundTrip(t *testing.T) {
	s := NewDocumentEventSerializer()
	number := int64(7)
	doc := &document.Document{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		Series:     "F",
		DocType:    document.DocTypeInvoice,
		Number:     &number,
		FullNumber: "F-2026-000007",
		TotalGross: decimal.RequireFromString("30.25"),
		Hash:       "abc",
	}
	original := document.NewDocumentPostedEvent(doc, time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))

	data, err := s.Serialize(original)
	require.NoError(t, err)

	decoded, err := s.Deserialize(document.EventTypeDocumentPosted, data)
	require.NoError(t, err)
	posted, ok := decoded.(*document.DocumentPostedEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), posted.EventID())
	assert.Equal(t, doc.TenantID, posted.TenantID())
	assert.Equal(t, "F-2026-000007", posted.FullNumber)
	assert.Equal(t, int64(7), posted.Number)
	assert.True(t, posted.TotalGross.Equal(doc.TotalGross))
}

func TestEventSerializer_UnknownType(t *testing.T) {
	_, err := NewEventSerializer().Deserialize("Nope", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestEventSerializer_InvalidPayload(t *testing.T) {
	_, err := NewDocumentEventSerializer().Deserialize(document.EventTypeDocumentCancelled, []byte(`{`))
	require.Error(t, err)
}
