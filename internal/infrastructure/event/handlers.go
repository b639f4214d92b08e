package event

import (
	"context"
	"fmt"

	"github.com/erp/posting/internal/domain/document"
	"github.com/erp/posting/internal/domain/shared"
	"go.uber.org/zap"
)

var _ shared.EventHandler = (*DocumentNotifier)(nil)

// DocumentNotifier logs document lifecycle events for downstream consumers
type DocumentNotifier struct {
	logger *zap.Logger
}

// NewDocumentNotifier creates a notifier writing to logger
func NewDocumentNotifier(logger *zap.Logger) *DocumentNotifier {
	return &DocumentNotifier{logger: logger}
}

// EventTypes returns the document event types
func (n *DocumentNotifier) EventTypes() []string {
	return []string{
		document.EventTypeDocumentPosted,
		document.EventTypeDocumentCancelled,
		document.EventTypeCreditNoteDrafted,
	}
}

// Handle logs one event
func (n *DocumentNotifier) Handle(_ context.Context, event shared.DomainEvent) error {
	base := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.String("document_id", event.AggregateID().String()),
	}
	switch e := event.(type) {
	case *document.DocumentPostedEvent:
		n.logger.Info("Document posted", append(base,
			zap.String("full_number", e.FullNumber),
			zap.String("doc_type", string(e.DocType)),
			zap.String("total_gross", e.TotalGross.StringFixed(2)),
			zap.String("hash", e.Hash),
		)...)
	case *document.DocumentCancelledEvent:
		n.logger.Info("Draft cancelled", append(base, zap.String("reason", e.Reason))...)
	case *document.CreditNoteDraftedEvent:
		n.logger.Info("Credit note drafted", append(base,
			zap.String("original_full_number", e.OriginalFullNumber),
			zap.String("reason", e.Reason),
		)...)
	default:
		return fmt.Errorf("unexpected event %T", event)
	}
	return nil
}
