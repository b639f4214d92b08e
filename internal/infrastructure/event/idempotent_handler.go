package event

import (
	"context"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"go.uber.org/zap"
)

var _ shared.EventHandler = (*IdempotentHandler)(nil)

// IdempotentHandler runs the wrapped handler at most once per event id.
// The relay delivers at least once, so redeliveries are filtered here.
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	ttl     time.Duration
	logger  *zap.Logger
}

// NewIdempotentHandler wraps handler. A zero ttl uses DefaultIdempotencyTTL.
func NewIdempotentHandler(handler shared.EventHandler, store shared.IdempotencyStore, ttl time.Duration, logger *zap.Logger) *IdempotentHandler {
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdempotentHandler{handler: handler, store: store, ttl: ttl, logger: logger}
}

// EventTypes returns the types of the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle skips events already marked. A store failure does not drop the
// event; it is handled anyway. A handler failure releases the mark so the
// relay's retry runs the handler again.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	key := event.EventType() + ":" + event.EventID().String()

	isNew, err := h.store.MarkProcessed(ctx, key, h.ttl)
	if err != nil {
		h.logger.Warn("Idempotency check failed, handling anyway",
			zap.String("event_id", event.EventID().String()),
			zap.Error(err),
		)
	} else if !isNew {
		h.logger.Debug("Duplicate event skipped",
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		if keys, ok := h.store.(shared.RequestKeyStore); ok {
			if relErr := keys.Release(ctx, key); relErr != nil {
				h.logger.Warn("Failed to release idempotency key", zap.Error(relErr))
			}
		}
		return err
	}
	return nil
}
