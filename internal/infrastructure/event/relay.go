package event

import (
	"context"
	"sync"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"go.uber.org/zap"
)

// OutboxStore is the outbox repository plus a way to claim a batch inside
// one transaction
type OutboxStore interface {
	InTx(ctx context.Context, fn func(repo shared.OutboxRepository) error) error
}

// RelayConfig holds relay settings
type RelayConfig struct {
	BatchSize    int
	PollInterval time.Duration
}

// DefaultRelayConfig returns the default relay settings
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{BatchSize: 100, PollInterval: 5 * time.Second}
}

// Relay delivers committed outbox entries to the event bus
type Relay struct {
	store      OutboxStore
	bus        shared.EventPublisher
	serializer *EventSerializer
	config     RelayConfig
	clock      shared.Clock
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRelay creates a relay
func NewRelay(store OutboxStore, bus shared.EventPublisher, serializer *EventSerializer, config RelayConfig, logger *zap.Logger) *Relay {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultRelayConfig().BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultRelayConfig().PollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		store:      store,
		bus:        bus,
		serializer: serializer,
		config:     config,
		clock:      shared.SystemClock{},
		logger:     logger,
	}
}

// SetClock replaces the wall clock
func (r *Relay) SetClock(clock shared.Clock) {
	r.clock = clock
}

// Start polls the outbox in the background until Stop
func (r *Relay) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.config.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
					r.logger.Error("Outbox relay batch failed", zap.Error(err))
				}
			}
		}
	}()
	r.logger.Info("Outbox relay started",
		zap.Int("batch_size", r.config.BatchSize),
		zap.Duration("poll_interval", r.config.PollInterval),
	)
}

// Stop waits for the running batch to finish or ctx to expire
func (r *Relay) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.logger.Info("Outbox relay stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce delivers one batch and returns how many entries were sent
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	sent := 0
	err := r.store.InTx(ctx, func(repo shared.OutboxRepository) error {
		now := r.clock.Now()
		entries, err := repo.FindDeliverable(ctx, now, r.config.BatchSize)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if r.deliver(ctx, entry, now) {
				sent++
			}
			if err := repo.Update(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	return sent, err
}

func (r *Relay) deliver(ctx context.Context, entry *shared.OutboxEntry, now time.Time) bool {
	event, err := r.serializer.Deserialize(entry.EventType, entry.Payload)
	if err == nil {
		err = r.bus.Publish(ctx, event)
	}
	if err == nil {
		entry.MarkSent(now)
		return true
	}

	entry.MarkFailed(err.Error(), now)
	fields := []zap.Field{
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.String("aggregate_id", entry.AggregateID.String()),
		zap.Int("retry_count", entry.RetryCount),
		zap.Error(err),
	}
	if entry.Status == shared.OutboxStatusDead {
		r.logger.Error("Outbox entry moved to dead letter", fields...)
	} else {
		r.logger.Warn("Outbox delivery failed, will retry", fields...)
	}
	return false
}
