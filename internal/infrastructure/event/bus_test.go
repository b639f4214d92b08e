package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New(), uuid.New(), time.Now()),
		Data:            "payload",
	}
}

type recordingHandler struct {
	mu      sync.Mutex
	types   []string
	handled []shared.DomainEvent
	err     error
	panics  bool
}

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panics {
		panic("boom")
	}
	h.handled = append(h.handled, event)
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	posted := &recordingHandler{types: []string{"Posted"}}
	all := &recordingHandler{}
	bus.Subscribe(posted)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("Posted"), newTestEvent("Cancelled")))

	assert.Equal(t, 1, posted.count())
	assert.Equal(t, 2, all.count())
}

func TestInMemoryEventBus_ExplicitTypesOverrideDeclared(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := &recordingHandler{types: []string{"Posted"}}
	bus.Subscribe(h, "Cancelled")

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("Posted"), newTestEvent("Cancelled")))
	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_CollectsFailures(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := &recordingHandler{types: []string{"Posted"}, err: errors.New("downstream down")}
	panicking := &recordingHandler{types: []string{"Posted"}, panics: true}
	healthy := &recordingHandler{types: []string{"Posted"}}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("Posted"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "downstream down")
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, 1, healthy.count(), "healthy handlers still run")
}
