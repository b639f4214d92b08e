package event_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/posting/internal/domain/document"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/event"
	"github.com/erp/posting/internal/infrastructure/persistence"
	"github.com/erp/posting/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var relayNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

type countingHandler struct {
	mu   sync.Mutex
	seen []string
	err  error
}

func (h *countingHandler) Handle(_ context.Context, e shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.seen = append(h.seen, e.(*document.DocumentPostedEvent).FullNumber)
	return nil
}

func (h *countingHandler) EventTypes() []string {
	return []string{document.EventTypeDocumentPosted}
}

// saveOutboxEntry writes a pending entry created seq seconds after relayNow
func saveOutboxEntry(t *testing.T, repo *persistence.GormOutboxRepository, fullNumber string, seq int) *shared.OutboxEntry {
	t.Helper()
	at := relayNow.Add(time.Duration(seq) * time.Second)
	doc := &document.Document{ID: uuid.New(), TenantID: uuid.New(), Series: "F", FullNumber: fullNumber}
	e := document.NewDocumentPostedEvent(doc, at)
	payload, err := json.Marshal(e)
	require.NoError(t, err)
	entry := shared.NewOutboxEntry(e, payload, at)
	require.NoError(t, repo.Save(context.Background(), entry))
	return entry
}

func newRelay(repo *persistence.GormOutboxRepository, handler shared.EventHandler, at time.Time) *event.Relay {
	bus := event.NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(handler)
	relay := event.NewRelay(repo, bus, event.NewDocumentEventSerializer(), event.RelayConfig{BatchSize: 10}, zap.NewNop())
	relay.SetClock(shared.FixedClock{At: at})
	return relay
}

func TestRelay_DeliversOnce(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := persistence.NewGormOutboxRepository(db)
	saveOutboxEntry(t, repo, "F-2026-000001", 0)
	saveOutboxEntry(t, repo, "F-2026-000002", 1)
	handler := &countingHandler{}
	relay := newRelay(repo, handler, relayNow.Add(time.Minute))

	sent, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, []string{"F-2026-000001", "F-2026-000002"}, handler.seen)

	sent, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	count, err := repo.CountByStatus(context.Background(), shared.OutboxStatusSent)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRelay_RetriesAfterBackoff(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := persistence.NewGormOutboxRepository(db)
	saveOutboxEntry(t, repo, "F-2026-000001", 0)
	handler := &countingHandler{err: errors.New("downstream down")}

	sent, err := newRelay(repo, handler, relayNow).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	failed, err := repo.CountByStatus(context.Background(), shared.OutboxStatusFailed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), failed)

	handler.err = nil
	sent, err = newRelay(repo, handler, relayNow.Add(100*time.Millisecond)).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent, "not due before the backoff elapses")

	sent, err = newRelay(repo, handler, relayNow.Add(time.Minute)).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestRelay_DeadLettersAfterMaxRetries(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := persistence.NewGormOutboxRepository(db)
	saveOutboxEntry(t, repo, "F-2026-000001", 0)
	handler := &countingHandler{err: errors.New("permanent")}

	at := relayNow
	for i := 0; i < shared.DefaultMaxRetries; i++ {
		_, err := newRelay(repo, handler, at).RunOnce(context.Background())
		require.NoError(t, err)
		at = at.Add(time.Hour)
	}

	dead, err := repo.CountByStatus(context.Background(), shared.OutboxStatusDead)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dead)
}

func TestRelay_StartStop(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := persistence.NewGormOutboxRepository(db)
	relay := event.NewRelay(repo, event.NewInMemoryEventBus(nil), event.NewDocumentEventSerializer(),
		event.RelayConfig{PollInterval: 10 * time.Millisecond}, nil)

	relay.Start(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, relay.Stop(ctx))
}
