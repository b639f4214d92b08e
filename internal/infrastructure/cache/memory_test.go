package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/posting/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore returns a store with a controllable clock
func newTestStore(t *testing.T) (*InMemoryIdempotencyStore, *time.Time) {
	t.Helper()
	store := NewInMemoryIdempotencyStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	return store, &now
}

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	isNew, err := store.MarkProcessed(ctx, "event-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = store.MarkProcessed(ctx, "event-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, isNew)

	processed, err := store.IsProcessed(ctx, "event-1")
	require.NoError(t, err)
	assert.True(t, processed)

	*now = now.Add(time.Minute)
	processed, err = store.IsProcessed(ctx, "event-1")
	require.NoError(t, err)
	assert.False(t, processed)

	isNew, err = store.MarkProcessed(ctx, "event-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, isNew, "expired key can be marked again")
}

func TestInMemoryIdempotencyStore_Reserve(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	value, created, err := store.Reserve(ctx, "req-1", "doc-a", time.Hour)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "doc-a", value)

	value, created, err = store.Reserve(ctx, "req-1", "doc-b", time.Hour)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "doc-a", value)

	require.NoError(t, store.Release(ctx, "req-1"))
	value, created, err = store.Reserve(ctx, "req-1", "doc-b", time.Hour)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "doc-b", value)

	*now = now.Add(2 * time.Hour)
	_, created, err = store.Reserve(ctx, "req-1", "doc-c", time.Hour)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	_, _ = store.MarkProcessed(ctx, "short-1", time.Second)
	_, _ = store.MarkProcessed(ctx, "short-2", time.Second)
	_, _ = store.MarkProcessed(ctx, "long", time.Hour)
	assert.Equal(t, 3, store.Size())

	*now = now.Add(time.Minute)
	store.cleanup()
	assert.Equal(t, 1, store.Size())

	processed, err := store.IsProcessed(ctx, "long")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestInMemoryIdempotencyStore_ConcurrentMark(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Close()
	ctx := context.Background()

	const workers = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			isNew, err := store.MarkProcessed(ctx, "same-event", time.Hour)
			if err == nil && isNew {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore(0)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestNewStore_RedisDisabled(t *testing.T) {
	store, err := NewStore(context.Background(), config.RedisConfig{Enabled: false}, false, nil)
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
}

func TestNewStore_FallbackWhenUnreachable(t *testing.T) {
	cfg := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	store, err := NewStore(context.Background(), cfg, true, nil)
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)

	_, err = NewStore(context.Background(), cfg, false, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis required")
}
