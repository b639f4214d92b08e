package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRedisStore connects to ERP_TEST_REDIS_ADDR and isolates keys per test
func newRedisStore(t *testing.T) *RedisIdempotencyStore {
	t.Helper()
	addr := os.Getenv("ERP_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ERP_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	store := NewRedisIdempotencyStoreWithClient(client, "test:"+uuid.NewString()+":")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisIdempotencyStore_MarkProcessed(t *testing.T) {
	store := newRedisStore(t)
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
}

func TestRedisIdempotencyStore_Reserve(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	value, created, err := store.Reserve(ctx, "req-1", "doc-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "doc-a", value)

	value, created, err = store.Reserve(ctx, "req-1", "doc-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "doc-a", value)

	require.NoError(t, store.Release(ctx, "req-1"))
	_, created, err = store.Reserve(ctx, "req-1", "doc-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, created)
}
