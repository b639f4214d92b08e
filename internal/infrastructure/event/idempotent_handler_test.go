package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) Close() error { return nil }

func TestIdempotentHandler_SkipsRedelivery(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore(time.Hour)
	defer store.Close()
	inner := &recordingHandler{types: []string{"Posted"}}
	h := NewIdempotentHandler(inner, store, time.Hour, nil)
	event := newTestEvent("Posted")

	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), newTestEvent("Posted")))

	assert.Equal(t, 2, inner.count())
	assert.Equal(t, []string{"Posted"}, h.EventTypes())
}

func TestIdempotentHandler_FailureAllowsRetry(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore(time.Hour)
	defer store.Close()
	inner := &recordingHandler{err: errors.New("transient")}
	h := NewIdempotentHandler(inner, store, time.Hour, nil)
	event := newTestEvent("Posted")

	require.Error(t, h.Handle(context.Background(), event))
	inner.err = nil
	require.NoError(t, h.Handle(context.Background(), event))
	assert.Equal(t, 2, inner.count())
}

func TestIdempotentHandler_StoreFailureStillHandles(t *testing.T) {
	store := &mockStore{}
	store.On("MarkProcessed", mock.Anything, mock.Anything, shared.DefaultIdempotencyTTL).Return(false, errors.New("redis down"))
	inner := &recordingHandler{}
	h := NewIdempotentHandler(inner, store, 0, nil)

	require.NoError(t, h.Handle(context.Background(), newTestEvent("Posted")))
	assert.Equal(t, 1, inner.count())
	store.AssertExpectations(t)
}
