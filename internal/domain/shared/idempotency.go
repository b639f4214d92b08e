package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys that were already handled, so that a
// redelivered outbox event or a retried HTTP posting request runs only once.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// DefaultIdempotencyTTL is how long processed keys are remembered
const DefaultIdempotencyTTL = 24 * time.Hour

// RequestKeyStore binds client supplied request keys (the HTTP
// Idempotency-Key header) to the resource the first request produced.
type RequestKeyStore interface {
	// Reserve binds key to value unless the key is already bound.
	// It returns the bound value and whether this call created the binding.
	Reserve(ctx context.Context, key, value string, ttl time.Duration) (string, bool, error)

	// Release drops a binding, so that a failed request can be retried with the same key
	Release(ctx context.Context, key string) error
}
