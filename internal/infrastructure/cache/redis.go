package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

var (
	_ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
	_ shared.RequestKeyStore  = (*RedisIdempotencyStore)(nil)
)

// DefaultKeyPrefix namespaces every key this package writes
const DefaultKeyPrefix = "posting:idempotency:"

// RedisIdempotencyStore shares idempotency keys across instances
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisIdempotencyStore connects and pings the configured server
func NewRedisIdempotencyStore(ctx context.Context, cfg config.RedisConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisIdempotencyStoreWithClient(client, DefaultKeyPrefix), nil
}

// NewRedisIdempotencyStoreWithClient wraps an existing client
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix}
}

// MarkProcessed uses SET NX so exactly one caller wins
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark key as processed: %w", err)
	}
	return ok, nil
}

// IsProcessed reports whether the key exists
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check key: %w", err)
	}
	return n > 0, nil
}

// Reserve binds key to value with SET NX and reads the existing binding otherwise
func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key, value string, ttl time.Duration) (string, bool, error) {
	full := s.keyPrefix + key
	ok, err := s.client.SetNX(ctx, full, value, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to reserve key: %w", err)
	}
	if ok {
		return value, true, nil
	}
	existing, err := s.client.Get(ctx, full).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return s.Reserve(ctx, key, value, ttl)
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read reserved key: %w", err)
	}
	return existing, false, nil
}

// Release deletes the key
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release key: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}
