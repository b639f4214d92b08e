package cache

import (
	"context"
	"fmt"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Store is what the server needs from an idempotency backend
type Store interface {
	shared.IdempotencyStore
	shared.RequestKeyStore
}

// NewStore returns a Redis store when Redis is enabled and reachable. With
// allowFallback an unreachable Redis degrades to an in-memory store.
func NewStore(ctx context.Context, cfg config.RedisConfig, allowFallback bool, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Info("Redis disabled, using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(0), nil
	}

	store, err := NewRedisIdempotencyStore(ctx, cfg)
	if err == nil {
		logger.Info("Using Redis idempotency store", zap.String("addr", cfg.Addr()))
		return store, nil
	}
	if !allowFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}
	logger.Warn("Redis unavailable, falling back to in-memory idempotency store; "+
		"keys are not shared between instances",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(0), nil
}
