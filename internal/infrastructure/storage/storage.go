// Package storage holds the write-once backends registry exports land in.
package storage

import (
	"context"
	"errors"
	"fmt"

	appcomp "github.com/erp/posting/internal/application/compliance"
	"github.com/erp/posting/internal/infrastructure/config"
	"go.uber.org/zap"
)

var (
	// ErrObjectExists is returned when an export key was already written
	ErrObjectExists = errors.New("storage: object already exists")
	ErrEmptyKey     = errors.New("storage: key is required")
)

// New builds the backend selected by cfg.Type. S3 buckets are created on
// first use.
func New(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (appcomp.ObjectStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Type {
	case "", "local":
		return NewLocalObjectStorage(cfg.LocalPath, logger)
	case "s3":
		s, err := NewS3ObjectStorage(ctx, cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("storage: unknown type %q", cfg.Type)
	}
}
