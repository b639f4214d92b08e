package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	appcomp "github.com/erp/posting/internal/application/compliance"
	"go.uber.org/zap"
)

var _ appcomp.ObjectStorage = (*LocalObjectStorage)(nil)

// LocalObjectStorage writes exports below a directory on the local filesystem
type LocalObjectStorage struct {
	root   string
	logger *zap.Logger
}

// NewLocalObjectStorage creates the root directory if needed
func NewLocalObjectStorage(root string, logger *zap.Logger) (*LocalObjectStorage, error) {
	if root == "" {
		return nil, errors.New("storage path is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid storage path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalObjectStorage{root: abs, logger: logger}, nil
}

// Upload writes data under storageKey. Existing files are never overwritten.
func (s *LocalObjectStorage) Upload(_ context.Context, storageKey string, data []byte, _ string) error {
	path, err := s.resolve(storageKey)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrObjectExists, storageKey)
		}
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to write export file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}
	s.logger.Debug("Export written", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

// Download reads an export file back
func (s *LocalObjectStorage) Download(_ context.Context, storageKey string) ([]byte, error) {
	path, err := s.resolve(storageKey)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// GenerateDownloadURL returns a file:// URL. Local files do not expire, the
// returned expiry only mirrors the requested lifetime.
func (s *LocalObjectStorage) GenerateDownloadURL(_ context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	path, err := s.resolve(storageKey)
	if err != nil {
		return "", time.Time{}, err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String(), time.Now().Add(expiresIn), nil
}

// ObjectExists checks if an export file exists
func (s *LocalObjectStorage) ObjectExists(_ context.Context, storageKey string) (bool, error) {
	path, err := s.resolve(storageKey)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// resolve maps a key to a path and rejects keys escaping the root
func (s *LocalObjectStorage) resolve(storageKey string) (string, error) {
	if storageKey == "" {
		return "", ErrEmptyKey
	}
	path := filepath.Join(s.root, filepath.FromSlash(storageKey))
	if path != s.root && !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("storage key %q escapes the storage root", storageKey)
	}
	return path, nil
}
