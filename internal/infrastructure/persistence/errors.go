package persistence

import (
	"errors"
	"strings"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL error codes that map onto domain errors
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgUniqueViolation      = "23505"
	pgRaiseException       = "P0001"
)

// translateError maps driver errors onto domain errors. Lock waits that hit
// lock_timeout, deadlocks and serialization failures become
// ErrConcurrencyConflict so callers can retry; unique violations become
// ErrAlreadyExists; the immutability trigger becomes ErrDocumentLocked.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return shared.ErrConcurrencyConflict
		case pgUniqueViolation:
			return shared.ErrAlreadyExists
		case pgRaiseException:
			if strings.Contains(pgErr.Message, "immutable") {
				return shared.ErrDocumentLocked
			}
		}
		return err
	}

	// SQLite reports busy locks and constraint failures as plain messages
	msg := err.Error()
	switch {
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "database table is locked"):
		return shared.ErrConcurrencyConflict
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return shared.ErrAlreadyExists
	}
	return err
}
