package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := NewDomainError(CodeInvalidState, "document is not a draft")

	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.True(t, errors.Is(fmt.Errorf("post: %w", err), ErrInvalidState))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "document is not a draft", err.Error())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrConcurrencyConflict))
	assert.True(t, IsRetryable(fmt.Errorf("allocate: %w", ErrConcurrencyConflict)))
	assert.False(t, IsRetryable(ErrDocumentLocked))
	assert.False(t, IsRetryable(errors.New("plain")))
}
