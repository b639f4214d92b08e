package compliance

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrChainEncoding is the domain error surfaced when a canonical form cannot be encoded
var ErrChainEncoding = shared.NewDomainError(shared.CodeChainEncoding, "canonical form could not be encoded")

// EncodingError reports a canonical form that could not be serialized
type EncodingError struct {
	DocumentID uuid.UUID
	Cause      error
}

// Error implements the error interface
func (e *EncodingError) Error() string {
	return "canonical form could not be encoded: " + e.Cause.Error()
}

// Unwrap returns the underlying serialization error
func (e *EncodingError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, ErrChainEncoding) match
func (e *EncodingError) Is(target error) bool {
	var de *shared.DomainError
	return errors.As(target, &de) && de.Code == shared.CodeChainEncoding
}

// Digest is the encoded canonical form and its hash
type Digest struct {
	Canonical []byte
	Hash      string
}

// Hasher turns a canonical form into a chain digest
type Hasher interface {
	Hash(form CanonicalForm) (Digest, error)
}

// SHA256Hasher encodes the form canonically and takes a lowercase hex SHA-256
type SHA256Hasher struct{}

// Hash implements Hasher
func (SHA256Hasher) Hash(form CanonicalForm) (Digest, error) {
	canonical, err := EncodeCanonical(form.Tree())
	if err != nil {
		return Digest{}, err
	}
	return Digest{Canonical: canonical, Hash: HashBytes(canonical)}, nil
}

// HashBytes returns the lowercase hex SHA-256 of b
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
