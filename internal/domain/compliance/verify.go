package compliance

import (
	"bytes"
	"fmt"

	"github.com/erp/posting/internal/domain/document"
	"github.com/google/uuid"
)

// ChainBreak describes the first inconsistency found in a chain
type ChainBreak struct {
	DocumentID uuid.UUID `json:"document_id"`
	FullNumber string    `json:"full_number"`
	Reason     string    `json:"reason"`
}

// ChainReport is the outcome of verifying a (tenant, series) chain
type ChainReport struct {
	TenantID uuid.UUID   `json:"tenant_id"`
	Series   string      `json:"series"`
	Checked  int         `json:"checked"`
	LastHash string      `json:"last_hash,omitempty"`
	Break    *ChainBreak `json:"break,omitempty"`
}

// Valid reports whether the chain verified without a break
func (r ChainReport) Valid() bool {
	return r.Break == nil
}

// VerifyChain walks posted documents ordered by number and checks that
// numbers are gapless, each previous hash links to its predecessor, each
// stored hash matches its stored canonical bytes and that re-canonicalizing
// the rows reproduces those bytes.
func VerifyChain(issuerTaxID string, tenantID uuid.UUID, series string, docs []document.Document) ChainReport {
	report := ChainReport{TenantID: tenantID, Series: series}
	var prevHash *string

	for i := range docs {
		doc := &docs[i]
		fail := func(format string, args ...any) ChainReport {
			report.Break = &ChainBreak{DocumentID: doc.ID, FullNumber: doc.FullNumber, Reason: fmt.Sprintf(format, args...)}
			return report
		}

		if doc.Number == nil || *doc.Number != int64(i+1) {
			return fail("expected number %d", i+1)
		}
		if !samePointer(doc.PreviousHash, prevHash) {
			return fail("previous hash does not link to the preceding document")
		}
		if HashBytes(doc.CanonicalPayload) != doc.Hash {
			return fail("stored hash does not match stored canonical payload")
		}
		payload, err := document.ParseSnapshot(doc.Payload)
		if err != nil {
			return fail("payload is not valid: %v", err)
		}
		digest, err := SHA256Hasher{}.Hash(Canonicalize(issuerTaxID, doc, payload, doc.PreviousHash, doc.FullNumber))
		if err != nil {
			return fail("canonical form could not be encoded: %v", err)
		}
		if !bytes.Equal(digest.Canonical, doc.CanonicalPayload) {
			return fail("document rows no longer match the hashed canonical payload")
		}

		hash := doc.Hash
		prevHash = &hash
		report.Checked++
		report.LastHash = hash
	}
	return report
}

func samePointer(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
