package compliance

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType classifies compliance events
type EventType string

const (
	EventDocumentPosted      EventType = "document_posted"
	EventChainEncodingFailed EventType = "chain_encoding_failed"
	EventChainVerified       EventType = "chain_verified"
	EventChainBroken         EventType = "chain_broken"
	EventRegistryExported    EventType = "registry_exported"
)

// Event is an append-only compliance record. It is never updated or deleted.
type Event struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	DocumentID *uuid.UUID
	EventType  EventType
	Payload    []byte
	CreatedAt  time.Time
}

// NewEvent creates an event with a JSON payload
func NewEvent(tenantID uuid.UUID, documentID *uuid.UUID, eventType EventType, payload any, at time.Time) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:         uuid.New(),
		TenantID:   tenantID,
		DocumentID: documentID,
		EventType:  eventType,
		Payload:    raw,
		CreatedAt:  at,
	}, nil
}

// PostedPayload is carried by document_posted events
type PostedPayload struct {
	Series       string  `json:"series"`
	Number       int64   `json:"number"`
	FullNumber   string  `json:"full_number"`
	Hash         string  `json:"hash"`
	PreviousHash *string `json:"previous_hash"`
}

// EncodingFailedPayload is carried by chain_encoding_failed events
type EncodingFailedPayload struct {
	Series string `json:"series"`
	Number int64  `json:"number"`
	Error  string `json:"error"`
}

// AuditLog is a generic append-only record of who did what
type AuditLog struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	EntityType string
	EntityID   uuid.UUID
	Details    []byte
	CreatedAt  time.Time
}

// NewAuditLog creates an audit entry with JSON details
func NewAuditLog(tenantID uuid.UUID, actorID uuid.UUID, action, entityType string, entityID uuid.UUID, details any, at time.Time) (*AuditLog, error) {
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	entry := &AuditLog{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    raw,
		CreatedAt:  at,
	}
	if actorID != uuid.Nil {
		entry.ActorID = &actorID
	}
	return entry, nil
}

// ExportBatch is the append-only metadata of a generated registry file
type ExportBatch struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	PeriodFrom  time.Time
	PeriodTo    time.Time
	RecordCount int
	FileHash    string
	StorageKey  string
	GeneratedBy *uuid.UUID
	GeneratedAt time.Time
}
