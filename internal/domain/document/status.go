package document

// DocType is the kind of commercial document
type DocType string

const (
	DocTypeTicket     DocType = "ticket"
	DocTypeInvoice    DocType = "invoice"
	DocTypeCreditNote DocType = "credit_note"
)

// IsValid checks if the document type is known
func (t DocType) IsValid() bool {
	switch t {
	case DocTypeTicket, DocTypeInvoice, DocTypeCreditNote:
		return true
	}
	return false
}

// Status is the lifecycle state of a document
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPosted    Status = "posted"
	StatusCancelled Status = "cancelled"
)

// CanTransitionTo checks if the status can transition to the target status.
// Posted and cancelled are terminal.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusPosted || target == StatusCancelled
	case StatusPosted, StatusCancelled:
		return false
	}
	return false
}
