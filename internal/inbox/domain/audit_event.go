package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditKind is the decision recorded for a transfer.
type AuditKind string

const (
	AuditAccepted    AuditKind = "accepted"
	AuditRejected    AuditKind = "rejected"
	AuditQuarantined AuditKind = "quarantined"
)

// AuditEvent records a decision taken on an incoming transfer. Signature is an
// HMAC over every other field and makes tampering detectable.
type AuditEvent struct {
	ID        uuid.UUID
	TrackerID uuid.UUID
	Kind      AuditKind
	Sender    string
	Detail    string
	Signature []byte
	CreatedAt time.Time
}
