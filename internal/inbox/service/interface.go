// Package service provides the signer protecting the inbox audit trail.
package service

import (
	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
)

// AuditSigner signs audit events and verifies their signatures.
type AuditSigner interface {
	// Sign returns the HMAC-SHA256 of the canonical form of event under signingKey.
	Sign(signingKey []byte, event *inboxDomain.AuditEvent) ([]byte, error)

	// Verify returns ErrSignatureInvalid when event.Signature does not match.
	Verify(signingKey []byte, event *inboxDomain.AuditEvent) error
}
