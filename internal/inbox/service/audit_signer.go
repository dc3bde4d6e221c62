package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"

	apperrors "github.com/allisson/peertransfer/internal/errors"
	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
)

const signingKeySize = 32

type auditSigner struct{}

// canonicalize converts an event to the byte form that is signed.
// Format: id || tracker_id || kind || sender || detail || created_at, with
// variable-length fields length-prefixed so that no two events share an encoding.
func (a *auditSigner) canonicalize(event *inboxDomain.AuditEvent) []byte {
	buf := make([]byte, 0, 128+len(event.Sender)+len(event.Detail))

	buf = append(buf, event.ID[:]...)
	buf = append(buf, event.TrackerID[:]...)
	buf = appendLengthPrefixed(buf, []byte(event.Kind))
	buf = appendLengthPrefixed(buf, []byte(event.Sender))
	buf = appendLengthPrefixed(buf, []byte(event.Detail))

	buf = binary.BigEndian.AppendUint64(buf, uint64(event.CreatedAt.UnixNano()))
	return buf
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

func (a *auditSigner) Sign(signingKey []byte, event *inboxDomain.AuditEvent) ([]byte, error) {
	if len(signingKey) != signingKeySize {
		return nil, apperrors.Wrapf(apperrors.ErrInvariant, "audit signing key must be %d bytes", signingKeySize)
	}

	mac := hmac.New(sha256.New, signingKey)
	mac.Write(a.canonicalize(event))
	return mac.Sum(nil), nil
}

func (a *auditSigner) Verify(signingKey []byte, event *inboxDomain.AuditEvent) error {
	expected, err := a.Sign(signingKey, event)
	if err != nil {
		return apperrors.Wrap(err, "failed to compute expected signature")
	}

	if !hmac.Equal(event.Signature, expected) {
		return inboxDomain.ErrSignatureInvalid
	}
	return nil
}

// NewAuditSigner creates an HMAC-SHA256 audit event signer. The signing key is
// derived from the master key by the caller.
func NewAuditSigner() AuditSigner {
	return &auditSigner{}
}
