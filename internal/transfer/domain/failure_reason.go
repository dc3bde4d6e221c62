// Package domain defines peer transfer types: failure reasons, per-recipient transfer
// status, send results and the host-to-host response codes.
package domain

// FailureReason classifies a failed send attempt.
type FailureReason string

const (
	// EncryptedTransferKeyNotAvailable means no wrapped key header exists yet for the recipient.
	EncryptedTransferKeyNotAvailable FailureReason = "encryptedTransferKeyNotAvailable"
	// RecipientServerError means the recipient host answered with a failure.
	RecipientServerError FailureReason = "recipientServerError"
	// CouldNotEncrypt means handling the transfer key failed locally.
	CouldNotEncrypt FailureReason = "couldNotEncrypt"
	// UnknownError covers everything else, timeouts included.
	UnknownError FailureReason = "unknownError"
)

// RoutesToKeyQueue reports whether the failure is resolved by the key-encryption
// retry queue instead of a plain outbox retry.
func (r FailureReason) RoutesToKeyQueue() bool {
	return r == EncryptedTransferKeyNotAvailable
}

// IsValid reports whether r is one of the known reasons.
func (r FailureReason) IsValid() bool {
	switch r {
	case EncryptedTransferKeyNotAvailable, RecipientServerError, CouldNotEncrypt, UnknownError:
		return true
	}
	return false
}
