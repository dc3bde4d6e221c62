package domain

import (
	"github.com/allisson/peertransfer/internal/errors"
)

// Inbox error definitions.
var (
	// ErrInboxItemNotFound indicates the item does not exist or was already completed.
	ErrInboxItemNotFound = errors.Wrap(errors.ErrNotFound, "inbox item not found")

	// ErrSignatureInvalid indicates an audit event whose signature does not match.
	ErrSignatureInvalid = errors.Wrap(errors.ErrInvariant, "audit event signature is invalid")

	// ErrTransferRejected indicates an incoming transfer refused by a filter.
	ErrTransferRejected = errors.Wrap(errors.ErrForbidden, "transfer rejected")

	// ErrInvalidTransfer indicates an incoming transfer without a sender or file.
	ErrInvalidTransfer = errors.Wrap(errors.ErrInvalidInput, "invalid incoming transfer")
)
