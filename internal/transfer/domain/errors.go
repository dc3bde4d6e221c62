package domain

import (
	"github.com/allisson/peertransfer/internal/errors"
)

// Transfer error definitions.
var (
	// ErrSelfTransfer indicates the sender listed itself as a recipient.
	ErrSelfTransfer = errors.Wrap(errors.ErrInvalidInput, "cannot transfer a file to yourself")

	// ErrInvalidPackage indicates an upload without a package id or drive file id.
	ErrInvalidPackage = errors.Wrap(errors.ErrInvariant, "invalid upload package")

	// ErrRecipientKeyNotFound indicates no wrapped key header is stored for the recipient.
	ErrRecipientKeyNotFound = errors.Wrap(errors.ErrNotFound, "recipient transfer key not found")

	// ErrRecipientPublicKeyUnavailable indicates the recipient's transit public key could not be obtained.
	ErrRecipientPublicKeyUnavailable = errors.Wrap(errors.ErrUnavailable, "recipient public key unavailable")

	// ErrInvalidThumbnail indicates a thumbnail whose key is not "<width>x<height>".
	ErrInvalidThumbnail = errors.Wrap(errors.ErrInvalidInput, "invalid thumbnail key")
)
