package domain

import (
	"github.com/allisson/peertransfer/internal/errors"
)

// Outbox error definitions.
var (
	// ErrOutboxItemNotFound indicates no outbox item exists for (recipient, file).
	ErrOutboxItemNotFound = errors.Wrap(errors.ErrNotFound, "outbox item not found")
)
