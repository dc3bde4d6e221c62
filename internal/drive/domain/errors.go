package domain

import (
	"github.com/allisson/peertransfer/internal/errors"
)

// Drive storage error definitions.
var (
	// ErrFileNotFound indicates the file has no stored header, metadata or payload.
	ErrFileNotFound = errors.Wrap(errors.ErrNotFound, "drive file not found")

	// ErrInvalidFile indicates a stored file misses a required part.
	ErrInvalidFile = errors.Wrap(errors.ErrInvalidInput, "drive file is not valid")

	// ErrInvalidFileID indicates a drive or file id that is not set.
	ErrInvalidFileID = errors.Wrap(errors.ErrInvariant, "invalid drive file id")
)
