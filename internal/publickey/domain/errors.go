package domain

import (
	"github.com/allisson/peertransfer/internal/errors"
)

// ErrPublicKeyNotFound indicates no cached public key exists for the identity.
var ErrPublicKeyNotFound = errors.Wrap(errors.ErrNotFound, "transit public key not found")
