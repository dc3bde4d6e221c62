package domain

import (
	"github.com/allisson/peertransfer/internal/errors"
)

// Peer connection error definitions.
var (
	// ErrConnectionNotFound indicates no connection exists for the identity.
	ErrConnectionNotFound = errors.Wrap(errors.ErrNotFound, "peer connection not found")

	// ErrConnectionNotActive indicates the connection exists but is blocked.
	ErrConnectionNotActive = errors.Wrap(errors.ErrForbidden, "peer connection is not active")

	// ErrInvalidCredentials indicates a missing identity or a secret that does not match.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid peer credentials")

	// ErrPeerUnreachable indicates a transport failure talking to a peer.
	ErrPeerUnreachable = errors.Wrap(errors.ErrUnavailable, "peer unreachable")
)

// ErrUnexpectedResponse indicates a peer answered with a non-2xx status or an unreadable body.
var ErrUnexpectedResponse = errors.Wrap(errors.ErrUnavailable, "unexpected peer response")
