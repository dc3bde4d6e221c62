// Package usecase manages peer connections: creation, inbound authentication and
// the outbound tokens used by the peer client.
package usecase

import (
	"context"

	peerDomain "github.com/allisson/peertransfer/internal/peer/domain"
)

// ConnectionRepository persists peer connections for one tenant.
type ConnectionRepository interface {
	Upsert(ctx context.Context, conn *peerDomain.Connection) error
	Get(ctx context.Context, identity string) (*peerDomain.Connection, error)
	UpdateStatus(ctx context.Context, identity string, status peerDomain.ConnectionStatus) error
}

// ConnectionUseCase manages connections with other identity hosts.
type ConnectionUseCase interface {
	// Create stores an active connection with identity and returns the inbound secret
	// the peer must present. Calling it again rotates the secret and the token.
	Create(ctx context.Context, identity string, outboundToken string) (string, error)

	// Authenticate verifies the credentials presented by an inbound peer request.
	Authenticate(ctx context.Context, identity string, secret string) (*peerDomain.Connection, error)

	// IsActive reports whether identity has an active connection.
	IsActive(ctx context.Context, identity string) (bool, error)

	// OutboundToken returns the plain token presented to identity.
	OutboundToken(ctx context.Context, identity string) (string, error)

	// Block rejects further inbound requests from identity.
	Block(ctx context.Context, identity string) error
}
