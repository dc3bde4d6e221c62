// Package usecase manages the host transit key pair: creation, rotation and
// unwrapping of recipient key headers addressed to this host.
package usecase

import (
	"context"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
)

// HostKeyRepository persists host transit keys for one tenant.
type HostKeyRepository interface {
	Create(ctx context.Context, key *cryptoDomain.HostTransitKey) error
	GetLatest(ctx context.Context) (*cryptoDomain.HostTransitKey, error)
	GetByCrc32(ctx context.Context, crc uint32) (*cryptoDomain.HostTransitKey, error)
}

// HostKeyUseCase exposes the host transit key to the perimeter.
type HostKeyUseCase interface {
	// GetActive returns the active key, creating the first one when none exists.
	GetActive(ctx context.Context) (*cryptoDomain.HostTransitKey, error)

	// Rotate creates a new active key. Older keys keep unwrapping headers.
	Rotate(ctx context.Context) (*cryptoDomain.HostTransitKey, error)

	// UnwrapTransferKeyHeader recovers the key header a peer wrapped for this host.
	UnwrapTransferKeyHeader(
		ctx context.Context,
		header *cryptoDomain.EncryptedRecipientTransferKeyHeader,
	) (*cryptoDomain.KeyHeader, error)
}
