// Package usecase implements the directory of recipient transit public keys.
package usecase

import (
	"context"

	publicKeyDomain "github.com/allisson/peertransfer/internal/publickey/domain"
)

// PublicKeyRepository is the durable key cache.
type PublicKeyRepository interface {
	Upsert(ctx context.Context, key *publicKeyDomain.TransitPublicKey) error
	Get(ctx context.Context, identity string) (*publicKeyDomain.TransitPublicKey, error)
	Delete(ctx context.Context, identity string) error
}

// Directory resolves recipient identities to their transit public keys.
type Directory interface {
	// GetPublicKey returns a valid key for recipient, or nil when none is available.
	// With lookupIfInvalid a missing or invalid cached key is fetched from the
	// recipient. Fetch failures are logged and yield nil; only storage failures
	// are returned as errors.
	GetPublicKey(
		ctx context.Context,
		recipient string,
		lookupIfInvalid bool,
	) (*publicKeyDomain.TransitPublicKey, error)

	// Invalidate drops the cached key of recipient.
	Invalidate(ctx context.Context, recipient string) error
}
