// Package dto provides the wire shapes of the transit public key endpoint.
package dto

import (
	"time"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	publicKeyDomain "github.com/allisson/peertransfer/internal/publickey/domain"
)

// MapHostKeyToResponse publishes the public half of key, valid until expiresAt.
func MapHostKeyToResponse(key *cryptoDomain.HostTransitKey, expiresAt time.Time) publicKeyDomain.TransitPublicKey {
	return publicKeyDomain.TransitPublicKey{
		PublicKey: key.PublicKey,
		Crc32:     key.Crc32,
		ExpiresAt: expiresAt.UTC(),
	}
}
