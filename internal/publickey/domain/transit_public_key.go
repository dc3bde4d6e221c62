// Package domain defines the transit public keys published by identity hosts.
package domain

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"time"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
)

// TransitPublicKey is the ECC P-384 public key a remote identity publishes for
// wrapping transfer key headers addressed to it.
type TransitPublicKey struct {
	Identity  string    `json:"identity,omitempty"`
	PublicKey []byte    `json:"publicKey"`
	Crc32     uint32    `json:"crc32"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"-"`
}

// IsValid reports whether the key is present, matches its checksum, parses as a
// P-384 PKIX key and has not expired at now.
func (k *TransitPublicKey) IsValid(now time.Time) bool {
	if k == nil || len(k.PublicKey) == 0 {
		return false
	}
	if cryptoDomain.PublicKeyCrc32(k.PublicKey) != k.Crc32 {
		return false
	}
	if !now.Before(k.ExpiresAt) {
		return false
	}

	parsed, err := x509.ParsePKIXPublicKey(k.PublicKey)
	if err != nil {
		return false
	}
	pub, ok := parsed.(*ecdsa.PublicKey)
	return ok && pub.Curve == elliptic.P384()
}
