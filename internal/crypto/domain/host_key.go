package domain

import (
	"hash/crc32"
	"time"

	"github.com/google/uuid"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// PublicKeyCrc32 returns the CRC-32C checksum of a DER encoded public key.
func PublicKeyCrc32(der []byte) uint32 {
	return crc32.Checksum(der, castagnoli)
}

// HostTransitKey is one ECC P-384 key pair of this host. The private key is
// sealed with an AEAD key derived from the master key; the newest row is active
// and older rows stay available to unwrap headers sent before a rotation.
type HostTransitKey struct {
	ID                  uuid.UUID
	TenantID            string
	PublicKey           []byte
	Crc32               uint32
	EncryptedPrivateKey []byte
	Nonce               []byte
	Algorithm           Algorithm
	CreatedAt           time.Time
}
