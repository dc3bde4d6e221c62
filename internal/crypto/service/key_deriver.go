package service

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
)

// HKDF info strings, versioned for future algorithm changes.
const (
	driveStorageKeyInfo   = "drive-storage-key-v1"
	auditSigningKeyInfo   = "audit-signing-v1"
	hostKeySealingInfo    = "host-transit-key-sealing-v1"
	peerTokenSealingInfo  = "peer-token-sealing-v1"
	driveStorageKeyLength = cryptoDomain.AesKeySize
	sealingKeyLength      = 32
)

type keyDeriver struct {
	masterKey *cryptoDomain.MasterKey
}

// NewKeyDeriver creates a KeyDeriver over the master key. Derived keys are fresh
// buffers the caller must wipe.
func NewKeyDeriver(masterKey *cryptoDomain.MasterKey) KeyDeriver {
	return &keyDeriver{masterKey: masterKey}
}

func (d *keyDeriver) derive(salt []byte, info string, size int) ([]byte, error) {
	if d.masterKey == nil || len(d.masterKey.Key) != cryptoDomain.MasterKeySize {
		return nil, cryptoDomain.ErrMasterKeyNotSet
	}
	reader := hkdf.New(sha256.New, d.masterKey.Key, salt, []byte(info))
	key := make([]byte, size)
	if _, err := io.ReadFull(reader, key); err != nil {
		cryptoDomain.Zero(key)
		return nil, err
	}
	return key, nil
}

func (d *keyDeriver) DriveStorageKey(driveID string) ([]byte, error) {
	return d.derive([]byte(driveID), driveStorageKeyInfo, driveStorageKeyLength)
}

func (d *keyDeriver) AuditSigningKey() ([]byte, error) {
	return d.derive(nil, auditSigningKeyInfo, sealingKeyLength)
}

func (d *keyDeriver) HostKeySealingKey() ([]byte, error) {
	return d.derive(nil, hostKeySealingInfo, sealingKeyLength)
}

func (d *keyDeriver) PeerTokenSealingKey() ([]byte, error) {
	return d.derive(nil, peerTokenSealingInfo, sealingKeyLength)
}
