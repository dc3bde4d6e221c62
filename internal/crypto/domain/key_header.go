package domain

import (
	"crypto/rand"
	"fmt"
)

// KeyHeader is the symmetric material protecting one file's content.
// AesKey is a secret and must be wiped with Zero when no longer needed.
type KeyHeader struct {
	Iv     []byte
	AesKey []byte
}

// NewKeyHeader generates a random key header.
func NewKeyHeader() (*KeyHeader, error) {
	iv := make([]byte, IvSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}
	key := make([]byte, AesKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate aes key: %w", err)
	}
	return &KeyHeader{Iv: iv, AesKey: key}, nil
}

// Combine returns a fresh buffer holding Iv || AesKey. The caller owns the
// buffer and must wipe it.
func (k *KeyHeader) Combine() []byte {
	combined := make([]byte, 0, len(k.Iv)+len(k.AesKey))
	combined = append(combined, k.Iv...)
	combined = append(combined, k.AesKey...)
	return combined
}

// Zero wipes the key material.
func (k *KeyHeader) Zero() {
	if k == nil {
		return
	}
	Zero(k.AesKey)
	Zero(k.Iv)
}

// SplitKeyHeader builds a KeyHeader from a combined buffer. The result does not
// share memory with combined, so the caller can wipe it right away.
func SplitKeyHeader(combined []byte) (*KeyHeader, error) {
	if len(combined) != CombinedKeyHeaderSize {
		return nil, fmt.Errorf("%w: combined key header must be %d bytes, got %d",
			ErrInvalidKeySize, CombinedKeyHeaderSize, len(combined))
	}
	iv := make([]byte, IvSize)
	key := make([]byte, AesKeySize)
	copy(iv, combined[:IvSize])
	copy(key, combined[IvSize:])
	return &KeyHeader{Iv: iv, AesKey: key}, nil
}

// EncryptedKeyHeader is a KeyHeader wrapped for storage next to the file.
type EncryptedKeyHeader struct {
	EncryptionVersion int            `json:"encryptionVersion"`
	Type              EncryptionType `json:"type"`
	Iv                []byte         `json:"iv"`
	Data              []byte         `json:"encryptedAesKey"`
}

// EncryptedRecipientTransferKeyHeader is a KeyHeader wrapped for exactly one recipient.
// Data is the JSON encoding of an EccEncryptedPayload.
type EncryptedRecipientTransferKeyHeader struct {
	EncryptionVersion int    `json:"encryptionVersion"`
	Data              []byte `json:"data"`
}

// EccEncryptedPayload carries everything the recipient needs to derive the wrapping
// key from its private transit key.
type EccEncryptedPayload struct {
	// RemotePublicKey is the sender's ephemeral public key (DER, PKIX).
	RemotePublicKey []byte `json:"remotePublicKey"`
	// KeyCrc32 identifies the recipient public key the payload was wrapped for.
	KeyCrc32      uint32 `json:"keyCrc32"`
	Salt          []byte `json:"salt"`
	Iv            []byte `json:"iv"`
	EncryptedData []byte `json:"encryptedData"`
}
