// Package service provides the cryptographic primitives of peer transfers: key header
// wrapping for storage and for recipients, key derivation from the master key and AEAD
// sealing of host transit keys.
package service

import (
	"crypto/ecdh"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// KeyWrapper re-wraps file key headers for storage and for recipients.
type KeyWrapper interface {
	// Combine returns Iv || AesKey in a fresh buffer the caller must wipe.
	Combine(keyHeader *cryptoDomain.KeyHeader) []byte

	// EncryptAes wraps a key header with a symmetric storage key.
	EncryptAes(keyHeader *cryptoDomain.KeyHeader, symmetricKey []byte) (*cryptoDomain.EncryptedKeyHeader, error)

	// DecryptAesToKeyHeader reverses EncryptAes.
	DecryptAesToKeyHeader(
		encrypted *cryptoDomain.EncryptedKeyHeader,
		symmetricKey []byte,
	) (*cryptoDomain.KeyHeader, error)

	// WrapForRecipient wraps a key header so that only the holder of the private
	// half of recipientPublicKey (DER) can recover it.
	WrapForRecipient(
		keyHeader *cryptoDomain.KeyHeader,
		recipientPublicKey []byte,
	) (*cryptoDomain.EncryptedRecipientTransferKeyHeader, error)

	// UnwrapFromRecipient reverses WrapForRecipient with the recipient private key.
	UnwrapFromRecipient(
		header *cryptoDomain.EncryptedRecipientTransferKeyHeader,
		privateKey *ecdh.PrivateKey,
	) (*cryptoDomain.KeyHeader, error)
}

// KeyDeriver derives purpose bound keys from the master key.
type KeyDeriver interface {
	// DriveStorageKey returns the 16-byte key protecting key headers stored on a drive.
	DriveStorageKey(driveID string) ([]byte, error)

	// AuditSigningKey returns the 32-byte key signing audit events.
	AuditSigningKey() ([]byte, error)

	// HostKeySealingKey returns the 32-byte key sealing host transit private keys.
	HostKeySealingKey() ([]byte, error)

	// PeerTokenSealingKey returns the 32-byte key sealing outbound peer tokens at rest.
	PeerTokenSealingKey() ([]byte, error)
}
