package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// KMSKeeper decrypts the master key ciphertext. *secrets.Keeper implements it.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// MasterKey is the root secret of the host. Drive storage keys, the audit signing
// key and the key sealing host transit keys are all derived from it.
type MasterKey struct {
	Key []byte
}

// Close wipes the key material.
func (m *MasterKey) Close() {
	if m == nil {
		return
	}
	Zero(m.Key)
	m.Key = nil
}

// LoadMasterKey decodes a base64 master key. When keeper is not nil the decoded
// bytes are a KMS ciphertext and are decrypted first.
func LoadMasterKey(ctx context.Context, encoded string, keeper KMSKeeper) (*MasterKey, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrMasterKeyNotSet
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMasterKeyBase64, err)
	}

	if keeper != nil {
		plaintext, err := keeper.Decrypt(ctx, raw)
		Zero(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt master key with KMS: %w", err)
		}
		raw = plaintext
	}

	if len(raw) != MasterKeySize {
		size := len(raw)
		Zero(raw)
		return nil, fmt.Errorf("%w: master key must be %d bytes, got %d", ErrInvalidKeySize, MasterKeySize, size)
	}

	return &MasterKey{Key: raw}, nil
}
