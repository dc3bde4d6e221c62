package service

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
)

// wipe clears sensitive buffers. Tests replace it to observe which buffers are wiped.
var wipe = cryptoDomain.Zero

type keyWrapper struct{}

// NewKeyWrapper creates a KeyWrapper. Recipient wraps use ECDH P-384 with an ephemeral
// sender key and HKDF-SHA256, then AES-CBC with a random IV.
func NewKeyWrapper() KeyWrapper {
	return &keyWrapper{}
}

func (w *keyWrapper) Combine(keyHeader *cryptoDomain.KeyHeader) []byte {
	return keyHeader.Combine()
}

func (w *keyWrapper) EncryptAes(
	keyHeader *cryptoDomain.KeyHeader,
	symmetricKey []byte,
) (*cryptoDomain.EncryptedKeyHeader, error) {
	if keyHeader == nil {
		return nil, cryptoDomain.ErrEncryptionFailure
	}

	combined := keyHeader.Combine()
	defer wipe(combined)

	data, err := aesCbcEncrypt(symmetricKey, keyHeader.Iv, combined)
	if err != nil {
		return nil, err
	}

	return &cryptoDomain.EncryptedKeyHeader{
		EncryptionVersion: cryptoDomain.EncryptionVersion,
		Type:              cryptoDomain.EncryptionTypeAes,
		Iv:                append([]byte(nil), keyHeader.Iv...),
		Data:              data,
	}, nil
}

func (w *keyWrapper) DecryptAesToKeyHeader(
	encrypted *cryptoDomain.EncryptedKeyHeader,
	symmetricKey []byte,
) (*cryptoDomain.KeyHeader, error) {
	if encrypted == nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	if encrypted.EncryptionVersion != cryptoDomain.EncryptionVersion {
		return nil, fmt.Errorf("%w: %d", cryptoDomain.ErrUnsupportedEncryptionVersion, encrypted.EncryptionVersion)
	}
	if encrypted.Type != cryptoDomain.EncryptionTypeAes {
		return nil, fmt.Errorf("%w: type %q", cryptoDomain.ErrDecryptionFailed, encrypted.Type)
	}

	combined, err := aesCbcDecrypt(symmetricKey, encrypted.Iv, encrypted.Data)
	if err != nil {
		return nil, err
	}
	defer wipe(combined)

	keyHeader, err := cryptoDomain.SplitKeyHeader(combined)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return keyHeader, nil
}

func (w *keyWrapper) WrapForRecipient(
	keyHeader *cryptoDomain.KeyHeader,
	recipientPublicKey []byte,
) (*cryptoDomain.EncryptedRecipientTransferKeyHeader, error) {
	if keyHeader == nil {
		return nil, cryptoDomain.ErrEncryptionFailure
	}

	remote, err := ParsePublicKey(recipientPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrEncryptionFailure, err)
	}

	ephemeral, err := ecdh.P384().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrEncryptionFailure, err)
	}

	shared, err := ephemeral.ECDH(remote)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrEncryptionFailure, err)
	}
	defer wipe(shared)

	salt := make([]byte, cryptoDomain.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrEncryptionFailure, err)
	}
	iv := make([]byte, cryptoDomain.IvSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrEncryptionFailure, err)
	}

	wrappingKey, err := deriveTransferKey(shared, salt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrEncryptionFailure, err)
	}
	defer wipe(wrappingKey)

	combined := keyHeader.Combine()
	defer wipe(combined)

	encryptedData, err := aesCbcEncrypt(wrappingKey, iv, combined)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrEncryptionFailure, err)
	}

	ephemeralPublic, err := MarshalPublicKey(ephemeral.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrEncryptionFailure, err)
	}

	data, err := json.Marshal(cryptoDomain.EccEncryptedPayload{
		RemotePublicKey: ephemeralPublic,
		KeyCrc32:        cryptoDomain.PublicKeyCrc32(recipientPublicKey),
		Salt:            salt,
		Iv:              iv,
		EncryptedData:   encryptedData,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrEncryptionFailure, err)
	}

	return &cryptoDomain.EncryptedRecipientTransferKeyHeader{
		EncryptionVersion: cryptoDomain.EncryptionVersion,
		Data:              data,
	}, nil
}

func (w *keyWrapper) UnwrapFromRecipient(
	header *cryptoDomain.EncryptedRecipientTransferKeyHeader,
	privateKey *ecdh.PrivateKey,
) (*cryptoDomain.KeyHeader, error) {
	if header == nil || privateKey == nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	if header.EncryptionVersion != cryptoDomain.EncryptionVersion {
		return nil, fmt.Errorf("%w: %d", cryptoDomain.ErrUnsupportedEncryptionVersion, header.EncryptionVersion)
	}

	payload, err := ParseEccPayload(header)
	if err != nil {
		return nil, err
	}

	remote, err := ParsePublicKey(payload.RemotePublicKey)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	shared, err := privateKey.ECDH(remote)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	defer wipe(shared)

	wrappingKey, err := deriveTransferKey(shared, payload.Salt)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	defer wipe(wrappingKey)

	combined, err := aesCbcDecrypt(wrappingKey, payload.Iv, payload.EncryptedData)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	defer wipe(combined)

	keyHeader, err := cryptoDomain.SplitKeyHeader(combined)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return keyHeader, nil
}

// ParseEccPayload decodes the payload of a recipient header.
func ParseEccPayload(header *cryptoDomain.EncryptedRecipientTransferKeyHeader) (*cryptoDomain.EccEncryptedPayload, error) {
	var payload cryptoDomain.EccEncryptedPayload
	if err := json.Unmarshal(header.Data, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed payload", cryptoDomain.ErrDecryptionFailed)
	}
	if len(payload.Salt) != cryptoDomain.SaltSize {
		return nil, fmt.Errorf("%w: invalid salt", cryptoDomain.ErrDecryptionFailed)
	}
	return &payload, nil
}

// deriveTransferKey derives the 16-byte AES key of a recipient wrap.
func deriveTransferKey(shared, salt []byte) ([]byte, error) {
	reader := hkdf.New(sha256.New, shared, salt, []byte(cryptoDomain.TransferKeyInfo))
	key := make([]byte, cryptoDomain.AesKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		wipe(key)
		return nil, err
	}
	return key, nil
}
