package domain

import (
	"github.com/allisson/peertransfer/internal/errors"
)

// Cryptographic operation error definitions.
var (
	// ErrUnsupportedAlgorithm indicates the requested AEAD algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates the cryptographic key size is invalid.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates a decryption operation failed. The specific
	// cause is not disclosed.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrUnsupportedEncryptionVersion indicates a wrapped header with an unknown version.
	ErrUnsupportedEncryptionVersion = errors.Wrap(errors.ErrInvalidInput, "unsupported encryption version")

	// ErrEncryptionFailure indicates a key header could not be wrapped for a recipient,
	// typically because the recipient public key is absent or malformed.
	ErrEncryptionFailure = errors.Wrap(errors.ErrInvalidInput, "encryption failure")

	// ErrInvalidPublicKey indicates a public key that is not a DER encoded P-384 key.
	ErrInvalidPublicKey = errors.Wrap(errors.ErrInvalidInput, "invalid public key")

	// ErrMasterKeyNotSet indicates MASTER_KEY is not configured.
	ErrMasterKeyNotSet = errors.Wrap(errors.ErrInvariant, "master key not set")

	// ErrInvalidMasterKeyBase64 indicates MASTER_KEY is not valid base64.
	ErrInvalidMasterKeyBase64 = errors.Wrap(errors.ErrInvariant, "invalid master key base64")

	// ErrHostKeyNotFound indicates no host transit key exists or none matches a header.
	ErrHostKeyNotFound = errors.Wrap(errors.ErrNotFound, "host transit key not found")
)
