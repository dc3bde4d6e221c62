package domain

// Algorithm represents the AEAD algorithm used to seal key material at rest.
//
// Both algorithms take a 32-byte key, a 12-byte nonce and produce a 16-byte tag.
type Algorithm string

const (
	// AESGCM represents the AES-256-GCM authenticated encryption algorithm.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents the ChaCha20-Poly1305 authenticated encryption algorithm.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// EncryptionType identifies how an EncryptedKeyHeader was produced.
type EncryptionType string

const (
	// EncryptionTypeAes is a key header wrapped with a symmetric AES key.
	EncryptionTypeAes EncryptionType = "aes"
	// EncryptionTypeRsa is a key header wrapped with an RSA public key. Kept for
	// decoding legacy headers; never produced.
	EncryptionTypeRsa EncryptionType = "rsa"
)

const (
	// EncryptionVersion is the only supported version of wrapped key headers.
	EncryptionVersion = 1

	// IvSize is the size of a key header IV (one AES block).
	IvSize = 16
	// AesKeySize is the size of a key header content key (AES-128).
	AesKeySize = 16
	// CombinedKeyHeaderSize is the size of Iv || AesKey.
	CombinedKeyHeaderSize = IvSize + AesKeySize

	// MasterKeySize is the size of the host master key.
	MasterKeySize = 32
	// SaltSize is the size of the HKDF salt of a recipient wrap.
	SaltSize = 16

	// TransferKeyInfo is the HKDF info string binding a derived key to recipient wraps.
	TransferKeyInfo = "peer-transfer-key-v1"
)
