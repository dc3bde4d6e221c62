package service

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"fmt"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
)

// GenerateTransitKey creates a new ECC P-384 key pair.
func GenerateTransitKey() (*ecdh.PrivateKey, error) {
	key, err := ecdh.P384().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate P-384 key: %w", err)
	}
	return key, nil
}

// MarshalPublicKey encodes a public key as DER (PKIX).
func MarshalPublicKey(pub *ecdh.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	return der, nil
}

// ParsePublicKey decodes a DER (PKIX) P-384 public key.
func ParsePublicKey(der []byte) (*ecdh.PublicKey, error) {
	if len(der) == 0 {
		return nil, cryptoDomain.ErrInvalidPublicKey
	}

	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrInvalidPublicKey, err)
	}

	switch key := parsed.(type) {
	case *ecdsa.PublicKey:
		if key.Curve != elliptic.P384() {
			return nil, fmt.Errorf("%w: curve must be P-384", cryptoDomain.ErrInvalidPublicKey)
		}
		pub, err := key.ECDH()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrInvalidPublicKey, err)
		}
		return pub, nil
	case *ecdh.PublicKey:
		if key.Curve() != ecdh.P384() {
			return nil, fmt.Errorf("%w: curve must be P-384", cryptoDomain.ErrInvalidPublicKey)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: not an elliptic curve key", cryptoDomain.ErrInvalidPublicKey)
	}
}

// MarshalPrivateKey encodes a private key as DER (PKCS#8). The caller wipes the result.
func MarshalPrivateKey(key *ecdh.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	return der, nil
}

// ParsePrivateKey decodes a DER (PKCS#8) P-384 private key.
func ParsePrivateKey(der []byte) (*ecdh.PrivateKey, error) {
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	switch key := parsed.(type) {
	case *ecdsa.PrivateKey:
		return key.ECDH()
	case *ecdh.PrivateKey:
		return key, nil
	default:
		return nil, fmt.Errorf("unsupported private key type %T", parsed)
	}
}
