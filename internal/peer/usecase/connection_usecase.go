package usecase

import (
	"context"
	"time"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	cryptoService "github.com/allisson/peertransfer/internal/crypto/service"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	peerDomain "github.com/allisson/peertransfer/internal/peer/domain"
	peerService "github.com/allisson/peertransfer/internal/peer/service"
	"github.com/allisson/peertransfer/internal/validation"
)

type connectionUseCase struct {
	repo          ConnectionRepository
	secretService peerService.SecretService
	aeadManager   cryptoService.AEADManager
	keyDeriver    cryptoService.KeyDeriver
	tenantID      string
}

// NewConnectionUseCase creates a ConnectionUseCase. Outbound tokens are sealed with
// AES-GCM under a key derived from the master key.
func NewConnectionUseCase(
	repo ConnectionRepository,
	secretService peerService.SecretService,
	aeadManager cryptoService.AEADManager,
	keyDeriver cryptoService.KeyDeriver,
	tenantID string,
) ConnectionUseCase {
	return &connectionUseCase{
		repo:          repo,
		secretService: secretService,
		aeadManager:   aeadManager,
		keyDeriver:    keyDeriver,
		tenantID:      tenantID,
	}
}

func (c *connectionUseCase) tokenCipher() (cryptoService.AEAD, error) {
	key, err := c.keyDeriver.PeerTokenSealingKey()
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key)
	return c.aeadManager.CreateCipher(key, cryptoDomain.AESGCM)
}

// tokenAAD binds a sealed token to the tenant and the peer.
func (c *connectionUseCase) tokenAAD(identity string) []byte {
	return []byte(c.tenantID + "|" + identity)
}

func (c *connectionUseCase) Create(ctx context.Context, identity string, outboundToken string) (string, error) {
	identity = validation.NormalizeIdentity(identity)
	if !validation.IsIdentity(identity) {
		return "", apperrors.Wrapf(apperrors.ErrInvalidInput, "invalid peer identity %q", identity)
	}
	if outboundToken == "" {
		return "", apperrors.Wrap(apperrors.ErrInvalidInput, "outbound token is required")
	}

	plainSecret, hashedSecret, err := c.secretService.GenerateSecret()
	if err != nil {
		return "", err
	}

	cipher, err := c.tokenCipher()
	if err != nil {
		return "", err
	}
	sealed, nonce, err := cipher.Encrypt([]byte(outboundToken), c.tokenAAD(identity))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to seal outbound token")
	}

	now := time.Now().UTC()
	conn := &peerDomain.Connection{
		Identity:           identity,
		Status:             peerDomain.ConnectionActive,
		InboundSecretHash:  hashedSecret,
		OutboundToken:      sealed,
		OutboundTokenNonce: nonce,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := c.repo.Upsert(ctx, conn); err != nil {
		return "", err
	}

	return plainSecret, nil
}

func (c *connectionUseCase) Authenticate(
	ctx context.Context,
	identity string,
	secret string,
) (*peerDomain.Connection, error) {
	if identity == "" || secret == "" {
		return nil, peerDomain.ErrInvalidCredentials
	}

	conn, err := c.repo.Get(ctx, validation.NormalizeIdentity(identity))
	if err != nil {
		if apperrors.Is(err, peerDomain.ErrConnectionNotFound) {
			return nil, peerDomain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !c.secretService.CompareSecret(secret, conn.InboundSecretHash) {
		return nil, peerDomain.ErrInvalidCredentials
	}

	if !conn.IsActive() {
		return nil, peerDomain.ErrConnectionNotActive
	}

	return conn, nil
}

func (c *connectionUseCase) IsActive(ctx context.Context, identity string) (bool, error) {
	conn, err := c.repo.Get(ctx, validation.NormalizeIdentity(identity))
	if err != nil {
		if apperrors.Is(err, peerDomain.ErrConnectionNotFound) {
			return false, nil
		}
		return false, err
	}
	return conn.IsActive(), nil
}

func (c *connectionUseCase) OutboundToken(ctx context.Context, identity string) (string, error) {
	identity = validation.NormalizeIdentity(identity)
	conn, err := c.repo.Get(ctx, identity)
	if err != nil {
		return "", err
	}

	cipher, err := c.tokenCipher()
	if err != nil {
		return "", err
	}
	token, err := cipher.Decrypt(conn.OutboundToken, conn.OutboundTokenNonce, c.tokenAAD(identity))
	if err != nil {
		return "", apperrors.Wrap(cryptoDomain.ErrDecryptionFailed, "failed to unseal outbound token")
	}
	return string(token), nil
}

func (c *connectionUseCase) Block(ctx context.Context, identity string) error {
	return c.repo.UpdateStatus(ctx, validation.NormalizeIdentity(identity), peerDomain.ConnectionBlocked)
}
