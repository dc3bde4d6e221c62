package usecase

import (
	"context"
	"crypto/ecdh"
	"fmt"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	cryptoService "github.com/allisson/peertransfer/internal/crypto/service"
	"github.com/allisson/peertransfer/internal/database"
	apperrors "github.com/allisson/peertransfer/internal/errors"
)

type hostKeyUseCase struct {
	txManager   database.TxManager
	repo        HostKeyRepository
	aeadManager cryptoService.AEADManager
	keyDeriver  cryptoService.KeyDeriver
	keyWrapper  cryptoService.KeyWrapper
	algorithm   cryptoDomain.Algorithm
	tenantID    string
}

// NewHostKeyUseCase creates a HostKeyUseCase. Private keys are sealed with alg under
// a key derived from the master key, with the tenant id as associated data.
func NewHostKeyUseCase(
	txManager database.TxManager,
	repo HostKeyRepository,
	aeadManager cryptoService.AEADManager,
	keyDeriver cryptoService.KeyDeriver,
	keyWrapper cryptoService.KeyWrapper,
	alg cryptoDomain.Algorithm,
	tenantID string,
) HostKeyUseCase {
	return &hostKeyUseCase{
		txManager:   txManager,
		repo:        repo,
		aeadManager: aeadManager,
		keyDeriver:  keyDeriver,
		keyWrapper:  keyWrapper,
		algorithm:   alg,
		tenantID:    tenantID,
	}
}

func (h *hostKeyUseCase) sealingCipher(alg cryptoDomain.Algorithm) (cryptoService.AEAD, error) {
	key, err := h.keyDeriver.HostKeySealingKey()
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key)
	return h.aeadManager.CreateCipher(key, alg)
}

func (h *hostKeyUseCase) newKey() (*cryptoDomain.HostTransitKey, error) {
	private, err := cryptoService.GenerateTransitKey()
	if err != nil {
		return nil, err
	}

	publicDER, err := cryptoService.MarshalPublicKey(private.PublicKey())
	if err != nil {
		return nil, err
	}

	privateDER, err := cryptoService.MarshalPrivateKey(private)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(privateDER)

	cipher, err := h.sealingCipher(h.algorithm)
	if err != nil {
		return nil, err
	}

	sealed, nonce, err := cipher.Encrypt(privateDER, []byte(h.tenantID))
	if err != nil {
		return nil, fmt.Errorf("failed to seal host transit key: %w", err)
	}

	return &cryptoDomain.HostTransitKey{
		ID:                  uuid.Must(uuid.NewV7()),
		TenantID:            h.tenantID,
		PublicKey:           publicDER,
		Crc32:               cryptoDomain.PublicKeyCrc32(publicDER),
		EncryptedPrivateKey: sealed,
		Nonce:               nonce,
		Algorithm:           h.algorithm,
		CreatedAt:           time.Now().UTC(),
	}, nil
}

func (h *hostKeyUseCase) GetActive(ctx context.Context) (*cryptoDomain.HostTransitKey, error) {
	var active *cryptoDomain.HostTransitKey

	err := h.txManager.WithTx(ctx, func(ctx context.Context) error {
		key, err := h.repo.GetLatest(ctx)
		if err == nil {
			active = key
			return nil
		}
		if !apperrors.Is(err, apperrors.ErrNotFound) {
			return err
		}

		key, err = h.newKey()
		if err != nil {
			return err
		}
		if err := h.repo.Create(ctx, key); err != nil {
			return err
		}
		active = key
		return nil
	})
	if err != nil {
		return nil, err
	}

	return active, nil
}

func (h *hostKeyUseCase) Rotate(ctx context.Context) (*cryptoDomain.HostTransitKey, error) {
	key, err := h.newKey()
	if err != nil {
		return nil, err
	}
	if err := h.repo.Create(ctx, key); err != nil {
		return nil, err
	}
	return key, nil
}

func (h *hostKeyUseCase) openPrivateKey(key *cryptoDomain.HostTransitKey) (*ecdh.PrivateKey, error) {
	cipher, err := h.sealingCipher(key.Algorithm)
	if err != nil {
		return nil, err
	}

	privateDER, err := cipher.Decrypt(key.EncryptedPrivateKey, key.Nonce, []byte(h.tenantID))
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	defer cryptoDomain.Zero(privateDER)

	return cryptoService.ParsePrivateKey(privateDER)
}

func (h *hostKeyUseCase) UnwrapTransferKeyHeader(
	ctx context.Context,
	header *cryptoDomain.EncryptedRecipientTransferKeyHeader,
) (*cryptoDomain.KeyHeader, error) {
	if header == nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	payload, err := cryptoService.ParseEccPayload(header)
	if err != nil {
		return nil, err
	}

	key, err := h.repo.GetByCrc32(ctx, payload.KeyCrc32)
	if err != nil {
		return nil, err
	}

	private, err := h.openPrivateKey(key)
	if err != nil {
		return nil, err
	}

	return h.keyWrapper.UnwrapFromRecipient(header, private)
}
