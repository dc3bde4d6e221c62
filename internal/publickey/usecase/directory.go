package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/allisson/peertransfer/internal/errors"
	publicKeyDomain "github.com/allisson/peertransfer/internal/publickey/domain"
	publicKeyService "github.com/allisson/peertransfer/internal/publickey/service"
	"github.com/allisson/peertransfer/internal/validation"
)

type directory struct {
	repo    PublicKeyRepository
	fetcher publicKeyService.Fetcher
	logger  *slog.Logger
	cache   sync.Map // map[string]*publicKeyDomain.TransitPublicKey
	now     func() time.Time
}

// NewDirectory creates a Directory with an in-memory front cache over repo.
func NewDirectory(repo PublicKeyRepository, fetcher publicKeyService.Fetcher, logger *slog.Logger) Directory {
	return &directory{
		repo:    repo,
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
	}
}

func (d *directory) GetPublicKey(
	ctx context.Context,
	recipient string,
	lookupIfInvalid bool,
) (*publicKeyDomain.TransitPublicKey, error) {
	recipient = validation.NormalizeIdentity(recipient)
	now := d.now()

	key, err := d.cached(ctx, recipient)
	if err != nil {
		return nil, err
	}
	if key.IsValid(now) {
		return key, nil
	}
	if !lookupIfInvalid {
		return nil, nil
	}

	fetched, err := d.fetcher.Fetch(ctx, recipient)
	if err != nil {
		d.logger.Warn("failed to fetch transit public key",
			slog.String("recipient", recipient),
			slog.Any("error", err))
		return nil, nil
	}
	if !fetched.IsValid(now) {
		d.logger.Warn("recipient published an invalid transit public key",
			slog.String("recipient", recipient))
		return nil, nil
	}

	fetched.Identity = recipient
	fetched.CreatedAt = now.UTC()
	if err := d.repo.Upsert(ctx, fetched); err != nil {
		return nil, err
	}
	d.cache.Store(recipient, fetched)

	return fetched, nil
}

// cached returns the front cache entry, falling back to the durable cache.
// A miss yields nil without error.
func (d *directory) cached(ctx context.Context, recipient string) (*publicKeyDomain.TransitPublicKey, error) {
	if val, ok := d.cache.Load(recipient); ok {
		key := val.(*publicKeyDomain.TransitPublicKey)
		if key.IsValid(d.now()) {
			return key, nil
		}
		d.cache.Delete(recipient)
	}

	key, err := d.repo.Get(ctx, recipient)
	if err != nil {
		if apperrors.Is(err, publicKeyDomain.ErrPublicKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if key.IsValid(d.now()) {
		d.cache.Store(recipient, key)
	}
	return key, nil
}

func (d *directory) Invalidate(ctx context.Context, recipient string) error {
	recipient = validation.NormalizeIdentity(recipient)
	d.cache.Delete(recipient)
	return d.repo.Delete(ctx, recipient)
}
