package usecase

import (
	"context"
	"time"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	keyQueueDomain "github.com/allisson/peertransfer/internal/keyqueue/domain"
)

type keyQueueUseCase struct {
	repo KeyQueueRepository
}

// NewKeyQueueUseCase creates a KeyQueueUseCase on repo.
func NewKeyQueueUseCase(repo KeyQueueRepository) KeyQueueUseCase {
	return &keyQueueUseCase{repo: repo}
}

func (k *keyQueueUseCase) Enqueue(
	ctx context.Context,
	appID string,
	file driveDomain.InternalDriveFileID,
	recipient string,
) error {
	if !file.IsValid() {
		return driveDomain.ErrInvalidFileID
	}
	if appID == "" {
		appID = keyQueueDomain.DefaultAppID
	}
	return k.repo.Enqueue(ctx, keyQueueDomain.NewItem(appID, file, recipient, time.Now()))
}

func (k *keyQueueUseCase) Remove(ctx context.Context, file driveDomain.InternalDriveFileID, recipient string) error {
	return k.repo.Remove(ctx, file, recipient)
}

func (k *keyQueueUseCase) GetPendingItems(
	ctx context.Context,
	offset, limit int,
) ([]*keyQueueDomain.KeyEncryptionQueueItem, error) {
	return k.repo.GetPendingItems(ctx, offset, limit)
}

func (k *keyQueueUseCase) Status(ctx context.Context) (*keyQueueDomain.QueueStatus, error) {
	return k.repo.Status(ctx)
}
