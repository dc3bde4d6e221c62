// Package usecase implements the key-encryption retry queue and its background sweeper.
package usecase

import (
	"context"

	"github.com/google/uuid"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	keyQueueDomain "github.com/allisson/peertransfer/internal/keyqueue/domain"
)

// KeyQueueRepository persists queue items for one tenant.
type KeyQueueRepository interface {
	Enqueue(ctx context.Context, item *keyQueueDomain.KeyEncryptionQueueItem) error
	RecordAttempt(ctx context.Context, item *keyQueueDomain.KeyEncryptionQueueItem) error
	DrainDue(ctx context.Context, limit int, nowMs int64) ([]*keyQueueDomain.KeyEncryptionQueueItem, error)
	Touch(ctx context.Context, ids []uuid.UUID, leaseUntilMs int64) error
	Remove(ctx context.Context, file driveDomain.InternalDriveFileID, recipient string) error
	MarkUndeliverable(ctx context.Context, file driveDomain.InternalDriveFileID, recipient string) error
	GetPendingItems(ctx context.Context, offset, limit int) ([]*keyQueueDomain.KeyEncryptionQueueItem, error)
	Status(ctx context.Context) (*keyQueueDomain.QueueStatus, error)
}

// RecipientKeyPreparer wraps a file's key header for one recipient and queues the delivery.
type RecipientKeyPreparer interface {
	// PrepareRecipient returns false with a nil error while the recipient's public
	// key is still unavailable.
	PrepareRecipient(ctx context.Context, item *keyQueueDomain.KeyEncryptionQueueItem) (bool, error)

	// AbandonRecipient gives up on delivering file to recipient.
	AbandonRecipient(ctx context.Context, file driveDomain.InternalDriveFileID, recipient string) error
}

// KeyQueueUseCase is the queue API used by the transfer side and the owner API.
type KeyQueueUseCase interface {
	// Enqueue adds (file, recipient). A pending item for the pair keeps its attempts
	// and schedule; an undeliverable one starts over.
	Enqueue(ctx context.Context, appID string, file driveDomain.InternalDriveFileID, recipient string) error

	// Remove drops the item for (file, recipient).
	Remove(ctx context.Context, file driveDomain.InternalDriveFileID, recipient string) error

	// GetPendingItems lists pending items oldest first.
	GetPendingItems(ctx context.Context, offset, limit int) ([]*keyQueueDomain.KeyEncryptionQueueItem, error)

	// Status counts items per status.
	Status(ctx context.Context) (*keyQueueDomain.QueueStatus, error)
}
