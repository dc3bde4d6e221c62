// Package usecase implements the outbox state machine: duplicate-suppressed insert,
// atomic claim, check-in with an attempt and backoff, removal and dead claim recovery.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	outboxDomain "github.com/allisson/peertransfer/internal/outbox/domain"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
)

// OutboxRepository persists outbox items for one tenant.
type OutboxRepository interface {
	Add(ctx context.Context, item *outboxDomain.OutboxItem) error
	Replace(ctx context.Context, item *outboxDomain.OutboxItem) error
	CheckIn(ctx context.Context, item *outboxDomain.OutboxItem) error
	SelectDue(ctx context.Context, limit int, now time.Time) ([]*outboxDomain.OutboxItem, error)
	SelectFile(ctx context.Context, file driveDomain.InternalDriveFileID) ([]*outboxDomain.OutboxItem, error)
	CheckOut(ctx context.Context, ids []uuid.UUID, stamp uuid.UUID, now time.Time) error
	Remove(ctx context.Context, recipient string, file driveDomain.InternalDriveFileID) error
	RemoveClaimed(ctx context.Context, id, stamp uuid.UUID) (bool, error)
	Get(ctx context.Context, recipient string, file driveDomain.InternalDriveFileID) (*outboxDomain.OutboxItem, error)
	GetPendingItems(ctx context.Context, offset, limit int) ([]*outboxDomain.OutboxItem, error)
	RecoverDeadItems(ctx context.Context, olderThan time.Time) (int64, error)
	Status(ctx context.Context) (*outboxDomain.OutboxStatus, error)
}

// OutboxUseCase is the durable per-recipient delivery queue.
type OutboxUseCase interface {
	// Add enqueues item. An existing item for the same (recipient, file) is kept as is.
	Add(ctx context.Context, item *outboxDomain.OutboxItem) error

	// AddMany enqueues every item with the same duplicate suppression as Add.
	AddMany(ctx context.Context, items []*outboxDomain.OutboxItem) error

	// ReplaceMany enqueues every item, resetting an existing item for the same
	// (recipient, file) and releasing its claim. Used when a file's content changes.
	ReplaceMany(ctx context.Context, items []*outboxDomain.OutboxItem) error

	// AddWithReason records a failed attempt on a claimed item, releases the claim
	// and moves the item behind everything due before its backoff elapses.
	AddWithReason(ctx context.Context, item *outboxDomain.OutboxItem, reason transferDomain.FailureReason) error

	// GetNextBatch claims up to limit due items. Claimed items are invisible to other
	// callers until checked in, removed or recovered.
	GetNextBatch(ctx context.Context, limit int) ([]*outboxDomain.OutboxItem, error)

	// CheckOutFile claims every unclaimed item of file, due or not.
	CheckOutFile(ctx context.Context, file driveDomain.InternalDriveFileID) ([]*outboxDomain.OutboxItem, error)

	// GetPendingItems lists items in claim order.
	GetPendingItems(ctx context.Context, offset, limit int) ([]*outboxDomain.OutboxItem, error)

	// Remove deletes the item for (recipient, file).
	Remove(ctx context.Context, recipient string, file driveDomain.InternalDriveFileID) error

	// Complete deletes a delivered item if it is still held by the claim it was sent
	// under. It returns false when the item was replaced or reclaimed meanwhile.
	Complete(ctx context.Context, item *outboxDomain.OutboxItem) (bool, error)

	// RecoverDeadItems releases claims older than the configured claim timeout.
	RecoverDeadItems(ctx context.Context) (int64, error)

	Status(ctx context.Context) (*outboxDomain.OutboxStatus, error)
}
