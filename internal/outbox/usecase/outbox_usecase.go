package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/peertransfer/internal/database"
	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	outboxDomain "github.com/allisson/peertransfer/internal/outbox/domain"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
)

// Config holds the outbox retry configuration.
type Config struct {
	RetryInterval time.Duration
	MaxBackoff    time.Duration
	ClaimTimeout  time.Duration
}

type outboxUseCase struct {
	config    Config
	txManager database.TxManager
	repo      OutboxRepository
	logger    *slog.Logger
	now       func() time.Time
}

// NewOutboxUseCase creates an OutboxUseCase.
func NewOutboxUseCase(
	config Config,
	txManager database.TxManager,
	repo OutboxRepository,
	logger *slog.Logger,
) OutboxUseCase {
	return &outboxUseCase{
		config:    config,
		txManager: txManager,
		repo:      repo,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (o *outboxUseCase) Add(ctx context.Context, item *outboxDomain.OutboxItem) error {
	if !item.File.IsValid() {
		return driveDomain.ErrInvalidFileID
	}
	return o.repo.Add(ctx, item)
}

func (o *outboxUseCase) AddMany(ctx context.Context, items []*outboxDomain.OutboxItem) error {
	return o.txManager.WithTx(ctx, func(ctx context.Context) error {
		for _, item := range items {
			if err := o.Add(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

func (o *outboxUseCase) ReplaceMany(ctx context.Context, items []*outboxDomain.OutboxItem) error {
	return o.txManager.WithTx(ctx, func(ctx context.Context) error {
		for _, item := range items {
			if !item.File.IsValid() {
				return driveDomain.ErrInvalidFileID
			}
			if err := o.repo.Replace(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

func (o *outboxUseCase) AddWithReason(
	ctx context.Context,
	item *outboxDomain.OutboxItem,
	reason transferDomain.FailureReason,
) error {
	if !reason.IsValid() {
		return apperrors.Wrapf(apperrors.ErrInvariant, "unknown failure reason %q", reason)
	}

	now := o.now()
	backoff := outboxDomain.Backoff(len(item.Attempts)+1, o.config.RetryInterval, o.config.MaxBackoff)
	item.AddAttempt(reason, now, backoff)

	o.logger.Debug("outbox item checked in",
		slog.String("recipient", item.Recipient),
		slog.String("file_id", item.File.FileID.String()),
		slog.String("reason", string(reason)),
		slog.Int("attempts", len(item.Attempts)),
		slog.Duration("backoff", backoff),
	)

	return o.repo.CheckIn(ctx, item)
}

// checkOut stamps items as claimed. It runs inside the transaction that locked them.
func (o *outboxUseCase) checkOut(
	ctx context.Context,
	items []*outboxDomain.OutboxItem,
	now time.Time,
) error {
	if len(items) == 0 {
		return nil
	}

	stamp := uuid.Must(uuid.NewV7())
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	if err := o.repo.CheckOut(ctx, ids, stamp, now); err != nil {
		return err
	}

	for _, item := range items {
		item.CheckOutStamp = &stamp
		item.CheckOutCount++
		checkedOutAt := now
		item.CheckedOutAt = &checkedOutAt
	}
	return nil
}

func (o *outboxUseCase) GetNextBatch(ctx context.Context, limit int) ([]*outboxDomain.OutboxItem, error) {
	var items []*outboxDomain.OutboxItem

	err := o.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := o.now()

		var err error
		items, err = o.repo.SelectDue(ctx, limit, now)
		if err != nil {
			return err
		}
		return o.checkOut(ctx, items, now)
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (o *outboxUseCase) CheckOutFile(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
) ([]*outboxDomain.OutboxItem, error) {
	var items []*outboxDomain.OutboxItem

	err := o.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		items, err = o.repo.SelectFile(ctx, file)
		if err != nil {
			return err
		}
		return o.checkOut(ctx, items, o.now())
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (o *outboxUseCase) GetPendingItems(ctx context.Context, offset, limit int) ([]*outboxDomain.OutboxItem, error) {
	return o.repo.GetPendingItems(ctx, offset, limit)
}

func (o *outboxUseCase) Remove(ctx context.Context, recipient string, file driveDomain.InternalDriveFileID) error {
	return o.repo.Remove(ctx, recipient, file)
}

func (o *outboxUseCase) Complete(ctx context.Context, item *outboxDomain.OutboxItem) (bool, error) {
	if !item.IsCheckedOut() {
		if err := o.repo.Remove(ctx, item.Recipient, item.File); err != nil {
			return false, err
		}
		return true, nil
	}

	removed, err := o.repo.RemoveClaimed(ctx, item.ID, *item.CheckOutStamp)
	if err != nil {
		return false, err
	}
	if !removed {
		o.logger.Info("outbox item changed while sending, keeping it",
			slog.String("recipient", item.Recipient),
			slog.String("file_id", item.File.FileID.String()))
	}
	return removed, nil
}

func (o *outboxUseCase) RecoverDeadItems(ctx context.Context) (int64, error) {
	if o.config.ClaimTimeout <= 0 {
		return 0, nil
	}

	n, err := o.repo.RecoverDeadItems(ctx, o.now().Add(-o.config.ClaimTimeout))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		o.logger.Warn("recovered abandoned outbox claims", slog.Int64("count", n))
	}
	return n, nil
}

func (o *outboxUseCase) Status(ctx context.Context) (*outboxDomain.OutboxStatus, error) {
	return o.repo.Status(ctx)
}
