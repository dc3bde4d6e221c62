package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/peertransfer/internal/database"
	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
)

type inboxUseCase struct {
	popTimeout time.Duration
	txManager  database.TxManager
	repo       InboxRepository
	logger     *slog.Logger
	now        func() time.Time
}

// NewInboxUseCase creates an InboxUseCase. Popped items not completed within
// popTimeout are returned to the queue by RecoverPopped.
func NewInboxUseCase(
	popTimeout time.Duration,
	txManager database.TxManager,
	repo InboxRepository,
	logger *slog.Logger,
) InboxUseCase {
	return &inboxUseCase{
		popTimeout: popTimeout,
		txManager:  txManager,
		repo:       repo,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (i *inboxUseCase) Add(ctx context.Context, item *inboxDomain.InboxItem) error {
	if item.Sender == "" || !item.File.IsValid() {
		return inboxDomain.ErrInvalidTransfer
	}
	return i.repo.Add(ctx, item)
}

func (i *inboxUseCase) GetPendingItems(ctx context.Context, offset, limit int) ([]*inboxDomain.InboxItem, error) {
	return i.repo.GetPendingItems(ctx, offset, limit)
}

func (i *inboxUseCase) PopItems(ctx context.Context, limit int) (uuid.UUID, []*inboxDomain.InboxItem, error) {
	stamp := uuid.Must(uuid.NewV7())
	var items []*inboxDomain.InboxItem

	err := i.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		items, err = i.repo.SelectPending(ctx, limit)
		if err != nil || len(items) == 0 {
			return err
		}

		now := i.now()
		ids := make([]uuid.UUID, len(items))
		for n, item := range items {
			ids[n] = item.ID
			item.PopStamp = &stamp
			item.PoppedAt = &now
		}
		return i.repo.SetPopStamp(ctx, ids, stamp, now)
	})
	if err != nil {
		return uuid.Nil, nil, err
	}
	return stamp, items, nil
}

func (i *inboxUseCase) MarkComplete(ctx context.Context, stamp uuid.UUID) (int64, error) {
	n, err := i.repo.DeleteByPopStamp(ctx, stamp)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, inboxDomain.ErrInboxItemNotFound
	}
	return n, nil
}

func (i *inboxUseCase) RecoverPopped(ctx context.Context) (int64, error) {
	n, err := i.repo.RecoverPopped(ctx, i.now().Add(-i.popTimeout))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		i.logger.Warn("recovered popped inbox items", slog.Int64("count", n))
	}
	return n, nil
}

func (i *inboxUseCase) Status(ctx context.Context) (*inboxDomain.InboxStatus, error) {
	return i.repo.Status(ctx)
}
