package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/peertransfer/internal/database"
	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	keyQueueDomain "github.com/allisson/peertransfer/internal/keyqueue/domain"
	"github.com/allisson/peertransfer/internal/metrics"
)

// Config holds the sweeper configuration.
type Config struct {
	Interval      time.Duration
	BatchSize     int
	RetryInterval time.Duration
	MaxBackoff    time.Duration
	MaxAttempts   int
	MaxAge        time.Duration
}

// Sweeper periodically retries wrapping transfer keys for queued recipients.
type Sweeper struct {
	config    Config
	txManager database.TxManager
	repo      KeyQueueRepository
	preparer  RecipientKeyPreparer
	metrics   metrics.BusinessMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewSweeper creates a Sweeper.
func NewSweeper(
	config Config,
	txManager database.TxManager,
	repo KeyQueueRepository,
	preparer RecipientKeyPreparer,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		config:    config,
		txManager: txManager,
		repo:      repo,
		preparer:  preparer,
		metrics:   businessMetrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Start runs ProcessDue every interval until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.Info("starting key encryption queue sweeper",
		slog.Duration("interval", s.config.Interval),
		slog.Int("batch_size", s.config.BatchSize),
	)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping key encryption queue sweeper")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.ProcessDue(ctx); err != nil {
				s.logger.Error("failed to process key encryption queue", slog.Any("error", err))
			}
		}
	}
}

// claim leases due items for one retry interval in the same transaction that
// locked them. Items left leased by a crashed worker become due again afterwards.
func (s *Sweeper) claim(ctx context.Context, now time.Time) ([]*keyQueueDomain.KeyEncryptionQueueItem, error) {
	var items []*keyQueueDomain.KeyEncryptionQueueItem

	err := s.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.repo.DrainDue(ctx, s.config.BatchSize, now.UnixMilli())
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ID)
		}
		return s.repo.Touch(ctx, ids, now.Add(s.config.RetryInterval).UnixMilli())
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ProcessDue retries every due item once and returns how many were processed.
// A failing item never stops the others.
func (s *Sweeper) ProcessDue(ctx context.Context) (int, error) {
	now := s.now()
	items, err := s.claim(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	s.logger.Debug("retrying transfer key encryption", slog.Int("count", len(items)))

	for _, item := range items {
		if err := s.processItem(ctx, item, now); err != nil {
			s.logger.Error("failed to update key encryption item",
				slog.String("recipient", item.Recipient),
				slog.String("file_id", item.File.FileID.String()),
				slog.Any("error", err))
		}
	}

	return len(items), nil
}

func (s *Sweeper) processItem(ctx context.Context, item *keyQueueDomain.KeyEncryptionQueueItem, now time.Time) error {
	start := time.Now()
	prepared, err := s.preparer.PrepareRecipient(ctx, item)

	status := "success"
	if err != nil || !prepared {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, "keyqueue", "key_retry", status)
	s.metrics.RecordDuration(ctx, "keyqueue", "key_retry", time.Since(start), status)

	if err == nil && prepared {
		return s.repo.Remove(ctx, item.File, item.Recipient)
	}

	if err != nil {
		s.logger.Warn("transfer key encryption attempt failed",
			slog.String("recipient", item.Recipient),
			slog.String("file_id", item.File.FileID.String()),
			slog.Int("attempts", item.Attempts),
			slog.Any("error", err))
	}

	next := item.Retried(now, s.config.RetryInterval, s.config.MaxBackoff)

	if permanent(err) || next.Exhausted(now, s.config.MaxAttempts, s.config.MaxAge) {
		s.logger.Warn("giving up on transfer key encryption",
			slog.String("recipient", item.Recipient),
			slog.String("file_id", item.File.FileID.String()),
			slog.Int("attempts", next.Attempts))

		return s.txManager.WithTx(ctx, func(ctx context.Context) error {
			if err := s.repo.MarkUndeliverable(ctx, item.File, item.Recipient); err != nil {
				return err
			}
			return s.preparer.AbandonRecipient(ctx, item.File, item.Recipient)
		})
	}

	return s.repo.RecordAttempt(ctx, next)
}

// permanent reports errors that no retry can fix: the file is gone or its metadata
// is unusable. Crypto failures stay retryable until the age limit.
func permanent(err error) bool {
	if err == nil {
		return false
	}
	return apperrors.Is(err, driveDomain.ErrFileNotFound) ||
		apperrors.Is(err, driveDomain.ErrInvalidFile) ||
		apperrors.Is(err, apperrors.ErrInvariant)
}
