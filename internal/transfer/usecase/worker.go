package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/allisson/peertransfer/internal/metrics"
	outboxUseCase "github.com/allisson/peertransfer/internal/outbox/usecase"
)

// WorkerConfig holds the outbox worker configuration.
type WorkerConfig struct {
	Interval  time.Duration
	BatchSize int
}

// Worker periodically claims due outbox items and sends them.
type Worker struct {
	config  WorkerConfig
	outbox  outboxUseCase.OutboxUseCase
	sender  Sender
	metrics metrics.BusinessMetrics
	logger  *slog.Logger
}

// NewWorker creates a Worker.
func NewWorker(
	config WorkerConfig,
	outbox outboxUseCase.OutboxUseCase,
	sender Sender,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		config:  config,
		outbox:  outbox,
		sender:  sender,
		metrics: businessMetrics,
		logger:  logger,
	}
}

// Start runs ProcessBatch every interval until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("starting outbox worker",
		slog.Duration("interval", w.config.Interval),
		slog.Int("batch_size", w.config.BatchSize),
	)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping outbox worker")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessBatch(ctx); err != nil {
				w.logger.Error("failed to process outbox batch", slog.Any("error", err))
			}
		}
	}
}

// ProcessBatch recovers dead claims, then claims and sends one batch. It returns
// the number of items sent.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	recovered, err := w.outbox.RecoverDeadItems(ctx)
	if err != nil {
		return 0, err
	}
	if recovered > 0 {
		w.logger.Warn("recovered dead outbox claims", slog.Int64("count", recovered))
	}

	items, err := w.outbox.GetNextBatch(ctx, w.config.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	start := time.Now()
	results := w.sender.SendBatchNow(ctx, items)
	elapsed := time.Since(start)

	batchStatus := "success"
	for _, result := range results {
		status := "success"
		if !result.Success {
			status = "error"
			batchStatus = "error"
			w.logger.Info("transfer attempt failed",
				slog.String("recipient", result.Recipient),
				slog.String("file_id", result.File.FileID.String()),
				slog.String("reason", string(result.FailureReason)))
		}
		w.metrics.RecordOperation(ctx, "transfer", "transfer_send", status)
	}
	w.metrics.RecordDuration(ctx, "transfer", "transfer_send_batch", elapsed, batchStatus)

	return len(results), nil
}
