package usecase

import (
	"context"
	"time"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	"github.com/allisson/peertransfer/internal/metrics"
	outboxDomain "github.com/allisson/peertransfer/internal/outbox/domain"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
)

// outboxUseCaseWithMetrics decorates OutboxUseCase with metrics instrumentation.
type outboxUseCaseWithMetrics struct {
	next    OutboxUseCase
	metrics metrics.BusinessMetrics
}

// NewOutboxUseCaseWithMetrics wraps an OutboxUseCase with metrics recording.
func NewOutboxUseCaseWithMetrics(useCase OutboxUseCase, m metrics.BusinessMetrics) OutboxUseCase {
	return &outboxUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (o *outboxUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	o.metrics.RecordOperation(ctx, "outbox", operation, status)
	o.metrics.RecordDuration(ctx, "outbox", operation, time.Since(start), status)
}

// Add records metrics for enqueue operations.
func (o *outboxUseCaseWithMetrics) Add(ctx context.Context, item *outboxDomain.OutboxItem) error {
	start := time.Now()
	err := o.next.Add(ctx, item)
	o.record(ctx, "outbox_add", start, err)
	return err
}

// AddMany records metrics for batch enqueue operations.
func (o *outboxUseCaseWithMetrics) AddMany(ctx context.Context, items []*outboxDomain.OutboxItem) error {
	start := time.Now()
	err := o.next.AddMany(ctx, items)
	o.record(ctx, "outbox_add_many", start, err)
	return err
}

// ReplaceMany records metrics for upload enqueue operations.
func (o *outboxUseCaseWithMetrics) ReplaceMany(ctx context.Context, items []*outboxDomain.OutboxItem) error {
	start := time.Now()
	err := o.next.ReplaceMany(ctx, items)
	o.record(ctx, "outbox_replace_many", start, err)
	return err
}

// AddWithReason records metrics for failed attempt check-ins.
func (o *outboxUseCaseWithMetrics) AddWithReason(
	ctx context.Context,
	item *outboxDomain.OutboxItem,
	reason transferDomain.FailureReason,
) error {
	start := time.Now()
	err := o.next.AddWithReason(ctx, item, reason)
	o.record(ctx, "outbox_check_in", start, err)
	return err
}

// GetNextBatch records metrics for claim operations.
func (o *outboxUseCaseWithMetrics) GetNextBatch(ctx context.Context, limit int) ([]*outboxDomain.OutboxItem, error) {
	start := time.Now()
	items, err := o.next.GetNextBatch(ctx, limit)
	o.record(ctx, "outbox_claim", start, err)
	return items, err
}

// CheckOutFile records metrics for per-file claim operations.
func (o *outboxUseCaseWithMetrics) CheckOutFile(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
) ([]*outboxDomain.OutboxItem, error) {
	start := time.Now()
	items, err := o.next.CheckOutFile(ctx, file)
	o.record(ctx, "outbox_claim_file", start, err)
	return items, err
}

// GetPendingItems delegates without recording metrics.
func (o *outboxUseCaseWithMetrics) GetPendingItems(
	ctx context.Context,
	offset, limit int,
) ([]*outboxDomain.OutboxItem, error) {
	return o.next.GetPendingItems(ctx, offset, limit)
}

// Remove records metrics for delivery confirmations.
func (o *outboxUseCaseWithMetrics) Remove(
	ctx context.Context,
	recipient string,
	file driveDomain.InternalDriveFileID,
) error {
	start := time.Now()
	err := o.next.Remove(ctx, recipient, file)
	o.record(ctx, "outbox_remove", start, err)
	return err
}

// Complete records metrics for delivery confirmations of claimed items.
func (o *outboxUseCaseWithMetrics) Complete(ctx context.Context, item *outboxDomain.OutboxItem) (bool, error) {
	start := time.Now()
	removed, err := o.next.Complete(ctx, item)
	o.record(ctx, "outbox_complete", start, err)
	return removed, err
}

// RecoverDeadItems records metrics for claim recovery.
func (o *outboxUseCaseWithMetrics) RecoverDeadItems(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := o.next.RecoverDeadItems(ctx)
	o.record(ctx, "outbox_recover", start, err)
	return n, err
}

// Status delegates without recording metrics.
func (o *outboxUseCaseWithMetrics) Status(ctx context.Context) (*outboxDomain.OutboxStatus, error) {
	return o.next.Status(ctx)
}
