package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
	"github.com/allisson/peertransfer/internal/metrics"
	"github.com/allisson/peertransfer/internal/multipart"
)

// receiverWithMetrics decorates Receiver with metrics instrumentation.
type receiverWithMetrics struct {
	next    Receiver
	metrics metrics.BusinessMetrics
}

// NewReceiverWithMetrics wraps a Receiver with metrics recording. Rejected
// transfers are counted with status "rejected".
func NewReceiverWithMetrics(receiver Receiver, m metrics.BusinessMetrics) Receiver {
	return &receiverWithMetrics{
		next:    receiver,
		metrics: m,
	}
}

func (r *receiverWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	switch {
	case apperrors.Is(err, inboxDomain.ErrTransferRejected):
		status = "rejected"
	case err != nil:
		status = "error"
	}

	r.metrics.RecordOperation(ctx, "inbox", operation, status)
	r.metrics.RecordDuration(ctx, "inbox", operation, time.Since(start), status)
}

// Screen records the verdicts of the first-stage filters.
func (r *receiverWithMetrics) Screen(
	ctx context.Context,
	fc *inboxDomain.FilterContext,
) (inboxDomain.FilterResult, error) {
	result, err := r.next.Screen(ctx, fc)
	status := result.Action.String()
	if err != nil {
		status = "error"
	}
	r.metrics.RecordOperation(ctx, "inbox", "inbox_screen", status)
	return result, err
}

// Receive records metrics for incoming transfers.
func (r *receiverWithMetrics) Receive(
	ctx context.Context,
	trackerID uuid.UUID,
	sender string,
	unit *multipart.Unit,
	verdict inboxDomain.FilterResult,
) (driveDomain.InternalDriveFileID, error) {
	start := time.Now()
	file, err := r.next.Receive(ctx, trackerID, sender, unit, verdict)
	r.record(ctx, "inbox_receive", start, err)
	return file, err
}

// Reject records metrics for rejections decided before a transfer completed.
func (r *receiverWithMetrics) Reject(ctx context.Context, trackerID uuid.UUID, sender, reason string) error {
	start := time.Now()
	err := r.next.Reject(ctx, trackerID, sender, reason)
	r.record(ctx, "inbox_reject", start, err)
	return err
}

// DeleteLinkedFile records metrics for delete instructions.
func (r *receiverWithMetrics) DeleteLinkedFile(
	ctx context.Context,
	trackerID uuid.UUID,
	sender string,
	req *DeleteLinkedFileRequest,
) error {
	start := time.Now()
	err := r.next.DeleteLinkedFile(ctx, trackerID, sender, req)
	r.record(ctx, "inbox_delete_linked_file", start, err)
	return err
}
