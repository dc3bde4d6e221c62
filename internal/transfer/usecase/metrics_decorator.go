package usecase

import (
	"context"
	"time"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	"github.com/allisson/peertransfer/internal/metrics"
	"github.com/allisson/peertransfer/internal/multipart"
	outboxDomain "github.com/allisson/peertransfer/internal/outbox/domain"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
)

// transitServiceWithMetrics decorates TransitService with metrics instrumentation.
type transitServiceWithMetrics struct {
	next    TransitService
	metrics metrics.BusinessMetrics
}

// NewTransitServiceWithMetrics wraps a TransitService with metrics recording.
func NewTransitServiceWithMetrics(service TransitService, m metrics.BusinessMetrics) TransitService {
	return &transitServiceWithMetrics{
		next:    service,
		metrics: m,
	}
}

func (t *transitServiceWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	t.metrics.RecordOperation(ctx, "transfer", operation, status)
	t.metrics.RecordDuration(ctx, "transfer", operation, time.Since(start), status)
}

// StageUpload records metrics for staging owner uploads.
func (t *transitServiceWithMetrics) StageUpload(
	ctx context.Context,
	sender string,
	instructions *transferDomain.UploadInstructions,
	unit *multipart.Unit,
) (*transferDomain.UploadPackage, error) {
	start := time.Now()
	pkg, err := t.next.StageUpload(ctx, sender, instructions, unit)
	t.record(ctx, "transfer_stage_upload", start, err)
	return pkg, err
}

// AcceptUpload records metrics for accepted uploads.
func (t *transitServiceWithMetrics) AcceptUpload(
	ctx context.Context,
	pkg *transferDomain.UploadPackage,
) (*transferDomain.UploadResult, error) {
	start := time.Now()
	result, err := t.next.AcceptUpload(ctx, pkg)
	t.record(ctx, "transfer_accept_upload", start, err)
	return result, err
}

// PrepareTransfer records metrics for per-recipient key preparation.
func (t *transitServiceWithMetrics) PrepareTransfer(
	ctx context.Context,
	pkg *transferDomain.UploadPackage,
) (map[string]transferDomain.TransferStatus, error) {
	start := time.Now()
	statuses, err := t.next.PrepareTransfer(ctx, pkg)
	t.record(ctx, "transfer_prepare", start, err)
	return statuses, err
}

// SendBatchNow records one operation per send result.
func (t *transitServiceWithMetrics) SendBatchNow(
	ctx context.Context,
	items []*outboxDomain.OutboxItem,
) []transferDomain.SendResult {
	results := t.next.SendBatchNow(ctx, items)
	for _, result := range results {
		status := "success"
		if !result.Success {
			status = "error"
		}
		t.metrics.RecordOperation(ctx, "transfer", "transfer_send", status)
	}
	return results
}

// GetTransferStatus delegates without recording metrics.
func (t *transitServiceWithMetrics) GetTransferStatus(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
) ([]*transferDomain.TransferHistory, error) {
	return t.next.GetTransferStatus(ctx, file)
}
