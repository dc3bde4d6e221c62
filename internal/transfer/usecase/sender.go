package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	keyQueueDomain "github.com/allisson/peertransfer/internal/keyqueue/domain"
	keyQueueUseCase "github.com/allisson/peertransfer/internal/keyqueue/usecase"
	outboxDomain "github.com/allisson/peertransfer/internal/outbox/domain"
	outboxUseCase "github.com/allisson/peertransfer/internal/outbox/usecase"
	peerDomain "github.com/allisson/peertransfer/internal/peer/domain"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
	transferService "github.com/allisson/peertransfer/internal/transfer/service"
)

type sender struct {
	recipientKeys RecipientKeyRepository
	storage       DriveStorage
	client        transferService.PeerTransferClient
	outbox        outboxUseCase.OutboxUseCase
	keyQueue      keyQueueUseCase.KeyQueueUseCase
	history       HistoryRepository
	concurrency   int
	logger        *slog.Logger
}

func (s *sender) Send(ctx context.Context, item *outboxDomain.OutboxItem) transferDomain.SendResult {
	header, err := s.recipientKeys.Get(ctx, item.File, item.Recipient)
	if err != nil {
		if apperrors.Is(err, transferDomain.ErrRecipientKeyNotFound) {
			return transferDomain.NewFailure(item.Recipient, item.File, transferDomain.EncryptedTransferKeyNotAvailable)
		}
		s.logSendError(item, "failed to load recipient key header", err)
		return transferDomain.NewFailure(item.Recipient, item.File, transferDomain.UnknownError)
	}
	if header.EncryptionVersion != cryptoDomain.EncryptionVersion || len(header.Data) == 0 {
		s.logSendError(item, "stored recipient key header is not usable", cryptoDomain.ErrUnsupportedEncryptionVersion)
		return transferDomain.NewFailure(item.Recipient, item.File, transferDomain.CouldNotEncrypt)
	}

	envelope, err := s.buildEnvelope(ctx, item.File, header)
	if err != nil {
		s.logSendError(item, "failed to read drive file", err)
		return transferDomain.NewFailure(item.Recipient, item.File, transferDomain.UnknownError)
	}

	response, err := s.client.SendFile(ctx, item.Recipient, envelope)
	if err != nil {
		s.logSendError(item, "transfer failed", err)
		return transferDomain.NewFailure(item.Recipient, item.File, classifySendError(err))
	}

	if !response.Code.IsAccepted() {
		s.logger.Warn("recipient refused transfer",
			slog.String("recipient", item.Recipient),
			slog.String("file_id", item.File.FileID.String()),
			slog.String("code", string(response.Code)),
			slog.String("message", response.Message))
		result := transferDomain.NewFailure(item.Recipient, item.File, transferDomain.RecipientServerError)
		result.ResponseCode = response.Code
		return result
	}

	return transferDomain.NewSuccess(item.Recipient, item.File, response.Code)
}

func (s *sender) buildEnvelope(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	header *cryptoDomain.EncryptedRecipientTransferKeyHeader,
) (*transferService.Envelope, error) {
	metadata, err := s.storage.GetMetadata(ctx, driveDomain.AreaLongTerm, file)
	if err != nil {
		return nil, err
	}
	redacted := metadata.Redacted()

	thumbnails, err := s.storage.ListThumbnails(ctx, file)
	if err != nil {
		return nil, err
	}

	envelope := &transferService.Envelope{
		Header:   header,
		Metadata: &redacted,
		Payload: func() (io.ReadCloser, error) {
			return s.storage.GetFilePartStream(ctx, file, driveDomain.PayloadPart)
		},
	}
	for _, thumb := range thumbnails {
		part := driveDomain.ThumbnailPart(thumb.Key())
		envelope.Thumbnails = append(envelope.Thumbnails, transferService.ThumbnailStream{
			Thumbnail: thumb,
			Open: func() (io.ReadCloser, error) {
				return s.storage.GetFilePartStream(ctx, file, part)
			},
		})
	}
	return envelope, nil
}

// classifySendError maps a failed send onto a failure reason.
func classifySendError(err error) transferDomain.FailureReason {
	switch {
	case apperrors.Is(err, peerDomain.ErrUnexpectedResponse):
		return transferDomain.RecipientServerError
	case apperrors.Is(err, cryptoDomain.ErrEncryptionFailure),
		apperrors.Is(err, cryptoDomain.ErrDecryptionFailed),
		apperrors.Is(err, cryptoDomain.ErrUnsupportedEncryptionVersion):
		return transferDomain.CouldNotEncrypt
	default:
		return transferDomain.UnknownError
	}
}

func (s *sender) logSendError(item *outboxDomain.OutboxItem, msg string, err error) {
	s.logger.Warn(msg,
		slog.String("recipient", item.Recipient),
		slog.String("drive_id", item.File.DriveID.String()),
		slog.String("file_id", item.File.FileID.String()),
		slog.Any("error", err))
}

func (s *sender) SendBatchNow(ctx context.Context, items []*outboxDomain.OutboxItem) []transferDomain.SendResult {
	results := make([]transferDomain.SendResult, len(items))

	var g errgroup.Group
	g.SetLimit(max(s.concurrency, 1))
	for i, item := range items {
		g.Go(func() error {
			results[i] = s.Send(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	// Outcomes are recorded even when ctx expired during the sends.
	completeCtx := context.WithoutCancel(ctx)
	for i, item := range items {
		if err := s.complete(completeCtx, item, results[i]); err != nil {
			s.logger.Error("failed to record transfer outcome",
				slog.String("recipient", item.Recipient),
				slog.String("file_id", item.File.FileID.String()),
				slog.Bool("success", results[i].Success),
				slog.Any("error", err))
		}
	}

	return results
}

func (s *sender) complete(ctx context.Context, item *outboxDomain.OutboxItem, result transferDomain.SendResult) error {
	now := time.Now().UTC()

	if result.Success {
		removed, err := s.outbox.Complete(ctx, item)
		if err != nil {
			return err
		}
		if !removed {
			// A newer version of the file was queued while this one was in flight.
			return nil
		}
		entry := transferDomain.NewTransferHistory(item.File, item.Recipient, transferDomain.Delivered, "", now)
		if err := s.history.Upsert(ctx, entry); err != nil {
			return err
		}
		return s.recipientKeys.Delete(ctx, item.File, item.Recipient)
	}

	if err := s.outbox.AddWithReason(ctx, item, result.FailureReason); err != nil {
		return err
	}
	entry := transferDomain.NewTransferHistory(
		item.File,
		item.Recipient,
		transferDomain.PendingRetry,
		result.FailureReason,
		now,
	)
	if err := s.history.Upsert(ctx, entry); err != nil {
		return err
	}

	if result.FailureReason.RoutesToKeyQueue() {
		return s.keyQueue.Enqueue(ctx, keyQueueDomain.DefaultAppID, item.File, item.Recipient)
	}
	return nil
}

// NewSender creates a Sender running at most concurrency sends at once.
func NewSender(
	recipientKeys RecipientKeyRepository,
	storage DriveStorage,
	client transferService.PeerTransferClient,
	outbox outboxUseCase.OutboxUseCase,
	keyQueue keyQueueUseCase.KeyQueueUseCase,
	history HistoryRepository,
	concurrency int,
	logger *slog.Logger,
) Sender {
	return &sender{
		recipientKeys: recipientKeys,
		storage:       storage,
		client:        client,
		outbox:        outbox,
		keyQueue:      keyQueue,
		history:       history,
		concurrency:   concurrency,
		logger:        logger,
	}
}
