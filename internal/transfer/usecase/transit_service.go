package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	cryptoService "github.com/allisson/peertransfer/internal/crypto/service"
	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	keyQueueUseCase "github.com/allisson/peertransfer/internal/keyqueue/usecase"
	"github.com/allisson/peertransfer/internal/multipart"
	outboxDomain "github.com/allisson/peertransfer/internal/outbox/domain"
	outboxUseCase "github.com/allisson/peertransfer/internal/outbox/usecase"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
)

// Config holds the upload fast path limits.
type Config struct {
	InstantSendMaxBytes      int64
	InstantSendMaxRecipients int
	InstantSendTimeout       time.Duration
}

type transitService struct {
	config     Config
	storage    DriveStorage
	keyWrapper cryptoService.KeyWrapper
	keyDeriver cryptoService.KeyDeriver
	preparer   TransferKeyPreparer
	keyQueue   keyQueueUseCase.KeyQueueUseCase
	outbox     outboxUseCase.OutboxUseCase
	sender     Sender
	history    HistoryRepository
	logger     *slog.Logger
	now        func() time.Time
}

func (t *transitService) StageUpload(
	ctx context.Context,
	sender string,
	instructions *transferDomain.UploadInstructions,
	unit *multipart.Unit,
) (*transferDomain.UploadPackage, error) {
	if unit == nil || !unit.IsComplete() {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "upload is missing required parts")
	}

	fileID := instructions.FileID
	if fileID == uuid.Nil {
		fileID = uuid.Must(uuid.NewV7())
	}
	file := driveDomain.InternalDriveFileID{DriveID: instructions.DriveID, FileID: fileID}
	if !file.IsValid() {
		return nil, transferDomain.ErrInvalidPackage
	}

	staged := unit.Thumbnails()
	thumbnails, err := stagedThumbnails(staged)
	if err != nil {
		return nil, err
	}

	var metadata driveDomain.FileMetadata
	if err := json.Unmarshal(unit.Bytes(multipart.PartMetadata), &metadata); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "metadata is not valid json")
	}

	if err := t.stageHeader(ctx, file, instructions.KeyHeader); err != nil {
		return nil, err
	}
	now := t.now().UTC()
	globalTransitID := uuid.Must(uuid.NewV7())
	metadata.PayloadSize = unit.PayloadSize()
	metadata.Thumbnails = thumbnails
	metadata.GlobalTransitID = &globalTransitID
	metadata.SenderIdentity = sender
	metadata.CreatedMs = now.UnixMilli()
	metadata.UpdatedMs = now.UnixMilli()
	if err := t.storage.WriteMetadata(ctx, driveDomain.AreaStaging, file, &metadata); err != nil {
		return nil, err
	}

	payload, err := unit.OpenPayload()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open staged payload")
	}
	_, err = t.storage.WritePayload(ctx, driveDomain.AreaStaging, file, payload)
	_ = payload.Close()
	if err != nil {
		return nil, err
	}

	for i, thumb := range thumbnails {
		if err := t.stageThumbnail(ctx, file, thumb, staged[i].Path); err != nil {
			return nil, err
		}
	}

	return &transferDomain.UploadPackage{
		ID:         uuid.Must(uuid.NewV7()),
		Sender:     sender,
		AppID:      instructions.AppID,
		File:       file,
		Recipients: instructions.Recipients,
		Schedule:   instructions.Schedule,
		Priority:   instructions.EffectivePriority(),
	}, nil
}

func (t *transitService) stageHeader(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	keyHeader *cryptoDomain.KeyHeader,
) error {
	if keyHeader == nil {
		generated, err := cryptoDomain.NewKeyHeader()
		if err != nil {
			return err
		}
		keyHeader = generated
	}
	defer keyHeader.Zero()

	storageKey, err := t.keyDeriver.DriveStorageKey(file.DriveID.String())
	if err != nil {
		return err
	}
	defer cryptoDomain.Zero(storageKey)

	encrypted, err := t.keyWrapper.EncryptAes(keyHeader, storageKey)
	if err != nil {
		return err
	}
	return t.storage.WriteHeader(ctx, driveDomain.AreaStaging, file, encrypted)
}

func (t *transitService) stageThumbnail(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	thumb driveDomain.Thumbnail,
	path string,
) error {
	f, err := os.Open(path)
	if err != nil {
		return apperrors.Wrap(err, "failed to open staged thumbnail")
	}
	defer func() { _ = f.Close() }()

	return t.storage.WriteThumbnail(ctx, driveDomain.AreaStaging, file, thumb, f)
}

// stagedThumbnails parses "<width>x<height>" thumbnail keys.
func stagedThumbnails(staged []multipart.StagedThumbnail) ([]driveDomain.Thumbnail, error) {
	thumbnails := make([]driveDomain.Thumbnail, 0, len(staged))
	for _, s := range staged {
		var thumb driveDomain.Thumbnail
		n, err := fmt.Sscanf(s.Key, "%dx%d", &thumb.PixelWidth, &thumb.PixelHeight)
		if err != nil || n != 2 || thumb.PixelWidth <= 0 || thumb.PixelHeight <= 0 {
			return nil, apperrors.Wrapf(transferDomain.ErrInvalidThumbnail, "%q", s.Key)
		}
		thumb.ContentType = s.ContentType
		thumbnails = append(thumbnails, thumb)
	}
	return thumbnails, nil
}

func (t *transitService) AcceptUpload(
	ctx context.Context,
	pkg *transferDomain.UploadPackage,
) (*transferDomain.UploadResult, error) {
	if !pkg.IsValid() {
		return nil, transferDomain.ErrInvalidPackage
	}
	if pkg.IsSelfAddressed() {
		return nil, transferDomain.ErrSelfTransfer
	}

	if err := t.storage.AssertFileIsValid(ctx, pkg.File); err != nil {
		return nil, err
	}
	if err := t.storage.MoveToLongTerm(ctx, pkg.File); err != nil {
		return nil, err
	}

	result := &transferDomain.UploadResult{
		File:            pkg.File,
		RecipientStatus: make(map[string]transferDomain.TransferStatus, len(pkg.Recipients)),
	}
	if len(pkg.Recipients) == 0 {
		return result, nil
	}

	statuses, err := t.PrepareTransfer(ctx, pkg)
	if err != nil {
		return nil, err
	}
	result.RecipientStatus = statuses

	if t.qualifiesForInstantSend(ctx, pkg) {
		t.sendNow(ctx, pkg.File, result.RecipientStatus)
	}

	return result, nil
}

func (t *transitService) PrepareTransfer(
	ctx context.Context,
	pkg *transferDomain.UploadPackage,
) (map[string]transferDomain.TransferStatus, error) {
	if !pkg.IsValid() {
		return nil, transferDomain.ErrInvalidPackage
	}

	now := t.now().UTC()
	statuses := make(map[string]transferDomain.TransferStatus, len(pkg.Recipients))
	items := make([]*outboxDomain.OutboxItem, 0, len(pkg.Recipients))

	for _, recipient := range pkg.Recipients {
		status := transferDomain.TransferKeyCreated
		if err := t.preparer.WrapForRecipient(ctx, pkg.File, recipient); err != nil {
			t.logger.Warn("transfer key not created, queueing recipient",
				slog.String("recipient", recipient),
				slog.String("drive_id", pkg.File.DriveID.String()),
				slog.String("file_id", pkg.File.FileID.String()),
				slog.Any("error", err))

			if err := t.keyQueue.Enqueue(ctx, pkg.AppID, pkg.File, recipient); err != nil {
				return nil, err
			}
			status = transferDomain.AwaitingTransferKey
		}

		entry := transferDomain.NewTransferHistory(pkg.File, recipient, status, "", now)
		if err := t.history.Upsert(ctx, entry); err != nil {
			return nil, err
		}

		statuses[recipient] = status
		items = append(items, outboxDomain.NewOutboxItem(recipient, pkg.File, pkg.Priority, now))
	}

	if err := t.outbox.ReplaceMany(ctx, items); err != nil {
		return nil, err
	}
	return statuses, nil
}

func (t *transitService) qualifiesForInstantSend(ctx context.Context, pkg *transferDomain.UploadPackage) bool {
	if pkg.Schedule != transferDomain.ScheduleSendNow {
		return false
	}
	if len(pkg.Recipients) > t.config.InstantSendMaxRecipients {
		return false
	}

	size, err := t.storage.PayloadSize(ctx, driveDomain.AreaLongTerm, pkg.File)
	if err != nil {
		t.logger.Warn("failed to read payload size, leaving upload to the outbox worker",
			slog.String("file_id", pkg.File.FileID.String()),
			slog.Any("error", err))
		return false
	}
	return size < t.config.InstantSendMaxBytes
}

// sendNow claims the outbox items of file and sends them within the instant send
// timeout. Failures stay in the outbox.
func (t *transitService) sendNow(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	statuses map[string]transferDomain.TransferStatus,
) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.config.InstantSendTimeout)
	defer cancel()

	items, err := t.outbox.CheckOutFile(sendCtx, file)
	if err != nil {
		t.logger.Warn("failed to claim upload for instant send",
			slog.String("file_id", file.FileID.String()),
			slog.Any("error", err))
		return
	}

	for _, result := range t.sender.SendBatchNow(sendCtx, items) {
		if result.Success {
			statuses[result.Recipient] = transferDomain.Delivered
		} else {
			statuses[result.Recipient] = transferDomain.PendingRetry
		}
	}
}

func (t *transitService) SendBatchNow(
	ctx context.Context,
	items []*outboxDomain.OutboxItem,
) []transferDomain.SendResult {
	return t.sender.SendBatchNow(ctx, items)
}

func (t *transitService) GetTransferStatus(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
) ([]*transferDomain.TransferHistory, error) {
	if !file.IsValid() {
		return nil, driveDomain.ErrInvalidFileID
	}
	return t.history.ListByFile(ctx, file)
}

// NewTransitService creates a TransitService.
func NewTransitService(
	config Config,
	storage DriveStorage,
	keyWrapper cryptoService.KeyWrapper,
	keyDeriver cryptoService.KeyDeriver,
	preparer TransferKeyPreparer,
	keyQueue keyQueueUseCase.KeyQueueUseCase,
	outbox outboxUseCase.OutboxUseCase,
	sender Sender,
	history HistoryRepository,
	logger *slog.Logger,
) TransitService {
	return &transitService{
		config:     config,
		storage:    storage,
		keyWrapper: keyWrapper,
		keyDeriver: keyDeriver,
		preparer:   preparer,
		keyQueue:   keyQueue,
		outbox:     outbox,
		sender:     sender,
		history:    history,
		logger:     logger,
		now:        time.Now,
	}
}
