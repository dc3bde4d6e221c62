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
	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
	keyQueueDomain "github.com/allisson/peertransfer/internal/keyqueue/domain"
	"github.com/allisson/peertransfer/internal/multipart"
)

// TransferKeyUnwrapper recovers key headers wrapped for this host.
type TransferKeyUnwrapper interface {
	UnwrapTransferKeyHeader(
		ctx context.Context,
		header *cryptoDomain.EncryptedRecipientTransferKeyHeader,
	) (*cryptoDomain.KeyHeader, error)
}

type receiver struct {
	tenantID string
	filters  []TransferFilter
	keys     TransferKeyUnwrapper
	storage  DriveStorage
	acceptor Acceptor
	audit    AuditWriter
	logger   *slog.Logger
	now      func() time.Time
}

// rejection is a refusal reported back to the sender.
type rejection struct {
	reason string
}

func (r *rejection) Error() string {
	return r.reason
}

func (r *rejection) Unwrap() error {
	return inboxDomain.ErrTransferRejected
}

func (r *receiver) Screen(ctx context.Context, fc *inboxDomain.FilterContext) (inboxDomain.FilterResult, error) {
	return runFilters(ctx, r.filters, fc)
}

func (r *receiver) Receive(
	ctx context.Context,
	trackerID uuid.UUID,
	sender string,
	unit *multipart.Unit,
	verdict inboxDomain.FilterResult,
) (driveDomain.InternalDriveFileID, error) {
	file, err := r.receive(ctx, trackerID, sender, unit, verdict)
	if err == nil {
		return file, nil
	}

	var rejected *rejection
	if apperrors.As(err, &rejected) {
		if auditErr := r.Reject(ctx, trackerID, sender, rejected.reason); auditErr != nil {
			return driveDomain.InternalDriveFileID{}, auditErr
		}
	}
	return driveDomain.InternalDriveFileID{}, err
}

func (r *receiver) receive(
	ctx context.Context,
	trackerID uuid.UUID,
	sender string,
	unit *multipart.Unit,
	verdict inboxDomain.FilterResult,
) (driveDomain.InternalDriveFileID, error) {
	var file driveDomain.InternalDriveFileID

	if verdict.Action == inboxDomain.FilterReject {
		return file, &rejection{reason: verdict.Reason}
	}
	if unit == nil || !unit.IsComplete() {
		return file, &rejection{reason: "transfer is incomplete"}
	}

	header := &cryptoDomain.EncryptedRecipientTransferKeyHeader{}
	if err := json.Unmarshal(unit.Bytes(multipart.PartHeader), header); err != nil {
		return file, &rejection{reason: "invalid transfer key header"}
	}
	if err := r.checkHeader(ctx, header); err != nil {
		return file, err
	}

	rawMetadata := unit.Bytes(multipart.PartMetadata)
	var metadata driveDomain.FileMetadata
	if err := json.Unmarshal(rawMetadata, &metadata); err != nil {
		return file, &rejection{reason: "invalid metadata"}
	}

	thumbnails, err := inboxThumbnails(unit.Thumbnails())
	if err != nil {
		return file, err
	}

	file = driveDomain.InternalDriveFileID{
		DriveID: driveDomain.InboxDriveID(r.tenantID),
		FileID:  uuid.Must(uuid.NewV7()),
	}
	metadata.SenderIdentity = sender
	metadata.PayloadSize = unit.PayloadSize()
	metadata.Thumbnails = thumbnails
	metadata.ServerMetadata = nil
	metadata.UpdatedMs = r.now().UnixMilli()

	if err := r.store(ctx, file, unit, &metadata); err != nil {
		r.discard(file)
		return driveDomain.InternalDriveFileID{}, err
	}

	transfer := &inboxDomain.IncomingTransfer{
		Sender:            sender,
		AppID:             keyQueueDomain.DefaultAppID,
		File:              file,
		InstructionType:   inboxDomain.InstructionTransfer,
		TransferKeyHeader: header,
		Metadata:          json.RawMessage(rawMetadata),
	}

	accept := r.acceptor.AcceptTransfer
	if verdict.Action == inboxDomain.FilterQuarantine {
		accept = r.acceptor.QuarantineTransfer
	}
	if err := accept(ctx, trackerID, transfer); err != nil {
		r.discard(file)
		return driveDomain.InternalDriveFileID{}, err
	}

	r.logger.Info("transfer accepted into inbox",
		slog.String("tracker_id", trackerID.String()),
		slog.String("sender", sender),
		slog.String("file", file.String()),
		slog.String("verdict", verdict.Action.String()))
	return file, nil
}

// checkHeader verifies this host can unwrap header. Undecryptable headers are
// rejected; lookup failures are returned as is so the sender retries.
func (r *receiver) checkHeader(ctx context.Context, header *cryptoDomain.EncryptedRecipientTransferKeyHeader) error {
	keyHeader, err := r.keys.UnwrapTransferKeyHeader(ctx, header)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrInvalidInput) || apperrors.Is(err, cryptoDomain.ErrHostKeyNotFound) {
			return &rejection{reason: "transfer key header could not be decrypted"}
		}
		return apperrors.Wrap(err, "failed to unwrap transfer key header")
	}
	keyHeader.Zero()
	return nil
}

func (r *receiver) store(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	unit *multipart.Unit,
	metadata *driveDomain.FileMetadata,
) error {
	payload, err := unit.OpenPayload()
	if err != nil {
		return apperrors.Wrap(err, "failed to open staged payload")
	}
	_, err = r.storage.WritePayload(ctx, driveDomain.AreaInbox, file, payload)
	_ = payload.Close()
	if err != nil {
		return err
	}

	for i, staged := range unit.Thumbnails() {
		f, err := os.Open(staged.Path)
		if err != nil {
			return apperrors.Wrap(err, "failed to open staged thumbnail")
		}
		err = r.storage.WriteThumbnail(ctx, driveDomain.AreaInbox, file, metadata.Thumbnails[i], f)
		_ = f.Close()
		if err != nil {
			return err
		}
	}

	return r.storage.WriteMetadata(ctx, driveDomain.AreaInbox, file, metadata)
}

func (r *receiver) discard(file driveDomain.InternalDriveFileID) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.storage.Delete(ctx, driveDomain.AreaInbox, file); err != nil {
		r.logger.Warn("failed to discard inbox file",
			slog.String("file", file.String()),
			slog.Any("error", err))
	}
}

func (r *receiver) Reject(ctx context.Context, trackerID uuid.UUID, sender, reason string) error {
	r.logger.Warn("transfer rejected",
		slog.String("tracker_id", trackerID.String()),
		slog.String("sender", sender),
		slog.String("reason", reason))
	return r.audit.WriteEvent(ctx, trackerID, inboxDomain.AuditRejected, sender, reason)
}

func (r *receiver) DeleteLinkedFile(
	ctx context.Context,
	trackerID uuid.UUID,
	sender string,
	req *DeleteLinkedFileRequest,
) error {
	if req == nil || !req.File.IsValid() {
		return inboxDomain.ErrInvalidTransfer
	}

	return r.acceptor.AcceptTransfer(ctx, trackerID, &inboxDomain.IncomingTransfer{
		Sender:          sender,
		AppID:           keyQueueDomain.DefaultAppID,
		File:            req.File,
		InstructionType: inboxDomain.InstructionDeleteLinkedFile,
		Metadata:        req.Instructions,
	})
}

// inboxThumbnails describes staged thumbnails. Their keys are "<width>x<height>".
func inboxThumbnails(staged []multipart.StagedThumbnail) ([]driveDomain.Thumbnail, error) {
	thumbnails := make([]driveDomain.Thumbnail, 0, len(staged))
	for _, s := range staged {
		var thumb driveDomain.Thumbnail
		if _, err := fmt.Sscanf(s.Key, "%dx%d", &thumb.PixelWidth, &thumb.PixelHeight); err != nil {
			return nil, &rejection{reason: fmt.Sprintf("invalid thumbnail %q", s.Key)}
		}
		thumb.ContentType = s.ContentType
		thumbnails = append(thumbnails, thumb)
	}
	return thumbnails, nil
}

// NewReceiver creates a Receiver storing transfers under the inbox drive of tenantID.
func NewReceiver(
	tenantID string,
	filters []TransferFilter,
	keys TransferKeyUnwrapper,
	storage DriveStorage,
	acceptor Acceptor,
	audit AuditWriter,
	logger *slog.Logger,
) Receiver {
	return &receiver{
		tenantID: tenantID,
		filters:  filters,
		keys:     keys,
		storage:  storage,
		acceptor: acceptor,
		audit:    audit,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}
