// Package usecase implements the sending side of peer transfers: per-recipient key
// preparation, the send protocol, upload acceptance and the outbox worker.
package usecase

import (
	"context"
	"io"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	keyQueueUseCase "github.com/allisson/peertransfer/internal/keyqueue/usecase"
	"github.com/allisson/peertransfer/internal/multipart"
	outboxDomain "github.com/allisson/peertransfer/internal/outbox/domain"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
)

// RecipientKeyRepository persists wrapped key headers per (file, recipient).
type RecipientKeyRepository interface {
	Upsert(
		ctx context.Context,
		file driveDomain.InternalDriveFileID,
		recipient string,
		header *cryptoDomain.EncryptedRecipientTransferKeyHeader,
	) error
	Get(
		ctx context.Context,
		file driveDomain.InternalDriveFileID,
		recipient string,
	) (*cryptoDomain.EncryptedRecipientTransferKeyHeader, error)
	Delete(ctx context.Context, file driveDomain.InternalDriveFileID, recipient string) error
}

// HistoryRepository persists the latest transfer status per (file, recipient).
type HistoryRepository interface {
	Upsert(ctx context.Context, entry *transferDomain.TransferHistory) error
	ListByFile(ctx context.Context, file driveDomain.InternalDriveFileID) ([]*transferDomain.TransferHistory, error)
}

// DriveStorage is the part of drive storage used by transfers.
type DriveStorage interface {
	WriteHeader(
		ctx context.Context,
		area driveDomain.Area,
		file driveDomain.InternalDriveFileID,
		header *cryptoDomain.EncryptedKeyHeader,
	) error
	WriteMetadata(
		ctx context.Context,
		area driveDomain.Area,
		file driveDomain.InternalDriveFileID,
		metadata *driveDomain.FileMetadata,
	) error
	WritePayload(ctx context.Context, area driveDomain.Area, file driveDomain.InternalDriveFileID, r io.Reader) (int64, error)
	WriteThumbnail(
		ctx context.Context,
		area driveDomain.Area,
		file driveDomain.InternalDriveFileID,
		thumb driveDomain.Thumbnail,
		r io.Reader,
	) error
	AssertFileIsValid(ctx context.Context, file driveDomain.InternalDriveFileID) error
	MoveToLongTerm(ctx context.Context, file driveDomain.InternalDriveFileID) error
	GetEncryptedKeyHeader(ctx context.Context, file driveDomain.InternalDriveFileID) (*cryptoDomain.EncryptedKeyHeader, error)
	GetMetadata(
		ctx context.Context,
		area driveDomain.Area,
		file driveDomain.InternalDriveFileID,
	) (*driveDomain.FileMetadata, error)
	GetFilePartStream(
		ctx context.Context,
		file driveDomain.InternalDriveFileID,
		part driveDomain.FilePart,
	) (io.ReadCloser, error)
	ListThumbnails(ctx context.Context, file driveDomain.InternalDriveFileID) ([]driveDomain.Thumbnail, error)
	PayloadSize(ctx context.Context, area driveDomain.Area, file driveDomain.InternalDriveFileID) (int64, error)
}

// TransferKeyPreparer wraps file key headers for recipients. It also serves the
// key-encryption retry queue.
type TransferKeyPreparer interface {
	keyQueueUseCase.RecipientKeyPreparer

	// WrapForRecipient stores the key header of file wrapped for recipient. It fails
	// with ErrRecipientPublicKeyUnavailable while no valid public key is known.
	WrapForRecipient(ctx context.Context, file driveDomain.InternalDriveFileID, recipient string) error
}

// Sender delivers outbox items to recipient hosts.
type Sender interface {
	// Send makes one delivery attempt. It never returns an error; failures are
	// classified in the result.
	Send(ctx context.Context, item *outboxDomain.OutboxItem) transferDomain.SendResult

	// SendBatchNow sends claimed items concurrently, then removes delivered items
	// and checks failed ones back into the outbox.
	SendBatchNow(ctx context.Context, items []*outboxDomain.OutboxItem) []transferDomain.SendResult
}

// TransitService is the owner-facing transfer API.
type TransitService interface {
	// StageUpload writes a complete owner upload unit to drive staging.
	StageUpload(
		ctx context.Context,
		sender string,
		instructions *transferDomain.UploadInstructions,
		unit *multipart.Unit,
	) (*transferDomain.UploadPackage, error)

	// AcceptUpload commits a staged upload and queues it for every recipient.
	AcceptUpload(ctx context.Context, pkg *transferDomain.UploadPackage) (*transferDomain.UploadResult, error)

	// PrepareTransfer wraps the key header per recipient and creates one outbox item each.
	PrepareTransfer(
		ctx context.Context,
		pkg *transferDomain.UploadPackage,
	) (map[string]transferDomain.TransferStatus, error)

	// SendBatchNow sends claimed outbox items right away.
	SendBatchNow(ctx context.Context, items []*outboxDomain.OutboxItem) []transferDomain.SendResult

	// GetTransferStatus lists the status of file per recipient.
	GetTransferStatus(ctx context.Context, file driveDomain.InternalDriveFileID) ([]*transferDomain.TransferHistory, error)
}
