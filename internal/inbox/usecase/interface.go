// Package usecase implements the receiving side of peer transfers: screening incoming
// transfers, storing their payload under the tenant inbox, the signed audit trail and
// the inbox queue consumed by downstream processing.
package usecase

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
	"github.com/allisson/peertransfer/internal/multipart"
)

// InboxRepository persists inbox items for one tenant.
type InboxRepository interface {
	Add(ctx context.Context, item *inboxDomain.InboxItem) error
	GetPendingItems(ctx context.Context, offset, limit int) ([]*inboxDomain.InboxItem, error)
	SelectPending(ctx context.Context, limit int) ([]*inboxDomain.InboxItem, error)
	SetPopStamp(ctx context.Context, ids []uuid.UUID, stamp uuid.UUID, now time.Time) error
	DeleteByPopStamp(ctx context.Context, stamp uuid.UUID) (int64, error)
	RecoverPopped(ctx context.Context, olderThan time.Time) (int64, error)
	Status(ctx context.Context) (*inboxDomain.InboxStatus, error)
}

// AuditEventRepository persists audit events for one tenant.
type AuditEventRepository interface {
	Create(ctx context.Context, event *inboxDomain.AuditEvent) error
	ListByTracker(ctx context.Context, trackerID uuid.UUID) ([]*inboxDomain.AuditEvent, error)
}

// DriveStorage is the part of drive storage the inbox writes to.
type DriveStorage interface {
	WriteMetadata(
		ctx context.Context,
		area driveDomain.Area,
		file driveDomain.InternalDriveFileID,
		metadata *driveDomain.FileMetadata,
	) error
	WritePayload(
		ctx context.Context,
		area driveDomain.Area,
		file driveDomain.InternalDriveFileID,
		r io.Reader,
	) (int64, error)
	WriteThumbnail(
		ctx context.Context,
		area driveDomain.Area,
		file driveDomain.InternalDriveFileID,
		thumb driveDomain.Thumbnail,
		r io.Reader,
	) error
	Delete(ctx context.Context, area driveDomain.Area, file driveDomain.InternalDriveFileID) error
}

// AuditWriter records signed decisions taken on incoming transfers.
type AuditWriter interface {
	WriteEvent(ctx context.Context, trackerID uuid.UUID, kind inboxDomain.AuditKind, sender, detail string) error

	// ListEvents returns the events of trackerID after verifying every signature.
	ListEvents(ctx context.Context, trackerID uuid.UUID) ([]*inboxDomain.AuditEvent, error)
}

// InboxUseCase is the queue of accepted transfers awaiting downstream processing.
type InboxUseCase interface {
	Add(ctx context.Context, item *inboxDomain.InboxItem) error

	// GetPendingItems lists items not yet popped in processing order.
	GetPendingItems(ctx context.Context, offset, limit int) ([]*inboxDomain.InboxItem, error)

	// PopItems claims up to limit items under a new pop stamp.
	PopItems(ctx context.Context, limit int) (uuid.UUID, []*inboxDomain.InboxItem, error)

	// MarkComplete removes the items popped under stamp.
	MarkComplete(ctx context.Context, stamp uuid.UUID) (int64, error)

	// RecoverPopped returns items popped longer than the pop timeout ago to the queue.
	RecoverPopped(ctx context.Context) (int64, error)

	Status(ctx context.Context) (*inboxDomain.InboxStatus, error)
}

// Acceptor hands accepted transfers over to the inbox.
type Acceptor interface {
	// AcceptTransfer records an accepted audit event and queues an inbox item.
	// It neither moves payload bytes nor decrypts content.
	AcceptTransfer(ctx context.Context, trackerID uuid.UUID, transfer *inboxDomain.IncomingTransfer) error

	// QuarantineTransfer queues the transfer behind every regular item and records
	// a quarantined audit event.
	QuarantineTransfer(ctx context.Context, trackerID uuid.UUID, transfer *inboxDomain.IncomingTransfer) error
}

// TransferFilter judges an incoming transfer before its payload is stored.
type TransferFilter interface {
	Apply(ctx context.Context, fc *inboxDomain.FilterContext) (inboxDomain.FilterResult, error)
}

// ConnectionChecker reports whether a peer may send to this host.
type ConnectionChecker interface {
	IsActive(ctx context.Context, identity string) (bool, error)
}

// DeleteLinkedFileRequest asks the recipient to drop its copy of a file.
type DeleteLinkedFileRequest struct {
	File         driveDomain.InternalDriveFileID
	Instructions json.RawMessage
}

// Receiver is the perimeter entry point for peer transfers.
type Receiver interface {
	// Screen runs the first-stage filters. A reject wins over a quarantine.
	Screen(ctx context.Context, fc *inboxDomain.FilterContext) (inboxDomain.FilterResult, error)

	// Receive stores a complete transfer under the inbox drive, accepts it and
	// returns where it was stored.
	// A header that cannot be unwrapped by this host yields ErrTransferRejected.
	Receive(
		ctx context.Context,
		trackerID uuid.UUID,
		sender string,
		unit *multipart.Unit,
		verdict inboxDomain.FilterResult,
	) (driveDomain.InternalDriveFileID, error)

	// Reject records a rejected audit event.
	Reject(ctx context.Context, trackerID uuid.UUID, sender, reason string) error

	// DeleteLinkedFile queues a delete_linked_file instruction from sender.
	DeleteLinkedFile(ctx context.Context, trackerID uuid.UUID, sender string, req *DeleteLinkedFileRequest) error
}
