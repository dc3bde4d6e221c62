package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
)

type acceptor struct {
	audit AuditWriter
	inbox InboxUseCase
	now   func() time.Time
}

func (a *acceptor) AcceptTransfer(
	ctx context.Context,
	trackerID uuid.UUID,
	transfer *inboxDomain.IncomingTransfer,
) error {
	return a.accept(ctx, trackerID, transfer, inboxDomain.AuditAccepted, inboxDomain.DefaultPriority)
}

func (a *acceptor) QuarantineTransfer(
	ctx context.Context,
	trackerID uuid.UUID,
	transfer *inboxDomain.IncomingTransfer,
) error {
	return a.accept(ctx, trackerID, transfer, inboxDomain.AuditQuarantined, inboxDomain.QuarantinePriority)
}

func (a *acceptor) accept(
	ctx context.Context,
	trackerID uuid.UUID,
	transfer *inboxDomain.IncomingTransfer,
	kind inboxDomain.AuditKind,
	priority int,
) error {
	if transfer == nil || transfer.Sender == "" || !transfer.File.IsValid() {
		return inboxDomain.ErrInvalidTransfer
	}

	item := inboxDomain.NewInboxItem(trackerID, transfer, a.now())
	item.Priority = priority

	detail := string(item.InstructionType) + " " + item.File.String()
	if err := a.audit.WriteEvent(ctx, trackerID, kind, transfer.Sender, detail); err != nil {
		return err
	}
	return a.inbox.Add(ctx, item)
}

// NewAcceptor creates an Acceptor.
func NewAcceptor(audit AuditWriter, inbox InboxUseCase) Acceptor {
	return &acceptor{
		audit: audit,
		inbox: inbox,
		now:   func() time.Time { return time.Now().UTC() },
	}
}
