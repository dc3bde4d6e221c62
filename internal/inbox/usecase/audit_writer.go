package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
	inboxService "github.com/allisson/peertransfer/internal/inbox/service"
)

// SigningKeySource provides the key audit events are signed with.
type SigningKeySource interface {
	AuditSigningKey() ([]byte, error)
}

type auditWriter struct {
	repo   AuditEventRepository
	signer inboxService.AuditSigner
	keys   SigningKeySource
	logger *slog.Logger
	now    func() time.Time
}

func (a *auditWriter) WriteEvent(
	ctx context.Context,
	trackerID uuid.UUID,
	kind inboxDomain.AuditKind,
	sender, detail string,
) error {
	key, err := a.keys.AuditSigningKey()
	if err != nil {
		return apperrors.Wrap(err, "failed to derive audit signing key")
	}
	defer cryptoDomain.Zero(key)

	event := &inboxDomain.AuditEvent{
		ID:        uuid.Must(uuid.NewV7()),
		TrackerID: trackerID,
		Kind:      kind,
		Sender:    sender,
		Detail:    detail,
		CreatedAt: a.now(),
	}

	event.Signature, err = a.signer.Sign(key, event)
	if err != nil {
		return apperrors.Wrap(err, "failed to sign audit event")
	}

	if err := a.repo.Create(ctx, event); err != nil {
		return err
	}

	a.logger.Info("transfer audit event",
		slog.String("tracker_id", trackerID.String()),
		slog.String("kind", string(kind)),
		slog.String("sender", sender))
	return nil
}

func (a *auditWriter) ListEvents(ctx context.Context, trackerID uuid.UUID) ([]*inboxDomain.AuditEvent, error) {
	events, err := a.repo.ListByTracker(ctx, trackerID)
	if err != nil {
		return nil, err
	}

	key, err := a.keys.AuditSigningKey()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to derive audit signing key")
	}
	defer cryptoDomain.Zero(key)

	for _, event := range events {
		if err := a.signer.Verify(key, event); err != nil {
			return nil, apperrors.Wrapf(err, "audit event %s", event.ID)
		}
	}
	return events, nil
}

// NewAuditWriter creates an AuditWriter. Timestamps are truncated to the
// microsecond precision of the database so signatures survive a round trip.
func NewAuditWriter(
	repo AuditEventRepository,
	signer inboxService.AuditSigner,
	keys SigningKeySource,
	logger *slog.Logger,
) AuditWriter {
	return &auditWriter{
		repo:   repo,
		signer: signer,
		keys:   keys,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}
