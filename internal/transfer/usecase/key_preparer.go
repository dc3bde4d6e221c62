package usecase

import (
	"context"
	"log/slog"
	"time"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	cryptoService "github.com/allisson/peertransfer/internal/crypto/service"
	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	keyQueueDomain "github.com/allisson/peertransfer/internal/keyqueue/domain"
	outboxDomain "github.com/allisson/peertransfer/internal/outbox/domain"
	outboxUseCase "github.com/allisson/peertransfer/internal/outbox/usecase"
	publicKeyUseCase "github.com/allisson/peertransfer/internal/publickey/usecase"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
)

type transferKeyPreparer struct {
	directory     publicKeyUseCase.Directory
	storage       DriveStorage
	keyWrapper    cryptoService.KeyWrapper
	keyDeriver    cryptoService.KeyDeriver
	recipientKeys RecipientKeyRepository
	outbox        outboxUseCase.OutboxUseCase
	history       HistoryRepository
	logger        *slog.Logger
}

// WrapForRecipient stores a header wrapping the current key of file for recipient.
// On failure any header left from an earlier version of file is deleted.
func (p *transferKeyPreparer) WrapForRecipient(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
) error {
	header, err := p.wrap(ctx, file, recipient)
	if err != nil {
		if delErr := p.recipientKeys.Delete(ctx, file, recipient); delErr != nil {
			return apperrors.Join(err, delErr)
		}
		return err
	}
	return p.recipientKeys.Upsert(ctx, file, recipient, header)
}

func (p *transferKeyPreparer) wrap(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
) (*cryptoDomain.EncryptedRecipientTransferKeyHeader, error) {
	publicKey, err := p.directory.GetPublicKey(ctx, recipient, true)
	if err != nil {
		return nil, err
	}
	if publicKey == nil {
		return nil, transferDomain.ErrRecipientPublicKeyUnavailable
	}

	encrypted, err := p.storage.GetEncryptedKeyHeader(ctx, file)
	if err != nil {
		return nil, err
	}

	storageKey, err := p.keyDeriver.DriveStorageKey(file.DriveID.String())
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(storageKey)

	keyHeader, err := p.keyWrapper.DecryptAesToKeyHeader(encrypted, storageKey)
	if err != nil {
		return nil, err
	}
	defer keyHeader.Zero()

	return p.keyWrapper.WrapForRecipient(keyHeader, publicKey.PublicKey)
}

// PrepareRecipient is called by the key queue sweeper for one queued recipient.
func (p *transferKeyPreparer) PrepareRecipient(
	ctx context.Context,
	item *keyQueueDomain.KeyEncryptionQueueItem,
) (bool, error) {
	err := p.WrapForRecipient(ctx, item.File, item.Recipient)
	if apperrors.Is(err, transferDomain.ErrRecipientPublicKeyUnavailable) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	outboxItem := outboxDomain.NewOutboxItem(item.Recipient, item.File, transferDomain.PriorityDefault, now)
	if err := p.outbox.Add(ctx, outboxItem); err != nil {
		return false, err
	}

	entry := transferDomain.NewTransferHistory(item.File, item.Recipient, transferDomain.TransferKeyCreated, "", now)
	if err := p.history.Upsert(ctx, entry); err != nil {
		return false, err
	}

	p.logger.Info("transfer key created from key queue",
		slog.String("recipient", item.Recipient),
		slog.String("drive_id", item.File.DriveID.String()),
		slog.String("file_id", item.File.FileID.String()),
		slog.Int("attempts", item.Attempts))
	return true, nil
}

// AbandonRecipient drops everything queued for (file, recipient).
func (p *transferKeyPreparer) AbandonRecipient(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
) error {
	if err := p.outbox.Remove(ctx, recipient, file); err != nil {
		return err
	}
	if err := p.recipientKeys.Delete(ctx, file, recipient); err != nil {
		return err
	}

	return p.history.Upsert(ctx, transferDomain.NewTransferHistory(
		file,
		recipient,
		transferDomain.Undeliverable,
		transferDomain.EncryptedTransferKeyNotAvailable,
		time.Now().UTC(),
	))
}

// NewTransferKeyPreparer creates a TransferKeyPreparer.
func NewTransferKeyPreparer(
	directory publicKeyUseCase.Directory,
	storage DriveStorage,
	keyWrapper cryptoService.KeyWrapper,
	keyDeriver cryptoService.KeyDeriver,
	recipientKeys RecipientKeyRepository,
	outbox outboxUseCase.OutboxUseCase,
	history HistoryRepository,
	logger *slog.Logger,
) TransferKeyPreparer {
	return &transferKeyPreparer{
		directory:     directory,
		storage:       storage,
		keyWrapper:    keyWrapper,
		keyDeriver:    keyDeriver,
		recipientKeys: recipientKeys,
		outbox:        outbox,
		history:       history,
		logger:        logger,
	}
}
