package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/peertransfer/internal/database"
	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	keyQueueDomain "github.com/allisson/peertransfer/internal/keyqueue/domain"
)

// MySQLKeyQueueRepository stores queue items of one tenant using BINARY(16) ids.
type MySQLKeyQueueRepository struct {
	db       *sql.DB
	tenantID string
}

// Enqueue inserts item. An existing pending item is kept as is; an undeliverable
// one is revived. status is assigned last since the other columns test it.
func (m *MySQLKeyQueueRepository) Enqueue(ctx context.Context, item *keyQueueDomain.KeyEncryptionQueueItem) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO key_encryption_queue (tenant_id, ` + itemColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
			  attempts = IF(status = ?, VALUES(attempts), attempts),
			  first_added_ms = IF(status = ?, VALUES(first_added_ms), first_added_ms),
			  last_attempt_ms = IF(status = ?, VALUES(last_attempt_ms), last_attempt_ms),
			  next_attempt_ms = IF(status = ?, VALUES(next_attempt_ms), next_attempt_ms),
			  status = IF(status = ?, VALUES(status), status)`

	undeliverable := keyQueueDomain.StatusUndeliverable
	_, err := querier.ExecContext(
		ctx,
		query,
		m.tenantID,
		database.BinaryUUID(item.ID),
		item.AppID,
		database.BinaryUUID(item.File.DriveID),
		database.BinaryUUID(item.File.FileID),
		item.Recipient,
		item.Attempts,
		item.FirstAddedTimestampMs,
		item.LastAttemptTimestampMs,
		item.NextAttemptTimestampMs,
		item.Status,
		undeliverable,
		undeliverable,
		undeliverable,
		undeliverable,
		undeliverable,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to enqueue key encryption item")
	}
	return nil
}

// RecordAttempt stores the attempt count and schedule of item.
func (m *MySQLKeyQueueRepository) RecordAttempt(
	ctx context.Context,
	item *keyQueueDomain.KeyEncryptionQueueItem,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE key_encryption_queue SET attempts = ?, last_attempt_ms = ?, next_attempt_ms = ?
			  WHERE tenant_id = ? AND id = ?`

	_, err := querier.ExecContext(
		ctx,
		query,
		item.Attempts,
		item.LastAttemptTimestampMs,
		item.NextAttemptTimestampMs,
		m.tenantID,
		database.BinaryUUID(item.ID),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to record key encryption attempt")
	}
	return nil
}

// DrainDue locks up to limit pending items whose next attempt is at or before nowMs,
// oldest first. Must run inside a transaction.
func (m *MySQLKeyQueueRepository) DrainDue(
	ctx context.Context,
	limit int,
	nowMs int64,
) ([]*keyQueueDomain.KeyEncryptionQueueItem, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + itemColumns + ` FROM key_encryption_queue
			  WHERE tenant_id = ? AND status = ? AND next_attempt_ms <= ?
			  ORDER BY first_added_ms ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, m.tenantID, keyQueueDomain.StatusPending, nowMs, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to drain key encryption queue")
	}
	return scanItems(rows, true)
}

// Touch pushes the next attempt of the given items to leaseUntilMs.
func (m *MySQLKeyQueueRepository) Touch(ctx context.Context, ids []uuid.UUID, leaseUntilMs int64) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE key_encryption_queue SET next_attempt_ms = ? WHERE tenant_id = ? AND id = ?`

	for _, id := range ids {
		if _, err := querier.ExecContext(ctx, query, leaseUntilMs, m.tenantID, database.BinaryUUID(id)); err != nil {
			return apperrors.Wrap(err, "failed to touch key encryption item")
		}
	}
	return nil
}

// Remove deletes the item for (file, recipient).
func (m *MySQLKeyQueueRepository) Remove(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM key_encryption_queue
			  WHERE tenant_id = ? AND drive_id = ? AND file_id = ? AND recipient = ?`

	_, err := querier.ExecContext(
		ctx, query, m.tenantID, database.BinaryUUID(file.DriveID), database.BinaryUUID(file.FileID), recipient,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to remove key encryption item")
	}
	return nil
}

// MarkUndeliverable moves the item for (file, recipient) out of the pending set.
func (m *MySQLKeyQueueRepository) MarkUndeliverable(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE key_encryption_queue SET status = ?
			  WHERE tenant_id = ? AND drive_id = ? AND file_id = ? AND recipient = ?`

	_, err := querier.ExecContext(
		ctx,
		query,
		keyQueueDomain.StatusUndeliverable,
		m.tenantID,
		database.BinaryUUID(file.DriveID),
		database.BinaryUUID(file.FileID),
		recipient,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark key encryption item undeliverable")
	}
	return nil
}

// GetPendingItems returns pending items oldest first without locking them.
func (m *MySQLKeyQueueRepository) GetPendingItems(
	ctx context.Context,
	offset, limit int,
) ([]*keyQueueDomain.KeyEncryptionQueueItem, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + itemColumns + ` FROM key_encryption_queue
			  WHERE tenant_id = ? AND status = ?
			  ORDER BY first_added_ms ASC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, m.tenantID, keyQueueDomain.StatusPending, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list key encryption items")
	}
	return scanItems(rows, true)
}

// Status counts items per status.
func (m *MySQLKeyQueueRepository) Status(ctx context.Context) (*keyQueueDomain.QueueStatus, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT status, COUNT(*) FROM key_encryption_queue WHERE tenant_id = ? GROUP BY status`

	rows, err := querier.QueryContext(ctx, query, m.tenantID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get key encryption queue status")
	}
	return scanStatus(rows)
}

// NewMySQLKeyQueueRepository creates a repository bound to tenantID.
func NewMySQLKeyQueueRepository(db *sql.DB, tenantID string) *MySQLKeyQueueRepository {
	return &MySQLKeyQueueRepository{db: db, tenantID: tenantID}
}
