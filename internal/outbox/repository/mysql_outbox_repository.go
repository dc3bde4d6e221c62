package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/peertransfer/internal/database"
	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	outboxDomain "github.com/allisson/peertransfer/internal/outbox/domain"
)

// MySQLOutboxRepository stores the outbox of one tenant using BINARY(16) ids.
type MySQLOutboxRepository struct {
	db       *sql.DB
	tenantID string
}

// Add inserts item unless an item for the same (recipient, file) already exists.
func (m *MySQLOutboxRepository) Add(ctx context.Context, item *outboxDomain.OutboxItem) error {
	querier := database.GetTx(ctx, m.db)

	attempts, err := marshalAttempts(item.Attempts)
	if err != nil {
		return err
	}

	query := `INSERT IGNORE INTO outbox_items (tenant_id, ` + itemColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, NULL, 0, NULL, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		m.tenantID,
		database.BinaryUUID(item.ID),
		database.BinaryUUID(item.File.DriveID),
		database.BinaryUUID(item.File.FileID),
		item.Recipient,
		item.Priority,
		attempts,
		item.NextRunAt,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to add outbox item")
	}
	return nil
}

// Replace inserts item or resets the existing item for the same (recipient, file),
// releasing any claim on it.
func (m *MySQLOutboxRepository) Replace(ctx context.Context, item *outboxDomain.OutboxItem) error {
	querier := database.GetTx(ctx, m.db)

	attempts, err := marshalAttempts(item.Attempts)
	if err != nil {
		return err
	}

	query := `INSERT INTO outbox_items (tenant_id, ` + itemColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, NULL, 0, NULL, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
			  priority = VALUES(priority),
			  attempts = VALUES(attempts),
			  check_out_stamp = NULL,
			  checked_out_at = NULL,
			  next_run_at = VALUES(next_run_at),
			  updated_at = VALUES(updated_at)`

	_, err = querier.ExecContext(
		ctx,
		query,
		m.tenantID,
		database.BinaryUUID(item.ID),
		database.BinaryUUID(item.File.DriveID),
		database.BinaryUUID(item.File.FileID),
		item.Recipient,
		item.Priority,
		attempts,
		item.NextRunAt,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to replace outbox item")
	}
	return nil
}

// CheckIn stores the attempts and next run time of item and releases its claim.
// A missing item is inserted again.
func (m *MySQLOutboxRepository) CheckIn(ctx context.Context, item *outboxDomain.OutboxItem) error {
	querier := database.GetTx(ctx, m.db)

	attempts, err := marshalAttempts(item.Attempts)
	if err != nil {
		return err
	}

	query := `INSERT INTO outbox_items (tenant_id, ` + itemColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?, NULL, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
			  attempts = VALUES(attempts),
			  check_out_stamp = NULL,
			  checked_out_at = NULL,
			  next_run_at = VALUES(next_run_at),
			  updated_at = VALUES(updated_at)`

	_, err = querier.ExecContext(
		ctx,
		query,
		m.tenantID,
		database.BinaryUUID(item.ID),
		database.BinaryUUID(item.File.DriveID),
		database.BinaryUUID(item.File.FileID),
		item.Recipient,
		item.Priority,
		attempts,
		item.CheckOutCount,
		item.NextRunAt,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to check in outbox item")
	}
	return nil
}

// SelectDue locks up to limit unclaimed items due at now. Must run inside a transaction.
func (m *MySQLOutboxRepository) SelectDue(
	ctx context.Context,
	limit int,
	now time.Time,
) ([]*outboxDomain.OutboxItem, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + itemColumns + ` FROM outbox_items
			  WHERE tenant_id = ? AND check_out_stamp IS NULL AND next_run_at <= ?
			  ORDER BY priority ASC, next_run_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, m.tenantID, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to select due outbox items")
	}
	return scanItems(rows, true)
}

// SelectFile locks the unclaimed items of file. Must run inside a transaction.
func (m *MySQLOutboxRepository) SelectFile(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
) ([]*outboxDomain.OutboxItem, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + itemColumns + ` FROM outbox_items
			  WHERE tenant_id = ? AND drive_id = ? AND file_id = ? AND check_out_stamp IS NULL
			  ORDER BY priority ASC
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(
		ctx, query, m.tenantID, database.BinaryUUID(file.DriveID), database.BinaryUUID(file.FileID),
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to select outbox items of file")
	}
	return scanItems(rows, true)
}

// CheckOut marks the given items as claimed by stamp.
func (m *MySQLOutboxRepository) CheckOut(ctx context.Context, ids []uuid.UUID, stamp uuid.UUID, now time.Time) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE outbox_items
			  SET check_out_stamp = ?, check_out_count = check_out_count + 1, checked_out_at = ?, updated_at = ?
			  WHERE tenant_id = ? AND id = ?`

	for _, id := range ids {
		_, err := querier.ExecContext(
			ctx, query, database.BinaryUUID(stamp), now, now, m.tenantID, database.BinaryUUID(id),
		)
		if err != nil {
			return apperrors.Wrap(err, "failed to check out outbox item")
		}
	}
	return nil
}

// Remove deletes the item for (recipient, file).
func (m *MySQLOutboxRepository) Remove(
	ctx context.Context,
	recipient string,
	file driveDomain.InternalDriveFileID,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM outbox_items WHERE tenant_id = ? AND drive_id = ? AND file_id = ? AND recipient = ?`

	_, err := querier.ExecContext(
		ctx, query, m.tenantID, database.BinaryUUID(file.DriveID), database.BinaryUUID(file.FileID), recipient,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to remove outbox item")
	}
	return nil
}

// RemoveClaimed deletes the item id only while it is still claimed by stamp.
func (m *MySQLOutboxRepository) RemoveClaimed(ctx context.Context, id, stamp uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM outbox_items WHERE tenant_id = ? AND id = ? AND check_out_stamp = ?`

	result, err := querier.ExecContext(ctx, query, m.tenantID, database.BinaryUUID(id), database.BinaryUUID(stamp))
	if err != nil {
		return false, apperrors.Wrap(err, "failed to remove claimed outbox item")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to remove claimed outbox item")
	}
	return n > 0, nil
}

// Get returns the item for (recipient, file).
func (m *MySQLOutboxRepository) Get(
	ctx context.Context,
	recipient string,
	file driveDomain.InternalDriveFileID,
) (*outboxDomain.OutboxItem, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + itemColumns + ` FROM outbox_items
			  WHERE tenant_id = ? AND drive_id = ? AND file_id = ? AND recipient = ?`

	rows, err := querier.QueryContext(
		ctx, query, m.tenantID, database.BinaryUUID(file.DriveID), database.BinaryUUID(file.FileID), recipient,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get outbox item")
	}
	return firstItem(rows, true)
}

// GetPendingItems lists items in claim order without locking them.
func (m *MySQLOutboxRepository) GetPendingItems(
	ctx context.Context,
	offset, limit int,
) ([]*outboxDomain.OutboxItem, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + itemColumns + ` FROM outbox_items
			  WHERE tenant_id = ?
			  ORDER BY priority ASC, next_run_at ASC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, m.tenantID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list outbox items")
	}
	return scanItems(rows, true)
}

// RecoverDeadItems releases claims taken before olderThan.
func (m *MySQLOutboxRepository) RecoverDeadItems(ctx context.Context, olderThan time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE outbox_items SET check_out_stamp = NULL, checked_out_at = NULL
			  WHERE tenant_id = ? AND check_out_stamp IS NOT NULL AND checked_out_at < ?`

	result, err := querier.ExecContext(ctx, query, m.tenantID, olderThan)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to recover outbox items")
	}
	return result.RowsAffected()
}

// Status counts all and claimed items and reports the earliest next run of an unclaimed item.
func (m *MySQLOutboxRepository) Status(ctx context.Context) (*outboxDomain.OutboxStatus, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT COUNT(*), COUNT(check_out_stamp), MIN(CASE WHEN check_out_stamp IS NULL THEN next_run_at END)
			  FROM outbox_items WHERE tenant_id = ?`

	return scanStatus(querier.QueryRowContext(ctx, query, m.tenantID))
}

// NewMySQLOutboxRepository creates a repository bound to tenantID.
func NewMySQLOutboxRepository(db *sql.DB, tenantID string) *MySQLOutboxRepository {
	return &MySQLOutboxRepository{db: db, tenantID: tenantID}
}
