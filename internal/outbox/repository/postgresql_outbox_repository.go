// Package repository persists outbox items in PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/peertransfer/internal/database"
	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	outboxDomain "github.com/allisson/peertransfer/internal/outbox/domain"
)

const itemColumns = `id, drive_id, file_id, recipient, priority, attempts, check_out_stamp, check_out_count,
			  checked_out_at, next_run_at, created_at, updated_at`

// PostgreSQLOutboxRepository stores the outbox of one tenant.
type PostgreSQLOutboxRepository struct {
	db       *sql.DB
	tenantID string
}

// Add inserts item unless an item for the same (recipient, file) already exists.
func (p *PostgreSQLOutboxRepository) Add(ctx context.Context, item *outboxDomain.OutboxItem) error {
	querier := database.GetTx(ctx, p.db)

	attempts, err := marshalAttempts(item.Attempts)
	if err != nil {
		return err
	}

	query := `INSERT INTO outbox_items (tenant_id, ` + itemColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, 0, NULL, $8, $9, $10)
			  ON CONFLICT (tenant_id, drive_id, file_id, recipient) DO NOTHING`

	_, err = querier.ExecContext(
		ctx,
		query,
		p.tenantID,
		item.ID,
		item.File.DriveID,
		item.File.FileID,
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

// Replace inserts item or resets the existing item for the same (recipient, file)
// to the state of item, releasing any claim on it.
func (p *PostgreSQLOutboxRepository) Replace(ctx context.Context, item *outboxDomain.OutboxItem) error {
	querier := database.GetTx(ctx, p.db)

	attempts, err := marshalAttempts(item.Attempts)
	if err != nil {
		return err
	}

	query := `INSERT INTO outbox_items (tenant_id, ` + itemColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, 0, NULL, $8, $9, $10)
			  ON CONFLICT (tenant_id, drive_id, file_id, recipient) DO UPDATE SET
			  priority = EXCLUDED.priority,
			  attempts = EXCLUDED.attempts,
			  check_out_stamp = NULL,
			  checked_out_at = NULL,
			  next_run_at = EXCLUDED.next_run_at,
			  updated_at = EXCLUDED.updated_at`

	_, err = querier.ExecContext(
		ctx,
		query,
		p.tenantID,
		item.ID,
		item.File.DriveID,
		item.File.FileID,
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
// A missing item is inserted again so a failed delivery is never lost.
func (p *PostgreSQLOutboxRepository) CheckIn(ctx context.Context, item *outboxDomain.OutboxItem) error {
	querier := database.GetTx(ctx, p.db)

	attempts, err := marshalAttempts(item.Attempts)
	if err != nil {
		return err
	}

	query := `INSERT INTO outbox_items (tenant_id, ` + itemColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, $8, NULL, $9, $10, $11)
			  ON CONFLICT (tenant_id, drive_id, file_id, recipient) DO UPDATE SET
			  attempts = EXCLUDED.attempts,
			  check_out_stamp = NULL,
			  checked_out_at = NULL,
			  next_run_at = EXCLUDED.next_run_at,
			  updated_at = EXCLUDED.updated_at`

	_, err = querier.ExecContext(
		ctx,
		query,
		p.tenantID,
		item.ID,
		item.File.DriveID,
		item.File.FileID,
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

// SelectDue locks up to limit unclaimed items due at now, lowest priority value
// first. Must run inside a transaction.
func (p *PostgreSQLOutboxRepository) SelectDue(
	ctx context.Context,
	limit int,
	now time.Time,
) ([]*outboxDomain.OutboxItem, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + itemColumns + ` FROM outbox_items
			  WHERE tenant_id = $1 AND check_out_stamp IS NULL AND next_run_at <= $2
			  ORDER BY priority ASC, next_run_at ASC
			  LIMIT $3
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, p.tenantID, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to select due outbox items")
	}
	return scanItems(rows, false)
}

// SelectFile locks the unclaimed items of file regardless of their next run time.
// Must run inside a transaction.
func (p *PostgreSQLOutboxRepository) SelectFile(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
) ([]*outboxDomain.OutboxItem, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + itemColumns + ` FROM outbox_items
			  WHERE tenant_id = $1 AND drive_id = $2 AND file_id = $3 AND check_out_stamp IS NULL
			  ORDER BY priority ASC
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, p.tenantID, file.DriveID, file.FileID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to select outbox items of file")
	}
	return scanItems(rows, false)
}

// CheckOut marks the given items as claimed by stamp.
func (p *PostgreSQLOutboxRepository) CheckOut(ctx context.Context, ids []uuid.UUID, stamp uuid.UUID, now time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE outbox_items
			  SET check_out_stamp = $1, check_out_count = check_out_count + 1, checked_out_at = $2, updated_at = $2
			  WHERE tenant_id = $3 AND id = $4`

	for _, id := range ids {
		if _, err := querier.ExecContext(ctx, query, stamp, now, p.tenantID, id); err != nil {
			return apperrors.Wrap(err, "failed to check out outbox item")
		}
	}
	return nil
}

// Remove deletes the item for (recipient, file). Removing a missing item is not an error.
func (p *PostgreSQLOutboxRepository) Remove(
	ctx context.Context,
	recipient string,
	file driveDomain.InternalDriveFileID,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM outbox_items WHERE tenant_id = $1 AND drive_id = $2 AND file_id = $3 AND recipient = $4`

	if _, err := querier.ExecContext(ctx, query, p.tenantID, file.DriveID, file.FileID, recipient); err != nil {
		return apperrors.Wrap(err, "failed to remove outbox item")
	}
	return nil
}

// RemoveClaimed deletes the item id only while it is still claimed by stamp and
// reports whether it was deleted.
func (p *PostgreSQLOutboxRepository) RemoveClaimed(ctx context.Context, id, stamp uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM outbox_items WHERE tenant_id = $1 AND id = $2 AND check_out_stamp = $3`

	result, err := querier.ExecContext(ctx, query, p.tenantID, id, stamp)
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
func (p *PostgreSQLOutboxRepository) Get(
	ctx context.Context,
	recipient string,
	file driveDomain.InternalDriveFileID,
) (*outboxDomain.OutboxItem, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + itemColumns + ` FROM outbox_items
			  WHERE tenant_id = $1 AND drive_id = $2 AND file_id = $3 AND recipient = $4`

	rows, err := querier.QueryContext(ctx, query, p.tenantID, file.DriveID, file.FileID, recipient)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get outbox item")
	}
	return firstItem(rows, false)
}

// GetPendingItems lists items in claim order without locking them.
func (p *PostgreSQLOutboxRepository) GetPendingItems(
	ctx context.Context,
	offset, limit int,
) ([]*outboxDomain.OutboxItem, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + itemColumns + ` FROM outbox_items
			  WHERE tenant_id = $1
			  ORDER BY priority ASC, next_run_at ASC
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, p.tenantID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list outbox items")
	}
	return scanItems(rows, false)
}

// RecoverDeadItems releases claims taken before olderThan and returns how many were released.
func (p *PostgreSQLOutboxRepository) RecoverDeadItems(ctx context.Context, olderThan time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE outbox_items SET check_out_stamp = NULL, checked_out_at = NULL
			  WHERE tenant_id = $1 AND check_out_stamp IS NOT NULL AND checked_out_at < $2`

	result, err := querier.ExecContext(ctx, query, p.tenantID, olderThan)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to recover outbox items")
	}
	return result.RowsAffected()
}

// Status counts all and claimed items and reports the earliest next run of an unclaimed item.
func (p *PostgreSQLOutboxRepository) Status(ctx context.Context) (*outboxDomain.OutboxStatus, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COUNT(*), COUNT(check_out_stamp), MIN(CASE WHEN check_out_stamp IS NULL THEN next_run_at END)
			  FROM outbox_items WHERE tenant_id = $1`

	return scanStatus(querier.QueryRowContext(ctx, query, p.tenantID))
}

// NewPostgreSQLOutboxRepository creates a repository bound to tenantID.
func NewPostgreSQLOutboxRepository(db *sql.DB, tenantID string) *PostgreSQLOutboxRepository {
	return &PostgreSQLOutboxRepository{db: db, tenantID: tenantID}
}

func marshalAttempts(attempts []outboxDomain.TransferAttempt) (string, error) {
	if attempts == nil {
		attempts = []outboxDomain.TransferAttempt{}
	}
	data, err := json.Marshal(attempts)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to marshal transfer attempts")
	}
	return string(data), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner, binaryIDs bool) (*outboxDomain.OutboxItem, error) {
	var item outboxDomain.OutboxItem
	var attempts []byte
	var checkedOutAt sql.NullTime
	var stamp database.NullBinaryUUID
	var nullStamp uuid.NullUUID

	dest := []any{&item.ID, &item.File.DriveID, &item.File.FileID, &nullStamp}
	if binaryIDs {
		dest = []any{
			(*database.BinaryUUID)(&item.ID),
			(*database.BinaryUUID)(&item.File.DriveID),
			(*database.BinaryUUID)(&item.File.FileID),
			&stamp,
		}
	}

	err := row.Scan(
		dest[0],
		dest[1],
		dest[2],
		&item.Recipient,
		&item.Priority,
		&attempts,
		dest[3],
		&item.CheckOutCount,
		&checkedOutAt,
		&item.NextRunAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if binaryIDs {
		item.CheckOutStamp = stamp.Ptr()
	} else if nullStamp.Valid {
		id := nullStamp.UUID
		item.CheckOutStamp = &id
	}
	if checkedOutAt.Valid {
		t := checkedOutAt.Time
		item.CheckedOutAt = &t
	}

	item.Attempts = []outboxDomain.TransferAttempt{}
	if len(attempts) > 0 {
		if err := json.Unmarshal(attempts, &item.Attempts); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal transfer attempts")
		}
	}
	return &item, nil
}

// scanItems reads item rows. MySQL stores ids as BINARY(16).
func scanItems(rows *sql.Rows, binaryIDs bool) ([]*outboxDomain.OutboxItem, error) {
	defer func() {
		_ = rows.Close()
	}()

	var items []*outboxDomain.OutboxItem
	for rows.Next() {
		item, err := scanItem(rows, binaryIDs)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan outbox item")
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate outbox items")
	}
	return items, nil
}

func firstItem(rows *sql.Rows, binaryIDs bool) (*outboxDomain.OutboxItem, error) {
	items, err := scanItems(rows, binaryIDs)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, outboxDomain.ErrOutboxItemNotFound
	}
	return items[0], nil
}

func scanStatus(row *sql.Row) (*outboxDomain.OutboxStatus, error) {
	var status outboxDomain.OutboxStatus
	var nextRunAt sql.NullTime

	if err := row.Scan(&status.Total, &status.CheckedOut, &nextRunAt); err != nil {
		return nil, apperrors.Wrap(err, "failed to get outbox status")
	}
	if nextRunAt.Valid {
		t := nextRunAt.Time
		status.NextRunAt = &t
	}
	return &status, nil
}
