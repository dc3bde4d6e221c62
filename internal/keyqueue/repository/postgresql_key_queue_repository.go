// Package repository persists the key-encryption retry queue in PostgreSQL and MySQL.
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

const itemColumns = `id, app_id, drive_id, file_id, recipient, attempts, first_added_ms, last_attempt_ms,
			  next_attempt_ms, status`

// PostgreSQLKeyQueueRepository stores queue items of one tenant.
type PostgreSQLKeyQueueRepository struct {
	db       *sql.DB
	tenantID string
}

// Enqueue inserts item. An existing pending item for the same (file, recipient) is
// kept as is; an undeliverable one is revived with the values of item.
func (p *PostgreSQLKeyQueueRepository) Enqueue(ctx context.Context, item *keyQueueDomain.KeyEncryptionQueueItem) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO key_encryption_queue (tenant_id, ` + itemColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			  ON CONFLICT (tenant_id, drive_id, file_id, recipient) DO UPDATE SET
			  attempts = EXCLUDED.attempts,
			  first_added_ms = EXCLUDED.first_added_ms,
			  last_attempt_ms = EXCLUDED.last_attempt_ms,
			  next_attempt_ms = EXCLUDED.next_attempt_ms,
			  status = EXCLUDED.status
			  WHERE key_encryption_queue.status = $12`

	_, err := querier.ExecContext(
		ctx,
		query,
		p.tenantID,
		item.ID,
		item.AppID,
		item.File.DriveID,
		item.File.FileID,
		item.Recipient,
		item.Attempts,
		item.FirstAddedTimestampMs,
		item.LastAttemptTimestampMs,
		item.NextAttemptTimestampMs,
		item.Status,
		keyQueueDomain.StatusUndeliverable,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to enqueue key encryption item")
	}
	return nil
}

// RecordAttempt stores the attempt count and schedule of item.
func (p *PostgreSQLKeyQueueRepository) RecordAttempt(
	ctx context.Context,
	item *keyQueueDomain.KeyEncryptionQueueItem,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE key_encryption_queue SET attempts = $1, last_attempt_ms = $2, next_attempt_ms = $3
			  WHERE tenant_id = $4 AND id = $5`

	_, err := querier.ExecContext(
		ctx,
		query,
		item.Attempts,
		item.LastAttemptTimestampMs,
		item.NextAttemptTimestampMs,
		p.tenantID,
		item.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to record key encryption attempt")
	}
	return nil
}

// DrainDue locks up to limit pending items whose next attempt is at or before nowMs,
// oldest first. Must run inside a transaction; locked rows are skipped by other workers.
func (p *PostgreSQLKeyQueueRepository) DrainDue(
	ctx context.Context,
	limit int,
	nowMs int64,
) ([]*keyQueueDomain.KeyEncryptionQueueItem, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + itemColumns + ` FROM key_encryption_queue
			  WHERE tenant_id = $1 AND status = $2 AND next_attempt_ms <= $3
			  ORDER BY first_added_ms ASC
			  LIMIT $4
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, p.tenantID, keyQueueDomain.StatusPending, nowMs, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to drain key encryption queue")
	}
	return scanItems(rows, false)
}

// Touch pushes the next attempt of the given items to leaseUntilMs, leasing them
// to the caller until then.
func (p *PostgreSQLKeyQueueRepository) Touch(ctx context.Context, ids []uuid.UUID, leaseUntilMs int64) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE key_encryption_queue SET next_attempt_ms = $1 WHERE tenant_id = $2 AND id = $3`

	for _, id := range ids {
		if _, err := querier.ExecContext(ctx, query, leaseUntilMs, p.tenantID, id); err != nil {
			return apperrors.Wrap(err, "failed to touch key encryption item")
		}
	}
	return nil
}

// Remove deletes the item for (file, recipient). Removing a missing item is not an error.
func (p *PostgreSQLKeyQueueRepository) Remove(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM key_encryption_queue
			  WHERE tenant_id = $1 AND drive_id = $2 AND file_id = $3 AND recipient = $4`

	if _, err := querier.ExecContext(ctx, query, p.tenantID, file.DriveID, file.FileID, recipient); err != nil {
		return apperrors.Wrap(err, "failed to remove key encryption item")
	}
	return nil
}

// MarkUndeliverable moves the item for (file, recipient) out of the pending set.
func (p *PostgreSQLKeyQueueRepository) MarkUndeliverable(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE key_encryption_queue SET status = $1
			  WHERE tenant_id = $2 AND drive_id = $3 AND file_id = $4 AND recipient = $5`

	_, err := querier.ExecContext(
		ctx, query, keyQueueDomain.StatusUndeliverable, p.tenantID, file.DriveID, file.FileID, recipient,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark key encryption item undeliverable")
	}
	return nil
}

// GetPendingItems returns pending items oldest first without locking them.
func (p *PostgreSQLKeyQueueRepository) GetPendingItems(
	ctx context.Context,
	offset, limit int,
) ([]*keyQueueDomain.KeyEncryptionQueueItem, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + itemColumns + ` FROM key_encryption_queue
			  WHERE tenant_id = $1 AND status = $2
			  ORDER BY first_added_ms ASC
			  LIMIT $3 OFFSET $4`

	rows, err := querier.QueryContext(ctx, query, p.tenantID, keyQueueDomain.StatusPending, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list key encryption items")
	}
	return scanItems(rows, false)
}

// Status counts items per status.
func (p *PostgreSQLKeyQueueRepository) Status(ctx context.Context) (*keyQueueDomain.QueueStatus, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT status, COUNT(*) FROM key_encryption_queue WHERE tenant_id = $1 GROUP BY status`

	rows, err := querier.QueryContext(ctx, query, p.tenantID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get key encryption queue status")
	}
	return scanStatus(rows)
}

// NewPostgreSQLKeyQueueRepository creates a repository bound to tenantID.
func NewPostgreSQLKeyQueueRepository(db *sql.DB, tenantID string) *PostgreSQLKeyQueueRepository {
	return &PostgreSQLKeyQueueRepository{db: db, tenantID: tenantID}
}

// scanItems reads item rows. MySQL stores ids as BINARY(16).
func scanItems(rows *sql.Rows, binaryIDs bool) ([]*keyQueueDomain.KeyEncryptionQueueItem, error) {
	defer func() {
		_ = rows.Close()
	}()

	var items []*keyQueueDomain.KeyEncryptionQueueItem
	for rows.Next() {
		var item keyQueueDomain.KeyEncryptionQueueItem
		ids := []any{&item.ID, &item.File.DriveID, &item.File.FileID}
		if binaryIDs {
			ids = []any{
				(*database.BinaryUUID)(&item.ID),
				(*database.BinaryUUID)(&item.File.DriveID),
				(*database.BinaryUUID)(&item.File.FileID),
			}
		}

		err := rows.Scan(
			ids[0],
			&item.AppID,
			ids[1],
			ids[2],
			&item.Recipient,
			&item.Attempts,
			&item.FirstAddedTimestampMs,
			&item.LastAttemptTimestampMs,
			&item.NextAttemptTimestampMs,
			&item.Status,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan key encryption item")
		}
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate key encryption items")
	}
	return items, nil
}

func scanStatus(rows *sql.Rows) (*keyQueueDomain.QueueStatus, error) {
	defer func() {
		_ = rows.Close()
	}()

	var status keyQueueDomain.QueueStatus
	for rows.Next() {
		var name keyQueueDomain.Status
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan key encryption queue status")
		}
		switch name {
		case keyQueueDomain.StatusPending:
			status.Pending = count
		case keyQueueDomain.StatusUndeliverable:
			status.Undeliverable = count
		}
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate key encryption queue status")
	}
	return &status, nil
}
