// Package repository persists inbox items and audit events in PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	"github.com/allisson/peertransfer/internal/database"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
)

const inboxColumns = `id, sender, app_id, drive_id, file_id, tracker_id, instruction_type, transfer_key_header,
			  metadata, priority, pop_stamp, popped_at, created_at`

// PostgreSQLInboxRepository stores the inbox of one tenant.
type PostgreSQLInboxRepository struct {
	db       *sql.DB
	tenantID string
}

// Add inserts item.
func (p *PostgreSQLInboxRepository) Add(ctx context.Context, item *inboxDomain.InboxItem) error {
	querier := database.GetTx(ctx, p.db)

	header, metadata, err := marshalPayload(item)
	if err != nil {
		return err
	}

	query := `INSERT INTO inbox_items (tenant_id, ` + inboxColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULL, NULL, $12)`

	_, err = querier.ExecContext(
		ctx,
		query,
		p.tenantID,
		item.ID,
		item.Sender,
		item.AppID,
		item.File.DriveID,
		item.File.FileID,
		item.TrackerID,
		item.InstructionType,
		header,
		metadata,
		item.Priority,
		item.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to add inbox item")
	}
	return nil
}

// GetPendingItems lists items not yet popped in processing order.
func (p *PostgreSQLInboxRepository) GetPendingItems(
	ctx context.Context,
	offset, limit int,
) ([]*inboxDomain.InboxItem, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + inboxColumns + ` FROM inbox_items
			  WHERE tenant_id = $1 AND pop_stamp IS NULL
			  ORDER BY priority ASC, created_at ASC
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, p.tenantID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list inbox items")
	}
	return scanInboxItems(rows, false)
}

// SelectPending locks up to limit items not yet popped. Must run inside a transaction.
func (p *PostgreSQLInboxRepository) SelectPending(ctx context.Context, limit int) ([]*inboxDomain.InboxItem, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + inboxColumns + ` FROM inbox_items
			  WHERE tenant_id = $1 AND pop_stamp IS NULL
			  ORDER BY priority ASC, created_at ASC
			  LIMIT $2
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, p.tenantID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to select inbox items")
	}
	return scanInboxItems(rows, false)
}

// SetPopStamp marks the given items as popped by stamp.
func (p *PostgreSQLInboxRepository) SetPopStamp(
	ctx context.Context,
	ids []uuid.UUID,
	stamp uuid.UUID,
	now time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE inbox_items SET pop_stamp = $1, popped_at = $2 WHERE tenant_id = $3 AND id = $4`

	for _, id := range ids {
		if _, err := querier.ExecContext(ctx, query, stamp, now, p.tenantID, id); err != nil {
			return apperrors.Wrap(err, "failed to pop inbox item")
		}
	}
	return nil
}

// DeleteByPopStamp removes the items popped by stamp and returns how many were removed.
func (p *PostgreSQLInboxRepository) DeleteByPopStamp(ctx context.Context, stamp uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM inbox_items WHERE tenant_id = $1 AND pop_stamp = $2`

	result, err := querier.ExecContext(ctx, query, p.tenantID, stamp)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to complete inbox items")
	}
	return result.RowsAffected()
}

// RecoverPopped returns items popped before olderThan to the pending set.
func (p *PostgreSQLInboxRepository) RecoverPopped(ctx context.Context, olderThan time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE inbox_items SET pop_stamp = NULL, popped_at = NULL
			  WHERE tenant_id = $1 AND pop_stamp IS NOT NULL AND popped_at < $2`

	result, err := querier.ExecContext(ctx, query, p.tenantID, olderThan)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to recover inbox items")
	}
	return result.RowsAffected()
}

// Status counts all and popped items and reports the oldest item.
func (p *PostgreSQLInboxRepository) Status(ctx context.Context) (*inboxDomain.InboxStatus, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COUNT(*), COUNT(pop_stamp), MIN(created_at) FROM inbox_items WHERE tenant_id = $1`

	return scanInboxStatus(querier.QueryRowContext(ctx, query, p.tenantID))
}

// NewPostgreSQLInboxRepository creates a repository bound to tenantID.
func NewPostgreSQLInboxRepository(db *sql.DB, tenantID string) *PostgreSQLInboxRepository {
	return &PostgreSQLInboxRepository{db: db, tenantID: tenantID}
}

func marshalPayload(item *inboxDomain.InboxItem) (sql.NullString, sql.NullString, error) {
	var header, metadata sql.NullString

	if item.TransferKeyHeader != nil {
		data, err := json.Marshal(item.TransferKeyHeader)
		if err != nil {
			return header, metadata, apperrors.Wrap(err, "failed to marshal transfer key header")
		}
		header = sql.NullString{String: string(data), Valid: true}
	}
	if len(item.Metadata) > 0 {
		metadata = sql.NullString{String: string(item.Metadata), Valid: true}
	}
	return header, metadata, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInboxItem(row rowScanner, binaryIDs bool) (*inboxDomain.InboxItem, error) {
	var item inboxDomain.InboxItem
	var header, metadata []byte
	var poppedAt sql.NullTime
	var stamp database.NullBinaryUUID
	var nullStamp uuid.NullUUID

	dest := []any{&item.ID, &item.File.DriveID, &item.File.FileID, &item.TrackerID, &nullStamp}
	if binaryIDs {
		dest = []any{
			(*database.BinaryUUID)(&item.ID),
			(*database.BinaryUUID)(&item.File.DriveID),
			(*database.BinaryUUID)(&item.File.FileID),
			(*database.BinaryUUID)(&item.TrackerID),
			&stamp,
		}
	}

	err := row.Scan(
		dest[0],
		&item.Sender,
		&item.AppID,
		dest[1],
		dest[2],
		dest[3],
		&item.InstructionType,
		&header,
		&metadata,
		&item.Priority,
		dest[4],
		&poppedAt,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if binaryIDs {
		item.PopStamp = stamp.Ptr()
	} else if nullStamp.Valid {
		id := nullStamp.UUID
		item.PopStamp = &id
	}
	if poppedAt.Valid {
		t := poppedAt.Time
		item.PoppedAt = &t
	}
	if len(header) > 0 {
		item.TransferKeyHeader = &cryptoDomain.EncryptedRecipientTransferKeyHeader{}
		if err := json.Unmarshal(header, item.TransferKeyHeader); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal transfer key header")
		}
	}
	if len(metadata) > 0 {
		item.Metadata = json.RawMessage(metadata)
	}
	return &item, nil
}

// scanInboxItems reads item rows. MySQL stores ids as BINARY(16).
func scanInboxItems(rows *sql.Rows, binaryIDs bool) ([]*inboxDomain.InboxItem, error) {
	defer func() {
		_ = rows.Close()
	}()

	var items []*inboxDomain.InboxItem
	for rows.Next() {
		item, err := scanInboxItem(rows, binaryIDs)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan inbox item")
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate inbox items")
	}
	return items, nil
}

func scanInboxStatus(row *sql.Row) (*inboxDomain.InboxStatus, error) {
	var status inboxDomain.InboxStatus
	var oldest sql.NullTime

	if err := row.Scan(&status.Total, &status.Popped, &oldest); err != nil {
		return nil, apperrors.Wrap(err, "failed to get inbox status")
	}
	if oldest.Valid {
		t := oldest.Time
		status.OldestCreatedAt = &t
	}
	return &status, nil
}
