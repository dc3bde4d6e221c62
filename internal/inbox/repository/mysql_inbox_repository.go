package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/peertransfer/internal/database"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
)

// MySQLInboxRepository stores the inbox of one tenant.
type MySQLInboxRepository struct {
	db       *sql.DB
	tenantID string
}

// Add inserts item.
func (m *MySQLInboxRepository) Add(ctx context.Context, item *inboxDomain.InboxItem) error {
	querier := database.GetTx(ctx, m.db)

	header, metadata, err := marshalPayload(item)
	if err != nil {
		return err
	}

	query := `INSERT INTO inbox_items (tenant_id, ` + inboxColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		m.tenantID,
		database.BinaryUUID(item.ID),
		item.Sender,
		item.AppID,
		database.BinaryUUID(item.File.DriveID),
		database.BinaryUUID(item.File.FileID),
		database.BinaryUUID(item.TrackerID),
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
func (m *MySQLInboxRepository) GetPendingItems(
	ctx context.Context,
	offset, limit int,
) ([]*inboxDomain.InboxItem, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + inboxColumns + ` FROM inbox_items
			  WHERE tenant_id = ? AND pop_stamp IS NULL
			  ORDER BY priority ASC, created_at ASC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, m.tenantID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list inbox items")
	}
	return scanInboxItems(rows, true)
}

// SelectPending locks up to limit items not yet popped. Must run inside a transaction.
func (m *MySQLInboxRepository) SelectPending(ctx context.Context, limit int) ([]*inboxDomain.InboxItem, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + inboxColumns + ` FROM inbox_items
			  WHERE tenant_id = ? AND pop_stamp IS NULL
			  ORDER BY priority ASC, created_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, m.tenantID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to select inbox items")
	}
	return scanInboxItems(rows, true)
}

// SetPopStamp marks the given items as popped by stamp.
func (m *MySQLInboxRepository) SetPopStamp(
	ctx context.Context,
	ids []uuid.UUID,
	stamp uuid.UUID,
	now time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE inbox_items SET pop_stamp = ?, popped_at = ? WHERE tenant_id = ? AND id = ?`

	for _, id := range ids {
		_, err := querier.ExecContext(
			ctx, query, database.BinaryUUID(stamp), now, m.tenantID, database.BinaryUUID(id),
		)
		if err != nil {
			return apperrors.Wrap(err, "failed to pop inbox item")
		}
	}
	return nil
}

// DeleteByPopStamp removes the items popped by stamp.
func (m *MySQLInboxRepository) DeleteByPopStamp(ctx context.Context, stamp uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM inbox_items WHERE tenant_id = ? AND pop_stamp = ?`

	result, err := querier.ExecContext(ctx, query, m.tenantID, database.BinaryUUID(stamp))
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to complete inbox items")
	}
	return result.RowsAffected()
}

// RecoverPopped returns items popped before olderThan to the pending set.
func (m *MySQLInboxRepository) RecoverPopped(ctx context.Context, olderThan time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE inbox_items SET pop_stamp = NULL, popped_at = NULL
			  WHERE tenant_id = ? AND pop_stamp IS NOT NULL AND popped_at < ?`

	result, err := querier.ExecContext(ctx, query, m.tenantID, olderThan)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to recover inbox items")
	}
	return result.RowsAffected()
}

func (m *MySQLInboxRepository) Status(ctx context.Context) (*inboxDomain.InboxStatus, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT COUNT(*), COUNT(pop_stamp), MIN(created_at) FROM inbox_items WHERE tenant_id = ?`

	return scanInboxStatus(querier.QueryRowContext(ctx, query, m.tenantID))
}

// NewMySQLInboxRepository creates a repository bound to tenantID.
func NewMySQLInboxRepository(db *sql.DB, tenantID string) *MySQLInboxRepository {
	return &MySQLInboxRepository{db: db, tenantID: tenantID}
}
