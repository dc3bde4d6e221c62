package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/peertransfer/internal/database"
	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
)

// MySQLTransferHistoryRepository stores the latest transfer status per (file, recipient).
type MySQLTransferHistoryRepository struct {
	db       *sql.DB
	tenantID string
}

// Upsert records entry, keeping the first creation time.
func (m *MySQLTransferHistoryRepository) Upsert(ctx context.Context, entry *transferDomain.TransferHistory) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO transfer_history
			  (tenant_id, drive_id, file_id, recipient, status, failure_reason, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
			  status = VALUES(status),
			  failure_reason = VALUES(failure_reason),
			  updated_at = VALUES(updated_at)`

	_, err := querier.ExecContext(
		ctx,
		query,
		m.tenantID,
		database.BinaryUUID(entry.File.DriveID),
		database.BinaryUUID(entry.File.FileID),
		entry.Recipient,
		entry.Status,
		nullReason(entry.FailureReason),
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to record transfer history")
	}
	return nil
}

// ListByFile returns the status of every recipient of file ordered by recipient.
func (m *MySQLTransferHistoryRepository) ListByFile(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
) ([]*transferDomain.TransferHistory, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT recipient, status, failure_reason, created_at, updated_at FROM transfer_history
			  WHERE tenant_id = ? AND drive_id = ? AND file_id = ?
			  ORDER BY recipient ASC`

	rows, err := querier.QueryContext(
		ctx, query, m.tenantID, database.BinaryUUID(file.DriveID), database.BinaryUUID(file.FileID),
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list transfer history")
	}
	return scanHistory(rows, file)
}

// NewMySQLTransferHistoryRepository creates a repository bound to tenantID.
func NewMySQLTransferHistoryRepository(db *sql.DB, tenantID string) *MySQLTransferHistoryRepository {
	return &MySQLTransferHistoryRepository{db: db, tenantID: tenantID}
}
