package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/peertransfer/internal/database"
	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
)

// PostgreSQLTransferHistoryRepository stores the latest transfer status per (file, recipient).
type PostgreSQLTransferHistoryRepository struct {
	db       *sql.DB
	tenantID string
}

// Upsert records entry, keeping the first creation time.
func (p *PostgreSQLTransferHistoryRepository) Upsert(ctx context.Context, entry *transferDomain.TransferHistory) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO transfer_history
			  (tenant_id, drive_id, file_id, recipient, status, failure_reason, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  ON CONFLICT (tenant_id, drive_id, file_id, recipient) DO UPDATE SET
			  status = EXCLUDED.status,
			  failure_reason = EXCLUDED.failure_reason,
			  updated_at = EXCLUDED.updated_at`

	_, err := querier.ExecContext(
		ctx,
		query,
		p.tenantID,
		entry.File.DriveID,
		entry.File.FileID,
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
func (p *PostgreSQLTransferHistoryRepository) ListByFile(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
) ([]*transferDomain.TransferHistory, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT recipient, status, failure_reason, created_at, updated_at FROM transfer_history
			  WHERE tenant_id = $1 AND drive_id = $2 AND file_id = $3
			  ORDER BY recipient ASC`

	rows, err := querier.QueryContext(ctx, query, p.tenantID, file.DriveID, file.FileID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list transfer history")
	}
	return scanHistory(rows, file)
}

// NewPostgreSQLTransferHistoryRepository creates a repository bound to tenantID.
func NewPostgreSQLTransferHistoryRepository(db *sql.DB, tenantID string) *PostgreSQLTransferHistoryRepository {
	return &PostgreSQLTransferHistoryRepository{db: db, tenantID: tenantID}
}

func nullReason(reason *transferDomain.FailureReason) sql.NullString {
	if reason == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*reason), Valid: true}
}

func scanHistory(rows *sql.Rows, file driveDomain.InternalDriveFileID) ([]*transferDomain.TransferHistory, error) {
	defer func() {
		_ = rows.Close()
	}()

	var entries []*transferDomain.TransferHistory
	for rows.Next() {
		entry := transferDomain.TransferHistory{File: file}
		var reason sql.NullString

		if err := rows.Scan(&entry.Recipient, &entry.Status, &reason, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan transfer history")
		}
		if reason.Valid {
			r := transferDomain.FailureReason(reason.String)
			entry.FailureReason = &r
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate transfer history")
	}
	return entries, nil
}
