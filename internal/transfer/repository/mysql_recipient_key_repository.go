package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	"github.com/allisson/peertransfer/internal/database"
	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
)

// MySQLRecipientKeyRepository stores wrapped key headers of one tenant using BINARY(16) ids.
type MySQLRecipientKeyRepository struct {
	db       *sql.DB
	tenantID string
}

// Upsert stores header as the only header for (file, recipient).
func (m *MySQLRecipientKeyRepository) Upsert(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
	header *cryptoDomain.EncryptedRecipientTransferKeyHeader,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO recipient_key_headers
			  (tenant_id, drive_id, file_id, recipient, encryption_version, data, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
			  encryption_version = VALUES(encryption_version),
			  data = VALUES(data),
			  created_at = VALUES(created_at)`

	_, err := querier.ExecContext(
		ctx,
		query,
		m.tenantID,
		database.BinaryUUID(file.DriveID),
		database.BinaryUUID(file.FileID),
		recipient,
		header.EncryptionVersion,
		header.Data,
		time.Now().UTC(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to store recipient key header")
	}
	return nil
}

// Get returns the header stored for (file, recipient).
func (m *MySQLRecipientKeyRepository) Get(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
) (*cryptoDomain.EncryptedRecipientTransferKeyHeader, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT encryption_version, data FROM recipient_key_headers
			  WHERE tenant_id = ? AND drive_id = ? AND file_id = ? AND recipient = ?`

	var header cryptoDomain.EncryptedRecipientTransferKeyHeader
	err := querier.QueryRowContext(
		ctx, query, m.tenantID, database.BinaryUUID(file.DriveID), database.BinaryUUID(file.FileID), recipient,
	).Scan(&header.EncryptionVersion, &header.Data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transferDomain.ErrRecipientKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get recipient key header")
	}
	return &header, nil
}

// Delete drops the header for (file, recipient).
func (m *MySQLRecipientKeyRepository) Delete(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM recipient_key_headers
			  WHERE tenant_id = ? AND drive_id = ? AND file_id = ? AND recipient = ?`

	_, err := querier.ExecContext(
		ctx, query, m.tenantID, database.BinaryUUID(file.DriveID), database.BinaryUUID(file.FileID), recipient,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete recipient key header")
	}
	return nil
}

// NewMySQLRecipientKeyRepository creates a repository bound to tenantID.
func NewMySQLRecipientKeyRepository(db *sql.DB, tenantID string) *MySQLRecipientKeyRepository {
	return &MySQLRecipientKeyRepository{db: db, tenantID: tenantID}
}
