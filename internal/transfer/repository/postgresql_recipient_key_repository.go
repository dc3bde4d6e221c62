// Package repository persists recipient key headers and transfer history in
// PostgreSQL and MySQL.
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

// PostgreSQLRecipientKeyRepository stores wrapped key headers of one tenant.
type PostgreSQLRecipientKeyRepository struct {
	db       *sql.DB
	tenantID string
}

// Upsert stores header as the only header for (file, recipient).
func (p *PostgreSQLRecipientKeyRepository) Upsert(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
	header *cryptoDomain.EncryptedRecipientTransferKeyHeader,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO recipient_key_headers
			  (tenant_id, drive_id, file_id, recipient, encryption_version, data, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  ON CONFLICT (tenant_id, drive_id, file_id, recipient) DO UPDATE SET
			  encryption_version = EXCLUDED.encryption_version,
			  data = EXCLUDED.data,
			  created_at = EXCLUDED.created_at`

	_, err := querier.ExecContext(
		ctx,
		query,
		p.tenantID,
		file.DriveID,
		file.FileID,
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
func (p *PostgreSQLRecipientKeyRepository) Get(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
) (*cryptoDomain.EncryptedRecipientTransferKeyHeader, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT encryption_version, data FROM recipient_key_headers
			  WHERE tenant_id = $1 AND drive_id = $2 AND file_id = $3 AND recipient = $4`

	var header cryptoDomain.EncryptedRecipientTransferKeyHeader
	err := querier.QueryRowContext(ctx, query, p.tenantID, file.DriveID, file.FileID, recipient).
		Scan(&header.EncryptionVersion, &header.Data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transferDomain.ErrRecipientKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get recipient key header")
	}
	return &header, nil
}

// Delete drops the header for (file, recipient).
func (p *PostgreSQLRecipientKeyRepository) Delete(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM recipient_key_headers
			  WHERE tenant_id = $1 AND drive_id = $2 AND file_id = $3 AND recipient = $4`

	if _, err := querier.ExecContext(ctx, query, p.tenantID, file.DriveID, file.FileID, recipient); err != nil {
		return apperrors.Wrap(err, "failed to delete recipient key header")
	}
	return nil
}

// NewPostgreSQLRecipientKeyRepository creates a repository bound to tenantID.
func NewPostgreSQLRecipientKeyRepository(db *sql.DB, tenantID string) *PostgreSQLRecipientKeyRepository {
	return &PostgreSQLRecipientKeyRepository{db: db, tenantID: tenantID}
}
