package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/peertransfer/internal/database"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	publicKeyDomain "github.com/allisson/peertransfer/internal/publickey/domain"
)

// MySQLPublicKeyRepository caches transit public keys for one tenant.
type MySQLPublicKeyRepository struct {
	db       *sql.DB
	tenantID string
}

// Upsert stores key, replacing any cached key for the same identity.
func (m *MySQLPublicKeyRepository) Upsert(ctx context.Context, key *publicKeyDomain.TransitPublicKey) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO transit_public_keys (tenant_id, ` + publicKeyColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
			  public_key = VALUES(public_key),
			  crc32 = VALUES(crc32),
			  expires_at = VALUES(expires_at),
			  created_at = VALUES(created_at)`

	_, err := querier.ExecContext(
		ctx,
		query,
		m.tenantID,
		key.Identity,
		key.PublicKey,
		int64(key.Crc32),
		key.ExpiresAt,
		key.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert transit public key")
	}
	return nil
}

// Get returns the cached key of identity.
func (m *MySQLPublicKeyRepository) Get(
	ctx context.Context,
	identity string,
) (*publicKeyDomain.TransitPublicKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + publicKeyColumns + ` FROM transit_public_keys WHERE tenant_id = ? AND identity = ?`

	return scanPublicKey(querier.QueryRowContext(ctx, query, m.tenantID, identity))
}

// Delete drops the cached key of identity.
func (m *MySQLPublicKeyRepository) Delete(ctx context.Context, identity string) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM transit_public_keys WHERE tenant_id = ? AND identity = ?`

	if _, err := querier.ExecContext(ctx, query, m.tenantID, identity); err != nil {
		return apperrors.Wrap(err, "failed to delete transit public key")
	}
	return nil
}

// NewMySQLPublicKeyRepository creates a repository bound to tenantID.
func NewMySQLPublicKeyRepository(db *sql.DB, tenantID string) *MySQLPublicKeyRepository {
	return &MySQLPublicKeyRepository{db: db, tenantID: tenantID}
}
