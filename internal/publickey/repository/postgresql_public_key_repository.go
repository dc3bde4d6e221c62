// Package repository is the durable cache of transit public keys fetched from peers.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/peertransfer/internal/database"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	publicKeyDomain "github.com/allisson/peertransfer/internal/publickey/domain"
)

const publicKeyColumns = `identity, public_key, crc32, expires_at, created_at`

// PostgreSQLPublicKeyRepository caches transit public keys for one tenant.
type PostgreSQLPublicKeyRepository struct {
	db       *sql.DB
	tenantID string
}

// Upsert stores key, replacing any cached key for the same identity.
func (p *PostgreSQLPublicKeyRepository) Upsert(ctx context.Context, key *publicKeyDomain.TransitPublicKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO transit_public_keys (tenant_id, ` + publicKeyColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (tenant_id, identity) DO UPDATE SET
			  public_key = EXCLUDED.public_key,
			  crc32 = EXCLUDED.crc32,
			  expires_at = EXCLUDED.expires_at,
			  created_at = EXCLUDED.created_at`

	_, err := querier.ExecContext(
		ctx,
		query,
		p.tenantID,
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
func (p *PostgreSQLPublicKeyRepository) Get(
	ctx context.Context,
	identity string,
) (*publicKeyDomain.TransitPublicKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + publicKeyColumns + ` FROM transit_public_keys WHERE tenant_id = $1 AND identity = $2`

	return scanPublicKey(querier.QueryRowContext(ctx, query, p.tenantID, identity))
}

// Delete drops the cached key of identity. Deleting a missing key is not an error.
func (p *PostgreSQLPublicKeyRepository) Delete(ctx context.Context, identity string) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM transit_public_keys WHERE tenant_id = $1 AND identity = $2`

	if _, err := querier.ExecContext(ctx, query, p.tenantID, identity); err != nil {
		return apperrors.Wrap(err, "failed to delete transit public key")
	}
	return nil
}

// NewPostgreSQLPublicKeyRepository creates a repository bound to tenantID.
func NewPostgreSQLPublicKeyRepository(db *sql.DB, tenantID string) *PostgreSQLPublicKeyRepository {
	return &PostgreSQLPublicKeyRepository{db: db, tenantID: tenantID}
}

func scanPublicKey(row *sql.Row) (*publicKeyDomain.TransitPublicKey, error) {
	var key publicKeyDomain.TransitPublicKey
	var crc int64

	err := row.Scan(&key.Identity, &key.PublicKey, &crc, &key.ExpiresAt, &key.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, publicKeyDomain.ErrPublicKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get transit public key")
	}

	key.Crc32 = uint32(crc)
	return &key, nil
}
