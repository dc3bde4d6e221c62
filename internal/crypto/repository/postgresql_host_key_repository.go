// Package repository persists the host transit key pairs in PostgreSQL and MySQL.
//
// Every repository is bound to one tenant (the host identity) and supports
// transactional operations through database.GetTx.
package repository

import (
	"context"
	"database/sql"
	"errors"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	"github.com/allisson/peertransfer/internal/database"
	apperrors "github.com/allisson/peertransfer/internal/errors"
)

const hostKeyColumns = `id, tenant_id, public_key, crc32, encrypted_private_key, nonce, algorithm, created_at`

// PostgreSQLHostKeyRepository stores host transit keys using native UUID and BYTEA columns.
type PostgreSQLHostKeyRepository struct {
	db       *sql.DB
	tenantID string
}

// Create inserts a new host transit key.
func (p *PostgreSQLHostKeyRepository) Create(ctx context.Context, key *cryptoDomain.HostTransitKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO host_transit_keys (` + hostKeyColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		key.ID,
		p.tenantID,
		key.PublicKey,
		int64(key.Crc32),
		key.EncryptedPrivateKey,
		key.Nonce,
		key.Algorithm,
		key.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create host transit key")
	}
	return nil
}

// GetLatest returns the most recently created key, which is the active one.
func (p *PostgreSQLHostKeyRepository) GetLatest(ctx context.Context) (*cryptoDomain.HostTransitKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + hostKeyColumns + ` FROM host_transit_keys
			  WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT 1`

	return scanHostKey(querier.QueryRowContext(ctx, query, p.tenantID), false)
}

// GetByCrc32 returns the newest key whose public key has the given checksum.
func (p *PostgreSQLHostKeyRepository) GetByCrc32(
	ctx context.Context,
	crc uint32,
) (*cryptoDomain.HostTransitKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + hostKeyColumns + ` FROM host_transit_keys
			  WHERE tenant_id = $1 AND crc32 = $2 ORDER BY created_at DESC LIMIT 1`

	return scanHostKey(querier.QueryRowContext(ctx, query, p.tenantID, int64(crc)), false)
}

// NewPostgreSQLHostKeyRepository creates a repository bound to tenantID.
func NewPostgreSQLHostKeyRepository(db *sql.DB, tenantID string) *PostgreSQLHostKeyRepository {
	return &PostgreSQLHostKeyRepository{db: db, tenantID: tenantID}
}

// scanHostKey scans one row. MySQL stores the id as BINARY(16).
func scanHostKey(row *sql.Row, binaryID bool) (*cryptoDomain.HostTransitKey, error) {
	var key cryptoDomain.HostTransitKey
	var crc int64
	var rawID []byte
	idDest := any(&key.ID)
	if binaryID {
		idDest = &rawID
	}

	err := row.Scan(
		idDest,
		&key.TenantID,
		&key.PublicKey,
		&crc,
		&key.EncryptedPrivateKey,
		&key.Nonce,
		&key.Algorithm,
		&key.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cryptoDomain.ErrHostKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get host transit key")
	}

	if binaryID {
		if err := key.ID.UnmarshalBinary(rawID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal host transit key id")
		}
	}
	key.Crc32 = uint32(crc)
	return &key, nil
}
