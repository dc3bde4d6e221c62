package repository

import (
	"context"
	"database/sql"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	"github.com/allisson/peertransfer/internal/database"
	apperrors "github.com/allisson/peertransfer/internal/errors"
)

// MySQLHostKeyRepository stores host transit keys using BINARY(16) ids and BLOB columns.
type MySQLHostKeyRepository struct {
	db       *sql.DB
	tenantID string
}

// Create inserts a new host transit key.
func (m *MySQLHostKeyRepository) Create(ctx context.Context, key *cryptoDomain.HostTransitKey) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO host_transit_keys (` + hostKeyColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := key.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal host transit key id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		m.tenantID,
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
func (m *MySQLHostKeyRepository) GetLatest(ctx context.Context) (*cryptoDomain.HostTransitKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + hostKeyColumns + ` FROM host_transit_keys
			  WHERE tenant_id = ? ORDER BY created_at DESC LIMIT 1`

	return scanHostKey(querier.QueryRowContext(ctx, query, m.tenantID), true)
}

// GetByCrc32 returns the newest key whose public key has the given checksum.
func (m *MySQLHostKeyRepository) GetByCrc32(ctx context.Context, crc uint32) (*cryptoDomain.HostTransitKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + hostKeyColumns + ` FROM host_transit_keys
			  WHERE tenant_id = ? AND crc32 = ? ORDER BY created_at DESC LIMIT 1`

	return scanHostKey(querier.QueryRowContext(ctx, query, m.tenantID, int64(crc)), true)
}

// NewMySQLHostKeyRepository creates a repository bound to tenantID.
func NewMySQLHostKeyRepository(db *sql.DB, tenantID string) *MySQLHostKeyRepository {
	return &MySQLHostKeyRepository{db: db, tenantID: tenantID}
}
