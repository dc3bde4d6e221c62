package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/peertransfer/internal/database"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	peerDomain "github.com/allisson/peertransfer/internal/peer/domain"
)

// MySQLConnectionRepository stores peer connections of one tenant.
type MySQLConnectionRepository struct {
	db       *sql.DB
	tenantID string
}

// Upsert creates the connection or replaces its credentials and status.
func (m *MySQLConnectionRepository) Upsert(ctx context.Context, conn *peerDomain.Connection) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO peer_connections (tenant_id, ` + connectionColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
			  status = VALUES(status),
			  inbound_secret_hash = VALUES(inbound_secret_hash),
			  outbound_token = VALUES(outbound_token),
			  outbound_token_nonce = VALUES(outbound_token_nonce),
			  updated_at = VALUES(updated_at)`

	_, err := querier.ExecContext(
		ctx,
		query,
		m.tenantID,
		conn.Identity,
		conn.Status,
		conn.InboundSecretHash,
		conn.OutboundToken,
		conn.OutboundTokenNonce,
		conn.CreatedAt,
		conn.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert peer connection")
	}
	return nil
}

// Get returns the connection with identity.
func (m *MySQLConnectionRepository) Get(ctx context.Context, identity string) (*peerDomain.Connection, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + connectionColumns + ` FROM peer_connections WHERE tenant_id = ? AND identity = ?`

	return scanConnection(querier.QueryRowContext(ctx, query, m.tenantID, identity))
}

// UpdateStatus changes the status of the connection with identity.
func (m *MySQLConnectionRepository) UpdateStatus(
	ctx context.Context,
	identity string,
	status peerDomain.ConnectionStatus,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE peer_connections SET status = ?, updated_at = NOW(6) WHERE tenant_id = ? AND identity = ?`

	result, err := querier.ExecContext(ctx, query, status, m.tenantID, identity)
	if err != nil {
		return apperrors.Wrap(err, "failed to update peer connection status")
	}
	return checkAffected(result)
}

// NewMySQLConnectionRepository creates a repository bound to tenantID.
func NewMySQLConnectionRepository(db *sql.DB, tenantID string) *MySQLConnectionRepository {
	return &MySQLConnectionRepository{db: db, tenantID: tenantID}
}
