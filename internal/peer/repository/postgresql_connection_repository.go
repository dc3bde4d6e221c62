// Package repository persists peer connections in PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/peertransfer/internal/database"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	peerDomain "github.com/allisson/peertransfer/internal/peer/domain"
)

const connectionColumns = `identity, status, inbound_secret_hash, outbound_token, outbound_token_nonce, created_at, updated_at`

// PostgreSQLConnectionRepository stores peer connections of one tenant.
type PostgreSQLConnectionRepository struct {
	db       *sql.DB
	tenantID string
}

// Upsert creates the connection or replaces its credentials and status.
func (p *PostgreSQLConnectionRepository) Upsert(ctx context.Context, conn *peerDomain.Connection) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO peer_connections (tenant_id, ` + connectionColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  ON CONFLICT (tenant_id, identity) DO UPDATE SET
			  status = EXCLUDED.status,
			  inbound_secret_hash = EXCLUDED.inbound_secret_hash,
			  outbound_token = EXCLUDED.outbound_token,
			  outbound_token_nonce = EXCLUDED.outbound_token_nonce,
			  updated_at = EXCLUDED.updated_at`

	_, err := querier.ExecContext(
		ctx,
		query,
		p.tenantID,
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
func (p *PostgreSQLConnectionRepository) Get(ctx context.Context, identity string) (*peerDomain.Connection, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + connectionColumns + ` FROM peer_connections WHERE tenant_id = $1 AND identity = $2`

	return scanConnection(querier.QueryRowContext(ctx, query, p.tenantID, identity))
}

// UpdateStatus changes the status of the connection with identity.
func (p *PostgreSQLConnectionRepository) UpdateStatus(
	ctx context.Context,
	identity string,
	status peerDomain.ConnectionStatus,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE peer_connections SET status = $1, updated_at = NOW() WHERE tenant_id = $2 AND identity = $3`

	result, err := querier.ExecContext(ctx, query, status, p.tenantID, identity)
	if err != nil {
		return apperrors.Wrap(err, "failed to update peer connection status")
	}
	return checkAffected(result)
}

// NewPostgreSQLConnectionRepository creates a repository bound to tenantID.
func NewPostgreSQLConnectionRepository(db *sql.DB, tenantID string) *PostgreSQLConnectionRepository {
	return &PostgreSQLConnectionRepository{db: db, tenantID: tenantID}
}

func scanConnection(row *sql.Row) (*peerDomain.Connection, error) {
	var conn peerDomain.Connection
	err := row.Scan(
		&conn.Identity,
		&conn.Status,
		&conn.InboundSecretHash,
		&conn.OutboundToken,
		&conn.OutboundTokenNonce,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, peerDomain.ErrConnectionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get peer connection")
	}
	return &conn, nil
}

func checkAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return peerDomain.ErrConnectionNotFound
	}
	return nil
}
