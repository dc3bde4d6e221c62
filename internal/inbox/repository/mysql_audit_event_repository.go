package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/peertransfer/internal/database"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
)

// MySQLAuditEventRepository stores signed audit events of one tenant.
type MySQLAuditEventRepository struct {
	db       *sql.DB
	tenantID string
}

// Create inserts event.
func (m *MySQLAuditEventRepository) Create(ctx context.Context, event *inboxDomain.AuditEvent) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO audit_events (tenant_id, id, tracker_id, kind, sender, detail, signature, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		m.tenantID,
		database.BinaryUUID(event.ID),
		database.BinaryUUID(event.TrackerID),
		event.Kind,
		event.Sender,
		event.Detail,
		event.Signature,
		event.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit event")
	}
	return nil
}

// ListByTracker returns the events of trackerID oldest first.
func (m *MySQLAuditEventRepository) ListByTracker(
	ctx context.Context,
	trackerID uuid.UUID,
) ([]*inboxDomain.AuditEvent, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, tracker_id, kind, sender, detail, signature, created_at FROM audit_events
			  WHERE tenant_id = ? AND tracker_id = ?
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, m.tenantID, database.BinaryUUID(trackerID))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	return scanAuditEvents(rows, true)
}

// NewMySQLAuditEventRepository creates a repository bound to tenantID.
func NewMySQLAuditEventRepository(db *sql.DB, tenantID string) *MySQLAuditEventRepository {
	return &MySQLAuditEventRepository{db: db, tenantID: tenantID}
}
