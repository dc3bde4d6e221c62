package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/peertransfer/internal/database"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
)

// PostgreSQLAuditEventRepository stores signed audit events of one tenant.
type PostgreSQLAuditEventRepository struct {
	db       *sql.DB
	tenantID string
}

// Create inserts event.
func (p *PostgreSQLAuditEventRepository) Create(ctx context.Context, event *inboxDomain.AuditEvent) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO audit_events (tenant_id, id, tracker_id, kind, sender, detail, signature, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		p.tenantID,
		event.ID,
		event.TrackerID,
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
func (p *PostgreSQLAuditEventRepository) ListByTracker(
	ctx context.Context,
	trackerID uuid.UUID,
) ([]*inboxDomain.AuditEvent, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, tracker_id, kind, sender, detail, signature, created_at FROM audit_events
			  WHERE tenant_id = $1 AND tracker_id = $2
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, p.tenantID, trackerID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	return scanAuditEvents(rows, false)
}

// NewPostgreSQLAuditEventRepository creates a repository bound to tenantID.
func NewPostgreSQLAuditEventRepository(db *sql.DB, tenantID string) *PostgreSQLAuditEventRepository {
	return &PostgreSQLAuditEventRepository{db: db, tenantID: tenantID}
}

func scanAuditEvents(rows *sql.Rows, binaryIDs bool) ([]*inboxDomain.AuditEvent, error) {
	defer func() {
		_ = rows.Close()
	}()

	var events []*inboxDomain.AuditEvent
	for rows.Next() {
		var event inboxDomain.AuditEvent

		id, trackerID := any(&event.ID), any(&event.TrackerID)
		if binaryIDs {
			id, trackerID = (*database.BinaryUUID)(&event.ID), (*database.BinaryUUID)(&event.TrackerID)
		}

		err := rows.Scan(
			id,
			trackerID,
			&event.Kind,
			&event.Sender,
			&event.Detail,
			&event.Signature,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit event")
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit events")
	}
	return events, nil
}
