package repository

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	"github.com/allisson/peertransfer/internal/database"
	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
	"github.com/allisson/peertransfer/internal/testutil"
)

const (
	tenant = "frodo.dotyou.cloud"
	sender = "sam.dotyou.cloud"
)

var inboxColumnNames = []string{
	"id", "sender", "app_id", "drive_id", "file_id", "tracker_id", "instruction_type", "transfer_key_header",
	"metadata", "priority", "pop_stamp", "popped_at", "created_at",
}

func newInboxItem() *inboxDomain.InboxItem {
	transfer := &inboxDomain.IncomingTransfer{
		Sender:            sender,
		AppID:             "drive",
		File:              driveDomain.InternalDriveFileID{DriveID: uuid.New(), FileID: uuid.New()},
		TransferKeyHeader: &cryptoDomain.EncryptedRecipientTransferKeyHeader{EncryptionVersion: 1, Data: []byte("k")},
		Metadata:          json.RawMessage(`{"contentType":"text/plain"}`),
	}
	return inboxDomain.NewInboxItem(uuid.New(), transfer, time.Now().UTC())
}

func TestPostgreSQLInboxRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Add", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLInboxRepository(db, tenant)
		item := newInboxItem()

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO inbox_items")).
			WithArgs(tenant, item.ID, sender, "drive", item.File.DriveID, item.File.FileID, item.TrackerID,
				item.InstructionType, `{"encryptionVersion":1,"data":"aw=="}`, `{"contentType":"text/plain"}`,
				inboxDomain.DefaultPriority, item.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Add(ctx, item))
	})

	t.Run("Add_WithoutPayload", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLInboxRepository(db, tenant)
		item := newInboxItem()
		item.TransferKeyHeader = nil
		item.Metadata = nil

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO inbox_items")).
			WithArgs(tenant, item.ID, sender, "drive", item.File.DriveID, item.File.FileID, item.TrackerID,
				item.InstructionType, nil, nil, inboxDomain.DefaultPriority, item.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Add(ctx, item))
	})

	t.Run("SelectPending", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLInboxRepository(db, tenant)
		item := newInboxItem()

		rows := sqlmock.NewRows(inboxColumnNames).
			AddRow(item.ID.String(), sender, "drive", item.File.DriveID.String(), item.File.FileID.String(),
				item.TrackerID.String(), "transfer", []byte(`{"encryptionVersion":1,"data":"aw=="}`),
				[]byte(`{"contentType":"text/plain"}`), 100, nil, nil, item.CreatedAt)

		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY priority ASC, created_at ASC")+".*"+
			regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
			WithArgs(tenant, 10).
			WillReturnRows(rows)

		items, err := repo.SelectPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, items, 1)
		got := items[0]
		assert.Equal(t, item.ID, got.ID)
		assert.Equal(t, item.File, got.File)
		assert.Equal(t, item.TrackerID, got.TrackerID)
		assert.Equal(t, inboxDomain.InstructionTransfer, got.InstructionType)
		require.NotNil(t, got.TransferKeyHeader)
		assert.Equal(t, []byte("k"), got.TransferKeyHeader.Data)
		assert.JSONEq(t, `{"contentType":"text/plain"}`, string(got.Metadata))
		assert.Nil(t, got.PopStamp)
		assert.Nil(t, got.PoppedAt)
	})

	t.Run("GetPendingItems", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLInboxRepository(db, tenant)

		mock.ExpectQuery(regexp.QuoteMeta("WHERE tenant_id = $1 AND pop_stamp IS NULL")).
			WithArgs(tenant, 50, 0).
			WillReturnRows(sqlmock.NewRows(inboxColumnNames))

		items, err := repo.GetPendingItems(ctx, 0, 50)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("SetPopStamp", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLInboxRepository(db, tenant)
		ids := []uuid.UUID{uuid.New(), uuid.New()}
		stamp := uuid.New()
		now := time.Now().UTC()

		for _, id := range ids {
			mock.ExpectExec(regexp.QuoteMeta("UPDATE inbox_items SET pop_stamp = $1")).
				WithArgs(stamp, now, tenant, id).
				WillReturnResult(sqlmock.NewResult(0, 1))
		}

		require.NoError(t, repo.SetPopStamp(ctx, ids, stamp, now))
	})

	t.Run("DeleteByPopStamp", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLInboxRepository(db, tenant)
		stamp := uuid.New()

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM inbox_items WHERE tenant_id = $1 AND pop_stamp = $2")).
			WithArgs(tenant, stamp).
			WillReturnResult(sqlmock.NewResult(0, 3))

		n, err := repo.DeleteByPopStamp(ctx, stamp)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("RecoverPopped", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLInboxRepository(db, tenant)
		olderThan := time.Now().UTC()

		mock.ExpectExec(regexp.QuoteMeta("SET pop_stamp = NULL, popped_at = NULL")).
			WithArgs(tenant, olderThan).
			WillReturnResult(sqlmock.NewResult(0, 2))

		n, err := repo.RecoverPopped(ctx, olderThan)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("Status", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLInboxRepository(db, tenant)
		oldest := time.Now().UTC()

		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*), COUNT(pop_stamp), MIN(created_at)")).
			WithArgs(tenant).
			WillReturnRows(sqlmock.NewRows([]string{"count", "popped", "min"}).AddRow(4, 1, oldest))

		status, err := repo.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), status.Total)
		assert.Equal(t, int64(1), status.Popped)
		require.NotNil(t, status.OldestCreatedAt)
		assert.Equal(t, oldest, *status.OldestCreatedAt)
	})
}

func TestMySQLInboxRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Add", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewMySQLInboxRepository(db, tenant)
		item := newInboxItem()

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO inbox_items")).
			WithArgs(tenant, database.BinaryUUID(item.ID), sender, "drive", database.BinaryUUID(item.File.DriveID),
				database.BinaryUUID(item.File.FileID), database.BinaryUUID(item.TrackerID), item.InstructionType,
				`{"encryptionVersion":1,"data":"aw=="}`, `{"contentType":"text/plain"}`,
				inboxDomain.DefaultPriority, item.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Add(ctx, item))
	})

	t.Run("SelectPending_BinaryIDs", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewMySQLInboxRepository(db, tenant)
		item := newInboxItem()
		stamp := uuid.New()
		poppedAt := time.Now().UTC()

		rows := sqlmock.NewRows(inboxColumnNames).
			AddRow(item.ID[:], sender, "drive", item.File.DriveID[:], item.File.FileID[:], item.TrackerID[:],
				"delete_linked_file", nil, nil, 100, stamp[:], poppedAt, item.CreatedAt)

		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
			WithArgs(tenant, 5).
			WillReturnRows(rows)

		items, err := repo.SelectPending(ctx, 5)
		require.NoError(t, err)
		require.Len(t, items, 1)
		got := items[0]
		assert.Equal(t, item.ID, got.ID)
		assert.Equal(t, item.File, got.File)
		assert.Equal(t, inboxDomain.InstructionDeleteLinkedFile, got.InstructionType)
		assert.Nil(t, got.TransferKeyHeader)
		assert.Nil(t, got.Metadata)
		require.NotNil(t, got.PopStamp)
		assert.Equal(t, stamp, *got.PopStamp)
		require.NotNil(t, got.PoppedAt)
	})

	t.Run("DeleteByPopStamp", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewMySQLInboxRepository(db, tenant)
		stamp := uuid.New()

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM inbox_items WHERE tenant_id = ? AND pop_stamp = ?")).
			WithArgs(tenant, database.BinaryUUID(stamp)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		n, err := repo.DeleteByPopStamp(ctx, stamp)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestAuditEventRepositories(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	event := &inboxDomain.AuditEvent{
		ID:        uuid.New(),
		TrackerID: uuid.New(),
		Kind:      inboxDomain.AuditRejected,
		Sender:    sender,
		Detail:    "sender is not connected",
		Signature: []byte("signature"),
		CreatedAt: now,
	}
	columns := []string{"id", "tracker_id", "kind", "sender", "detail", "signature", "created_at"}

	t.Run("PostgreSQL_Create", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLAuditEventRepository(db, tenant)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).
			WithArgs(tenant, event.ID, event.TrackerID, event.Kind, sender, event.Detail, event.Signature, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(ctx, event))
	})

	t.Run("PostgreSQL_ListByTracker", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLAuditEventRepository(db, tenant)

		mock.ExpectQuery(regexp.QuoteMeta("FROM audit_events")).
			WithArgs(tenant, event.TrackerID).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(event.ID.String(), event.TrackerID.String(),
				"rejected", sender, event.Detail, event.Signature, now))

		events, err := repo.ListByTracker(ctx, event.TrackerID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, *event, *events[0])
	})

	t.Run("MySQL_Create", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewMySQLAuditEventRepository(db, tenant)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).
			WithArgs(tenant, database.BinaryUUID(event.ID), database.BinaryUUID(event.TrackerID), event.Kind,
				sender, event.Detail, event.Signature, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(ctx, event))
	})

	t.Run("MySQL_ListByTracker", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewMySQLAuditEventRepository(db, tenant)

		mock.ExpectQuery(regexp.QuoteMeta("WHERE tenant_id = ? AND tracker_id = ?")).
			WithArgs(tenant, database.BinaryUUID(event.TrackerID)).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(event.ID[:], event.TrackerID[:],
				"rejected", sender, event.Detail, event.Signature, now))

		events, err := repo.ListByTracker(ctx, event.TrackerID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, event.ID, events[0].ID)
		assert.Equal(t, event.TrackerID, events[0].TrackerID)
	})
}
