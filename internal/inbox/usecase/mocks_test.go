package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	driveService "github.com/allisson/peertransfer/internal/drive/service"
	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
	"github.com/allisson/peertransfer/internal/metrics"
	"github.com/allisson/peertransfer/internal/multipart"
)

const (
	tenant = "frodo.dotyou.cloud"
	sender = "sam.dotyou.cloud"
)

type mockInboxRepository struct {
	mock.Mock
}

func (m *mockInboxRepository) Add(ctx context.Context, item *inboxDomain.InboxItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *mockInboxRepository) GetPendingItems(
	ctx context.Context,
	offset, limit int,
) ([]*inboxDomain.InboxItem, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*inboxDomain.InboxItem), args.Error(1)
}

func (m *mockInboxRepository) SelectPending(ctx context.Context, limit int) ([]*inboxDomain.InboxItem, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*inboxDomain.InboxItem), args.Error(1)
}

func (m *mockInboxRepository) SetPopStamp(
	ctx context.Context,
	ids []uuid.UUID,
	stamp uuid.UUID,
	now time.Time,
) error {
	return m.Called(ctx, ids, stamp, now).Error(0)
}

func (m *mockInboxRepository) DeleteByPopStamp(ctx context.Context, stamp uuid.UUID) (int64, error) {
	args := m.Called(ctx, stamp)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInboxRepository) RecoverPopped(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInboxRepository) Status(ctx context.Context) (*inboxDomain.InboxStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inboxDomain.InboxStatus), args.Error(1)
}

type mockAuditEventRepository struct {
	mock.Mock
}

func (m *mockAuditEventRepository) Create(ctx context.Context, event *inboxDomain.AuditEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockAuditEventRepository) ListByTracker(
	ctx context.Context,
	trackerID uuid.UUID,
) ([]*inboxDomain.AuditEvent, error) {
	args := m.Called(ctx, trackerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*inboxDomain.AuditEvent), args.Error(1)
}

type mockAuditWriter struct {
	mock.Mock
}

func (m *mockAuditWriter) WriteEvent(
	ctx context.Context,
	trackerID uuid.UUID,
	kind inboxDomain.AuditKind,
	sender, detail string,
) error {
	return m.Called(ctx, trackerID, kind, sender, detail).Error(0)
}

func (m *mockAuditWriter) ListEvents(ctx context.Context, trackerID uuid.UUID) ([]*inboxDomain.AuditEvent, error) {
	args := m.Called(ctx, trackerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*inboxDomain.AuditEvent), args.Error(1)
}

type mockInboxUseCase struct {
	mock.Mock
}

func (m *mockInboxUseCase) Add(ctx context.Context, item *inboxDomain.InboxItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *mockInboxUseCase) GetPendingItems(
	ctx context.Context,
	offset, limit int,
) ([]*inboxDomain.InboxItem, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]*inboxDomain.InboxItem), args.Error(1)
}

func (m *mockInboxUseCase) PopItems(ctx context.Context, limit int) (uuid.UUID, []*inboxDomain.InboxItem, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).(uuid.UUID), args.Get(1).([]*inboxDomain.InboxItem), args.Error(2)
}

func (m *mockInboxUseCase) MarkComplete(ctx context.Context, stamp uuid.UUID) (int64, error) {
	args := m.Called(ctx, stamp)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInboxUseCase) RecoverPopped(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInboxUseCase) Status(ctx context.Context) (*inboxDomain.InboxStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(*inboxDomain.InboxStatus), args.Error(1)
}

type mockAcceptor struct {
	mock.Mock
}

func (m *mockAcceptor) AcceptTransfer(
	ctx context.Context,
	trackerID uuid.UUID,
	transfer *inboxDomain.IncomingTransfer,
) error {
	return m.Called(ctx, trackerID, transfer).Error(0)
}

func (m *mockAcceptor) QuarantineTransfer(
	ctx context.Context,
	trackerID uuid.UUID,
	transfer *inboxDomain.IncomingTransfer,
) error {
	return m.Called(ctx, trackerID, transfer).Error(0)
}

type mockConnectionChecker struct {
	mock.Mock
}

func (m *mockConnectionChecker) IsActive(ctx context.Context, identity string) (bool, error) {
	args := m.Called(ctx, identity)
	return args.Bool(0), args.Error(1)
}

type mockKeyUnwrapper struct {
	mock.Mock
}

func (m *mockKeyUnwrapper) UnwrapTransferKeyHeader(
	ctx context.Context,
	header *cryptoDomain.EncryptedRecipientTransferKeyHeader,
) (*cryptoDomain.KeyHeader, error) {
	args := m.Called(ctx, header)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.KeyHeader), args.Error(1)
}

type mockBusinessMetrics struct {
	mock.Mock
}

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

type staticSigningKey []byte

func (k staticSigningKey) AuditSigningKey() ([]byte, error) {
	return append([]byte(nil), k...), nil
}

func newSigningKey() staticSigningKey {
	return staticSigningKey(bytes.Repeat([]byte{7}, 32))
}

func newTestStorage(t *testing.T) *driveService.Storage {
	t.Helper()
	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { _ = bucket.Close() })
	return driveService.NewStorage(bucket)
}

var testHeader = &cryptoDomain.EncryptedRecipientTransferKeyHeader{EncryptionVersion: 1, Data: []byte("wrapped")}

// stageTransfer assembles a complete peer transfer with the given thumbnail keys.
func stageTransfer(t *testing.T, payload string, thumbnailKeys ...string) *multipart.Unit {
	t.Helper()
	ctx := context.Background()
	assembler := multipart.NewAssembler(t.TempDir())

	id, err := assembler.Create(multipart.KindPeerTransfer)
	require.NoError(t, err)

	header, err := json.Marshal(testHeader)
	require.NoError(t, err)

	_, err = assembler.AddPart(ctx, id, multipart.PartHeader, bytes.NewReader(header))
	require.NoError(t, err)
	_, err = assembler.AddPart(ctx, id, multipart.PartMetadata,
		bytes.NewReader([]byte(`{"contentType":"text/plain","appData":{"tag":"a"}}`)))
	require.NoError(t, err)
	for _, key := range thumbnailKeys {
		require.NoError(t, assembler.AddThumbnail(ctx, id, key, "image/png", bytes.NewReader([]byte("png"))))
	}
	complete, err := assembler.AddPart(ctx, id, multipart.PartPayload, bytes.NewReader([]byte(payload)))
	require.NoError(t, err)
	require.True(t, complete)

	return assembler.Get(id)
}
