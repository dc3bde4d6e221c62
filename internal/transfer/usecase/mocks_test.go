package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	cryptoService "github.com/allisson/peertransfer/internal/crypto/service"
	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	driveService "github.com/allisson/peertransfer/internal/drive/service"
	keyQueueDomain "github.com/allisson/peertransfer/internal/keyqueue/domain"
	"github.com/allisson/peertransfer/internal/metrics"
	outboxDomain "github.com/allisson/peertransfer/internal/outbox/domain"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
	transferService "github.com/allisson/peertransfer/internal/transfer/service"
)

type mockRecipientKeyRepository struct {
	mock.Mock
}

func (m *mockRecipientKeyRepository) Upsert(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
	header *cryptoDomain.EncryptedRecipientTransferKeyHeader,
) error {
	return m.Called(ctx, file, recipient, header).Error(0)
}

func (m *mockRecipientKeyRepository) Get(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
) (*cryptoDomain.EncryptedRecipientTransferKeyHeader, error) {
	args := m.Called(ctx, file, recipient)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.EncryptedRecipientTransferKeyHeader), args.Error(1)
}

func (m *mockRecipientKeyRepository) Delete(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
) error {
	return m.Called(ctx, file, recipient).Error(0)
}

type mockHistoryRepository struct {
	mock.Mock
}

func (m *mockHistoryRepository) Upsert(ctx context.Context, entry *transferDomain.TransferHistory) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockHistoryRepository) ListByFile(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
) ([]*transferDomain.TransferHistory, error) {
	args := m.Called(ctx, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transferDomain.TransferHistory), args.Error(1)
}

// historyWith matches a history entry by recipient and status.
func historyWith(recipient string, status transferDomain.TransferStatus) any {
	return mock.MatchedBy(func(entry *transferDomain.TransferHistory) bool {
		return entry.Recipient == recipient && entry.Status == status
	})
}

type mockPeerTransferClient struct {
	mock.Mock
}

func (m *mockPeerTransferClient) SendFile(
	ctx context.Context,
	recipient string,
	envelope *transferService.Envelope,
) (*transferDomain.HostTransitResponse, error) {
	args := m.Called(ctx, recipient, envelope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transferDomain.HostTransitResponse), args.Error(1)
}

type mockTransferKeyPreparer struct {
	mock.Mock
}

func (m *mockTransferKeyPreparer) PrepareRecipient(
	ctx context.Context,
	item *keyQueueDomain.KeyEncryptionQueueItem,
) (bool, error) {
	args := m.Called(ctx, item)
	return args.Bool(0), args.Error(1)
}

func (m *mockTransferKeyPreparer) AbandonRecipient(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
) error {
	return m.Called(ctx, file, recipient).Error(0)
}

func (m *mockTransferKeyPreparer) WrapForRecipient(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
) error {
	return m.Called(ctx, file, recipient).Error(0)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, item *outboxDomain.OutboxItem) transferDomain.SendResult {
	return m.Called(ctx, item).Get(0).(transferDomain.SendResult)
}

func (m *mockSender) SendBatchNow(
	ctx context.Context,
	items []*outboxDomain.OutboxItem,
) []transferDomain.SendResult {
	args := m.Called(ctx, items)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]transferDomain.SendResult)
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

// testKeys holds real key material shared by the use case tests.
type testKeys struct {
	wrapper cryptoService.KeyWrapper
	deriver cryptoService.KeyDeriver
}

func newTestKeys() testKeys {
	masterKey := &cryptoDomain.MasterKey{Key: make([]byte, cryptoDomain.MasterKeySize)}
	for i := range masterKey.Key {
		masterKey.Key[i] = byte(i)
	}
	return testKeys{
		wrapper: cryptoService.NewKeyWrapper(),
		deriver: cryptoService.NewKeyDeriver(masterKey),
	}
}

func newTestStorage(t *testing.T) *driveService.Storage {
	t.Helper()
	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { _ = bucket.Close() })
	return driveService.NewStorage(bucket)
}

func newTestFile() driveDomain.InternalDriveFileID {
	return driveDomain.InternalDriveFileID{DriveID: uuid.New(), FileID: uuid.New()}
}

// storeFile commits a file with payload to long-term storage and returns its
// plaintext key header.
func storeFile(
	t *testing.T,
	storage *driveService.Storage,
	keys testKeys,
	file driveDomain.InternalDriveFileID,
	payload string,
) *cryptoDomain.KeyHeader {
	t.Helper()
	ctx := context.Background()

	keyHeader, err := cryptoDomain.NewKeyHeader()
	require.NoError(t, err)
	storageKey, err := keys.deriver.DriveStorageKey(file.DriveID.String())
	require.NoError(t, err)
	encrypted, err := keys.wrapper.EncryptAes(keyHeader, storageKey)
	require.NoError(t, err)

	require.NoError(t, storage.WriteHeader(ctx, driveDomain.AreaStaging, file, encrypted))
	require.NoError(t, storage.WriteMetadata(ctx, driveDomain.AreaStaging, file, &driveDomain.FileMetadata{
		ContentType:    "text/plain",
		PayloadSize:    int64(len(payload)),
		ServerMetadata: &driveDomain.ServerMetadata{AllowDistribution: true},
	}))
	_, err = storage.WritePayload(ctx, driveDomain.AreaStaging, file, strings.NewReader(payload))
	require.NoError(t, err)
	require.NoError(t, storage.MoveToLongTerm(ctx, file))

	return keyHeader
}
