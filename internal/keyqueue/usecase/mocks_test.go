package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	keyQueueDomain "github.com/allisson/peertransfer/internal/keyqueue/domain"
	"github.com/allisson/peertransfer/internal/metrics"
)

type mockKeyQueueRepository struct {
	mock.Mock
}

func (m *mockKeyQueueRepository) Enqueue(ctx context.Context, item *keyQueueDomain.KeyEncryptionQueueItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *mockKeyQueueRepository) RecordAttempt(ctx context.Context, item *keyQueueDomain.KeyEncryptionQueueItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *mockKeyQueueRepository) DrainDue(
	ctx context.Context,
	limit int,
	nowMs int64,
) ([]*keyQueueDomain.KeyEncryptionQueueItem, error) {
	args := m.Called(ctx, limit, nowMs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*keyQueueDomain.KeyEncryptionQueueItem), args.Error(1)
}

func (m *mockKeyQueueRepository) Touch(ctx context.Context, ids []uuid.UUID, leaseUntilMs int64) error {
	return m.Called(ctx, ids, leaseUntilMs).Error(0)
}

func (m *mockKeyQueueRepository) Remove(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
) error {
	return m.Called(ctx, file, recipient).Error(0)
}

func (m *mockKeyQueueRepository) MarkUndeliverable(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
) error {
	return m.Called(ctx, file, recipient).Error(0)
}

func (m *mockKeyQueueRepository) GetPendingItems(
	ctx context.Context,
	offset, limit int,
) ([]*keyQueueDomain.KeyEncryptionQueueItem, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*keyQueueDomain.KeyEncryptionQueueItem), args.Error(1)
}

func (m *mockKeyQueueRepository) Status(ctx context.Context) (*keyQueueDomain.QueueStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keyQueueDomain.QueueStatus), args.Error(1)
}

type mockPreparer struct {
	mock.Mock
}

func (m *mockPreparer) PrepareRecipient(
	ctx context.Context,
	item *keyQueueDomain.KeyEncryptionQueueItem,
) (bool, error) {
	args := m.Called(ctx, item)
	return args.Bool(0), args.Error(1)
}

func (m *mockPreparer) AbandonRecipient(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	recipient string,
) error {
	return m.Called(ctx, file, recipient).Error(0)
}

type mockBusinessMetrics struct {
	mock.Mock
}

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

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)
