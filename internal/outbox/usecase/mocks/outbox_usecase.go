// Package mocks provides mock implementations of the outbox use case for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	outboxDomain "github.com/allisson/peertransfer/internal/outbox/domain"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
)

// MockOutboxUseCase is a mock implementation of OutboxUseCase.
type MockOutboxUseCase struct {
	mock.Mock
}

// Add mocks the Add method.
func (m *MockOutboxUseCase) Add(ctx context.Context, item *outboxDomain.OutboxItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

// AddMany mocks the AddMany method.
func (m *MockOutboxUseCase) AddMany(ctx context.Context, items []*outboxDomain.OutboxItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

// ReplaceMany mocks the ReplaceMany method.
func (m *MockOutboxUseCase) ReplaceMany(ctx context.Context, items []*outboxDomain.OutboxItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

// AddWithReason mocks the AddWithReason method.
func (m *MockOutboxUseCase) AddWithReason(
	ctx context.Context,
	item *outboxDomain.OutboxItem,
	reason transferDomain.FailureReason,
) error {
	args := m.Called(ctx, item, reason)
	return args.Error(0)
}

// GetNextBatch mocks the GetNextBatch method.
func (m *MockOutboxUseCase) GetNextBatch(ctx context.Context, limit int) ([]*outboxDomain.OutboxItem, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outboxDomain.OutboxItem), args.Error(1)
}

// CheckOutFile mocks the CheckOutFile method.
func (m *MockOutboxUseCase) CheckOutFile(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
) ([]*outboxDomain.OutboxItem, error) {
	args := m.Called(ctx, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outboxDomain.OutboxItem), args.Error(1)
}

// GetPendingItems mocks the GetPendingItems method.
func (m *MockOutboxUseCase) GetPendingItems(
	ctx context.Context,
	offset, limit int,
) ([]*outboxDomain.OutboxItem, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outboxDomain.OutboxItem), args.Error(1)
}

// Remove mocks the Remove method.
func (m *MockOutboxUseCase) Remove(ctx context.Context, recipient string, file driveDomain.InternalDriveFileID) error {
	args := m.Called(ctx, recipient, file)
	return args.Error(0)
}

// Complete mocks the Complete method.
func (m *MockOutboxUseCase) Complete(ctx context.Context, item *outboxDomain.OutboxItem) (bool, error) {
	args := m.Called(ctx, item)
	return args.Bool(0), args.Error(1)
}

// RecoverDeadItems mocks the RecoverDeadItems method.
func (m *MockOutboxUseCase) RecoverDeadItems(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// Status mocks the Status method.
func (m *MockOutboxUseCase) Status(ctx context.Context) (*outboxDomain.OutboxStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outboxDomain.OutboxStatus), args.Error(1)
}
