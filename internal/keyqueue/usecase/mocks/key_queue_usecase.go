// Package mocks provides mock implementations of the key queue use case for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	keyQueueDomain "github.com/allisson/peertransfer/internal/keyqueue/domain"
)

// MockKeyQueueUseCase is a mock implementation of KeyQueueUseCase.
type MockKeyQueueUseCase struct {
	mock.Mock
}

// Enqueue mocks the Enqueue method.
func (m *MockKeyQueueUseCase) Enqueue(
	ctx context.Context,
	appID string,
	file driveDomain.InternalDriveFileID,
	recipient string,
) error {
	args := m.Called(ctx, appID, file, recipient)
	return args.Error(0)
}

// Remove mocks the Remove method.
func (m *MockKeyQueueUseCase) Remove(ctx context.Context, file driveDomain.InternalDriveFileID, recipient string) error {
	args := m.Called(ctx, file, recipient)
	return args.Error(0)
}

// GetPendingItems mocks the GetPendingItems method.
func (m *MockKeyQueueUseCase) GetPendingItems(
	ctx context.Context,
	offset, limit int,
) ([]*keyQueueDomain.KeyEncryptionQueueItem, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*keyQueueDomain.KeyEncryptionQueueItem), args.Error(1)
}

// Status mocks the Status method.
func (m *MockKeyQueueUseCase) Status(ctx context.Context) (*keyQueueDomain.QueueStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keyQueueDomain.QueueStatus), args.Error(1)
}
