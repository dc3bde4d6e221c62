// Package mocks provides mock implementations of the inbox use cases for testing.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
	inboxUseCase "github.com/allisson/peertransfer/internal/inbox/usecase"
	"github.com/allisson/peertransfer/internal/multipart"
)

// MockInboxUseCase is a mock implementation of InboxUseCase.
type MockInboxUseCase struct {
	mock.Mock
}

// Add mocks the Add method.
func (m *MockInboxUseCase) Add(ctx context.Context, item *inboxDomain.InboxItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

// GetPendingItems mocks the GetPendingItems method.
func (m *MockInboxUseCase) GetPendingItems(ctx context.Context, offset, limit int) ([]*inboxDomain.InboxItem, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*inboxDomain.InboxItem), args.Error(1)
}

// PopItems mocks the PopItems method.
func (m *MockInboxUseCase) PopItems(ctx context.Context, limit int) (uuid.UUID, []*inboxDomain.InboxItem, error) {
	args := m.Called(ctx, limit)
	if args.Get(1) == nil {
		return args.Get(0).(uuid.UUID), nil, args.Error(2)
	}
	return args.Get(0).(uuid.UUID), args.Get(1).([]*inboxDomain.InboxItem), args.Error(2)
}

// MarkComplete mocks the MarkComplete method.
func (m *MockInboxUseCase) MarkComplete(ctx context.Context, stamp uuid.UUID) (int64, error) {
	args := m.Called(ctx, stamp)
	return args.Get(0).(int64), args.Error(1)
}

// RecoverPopped mocks the RecoverPopped method.
func (m *MockInboxUseCase) RecoverPopped(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// Status mocks the Status method.
func (m *MockInboxUseCase) Status(ctx context.Context) (*inboxDomain.InboxStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inboxDomain.InboxStatus), args.Error(1)
}

// MockReceiver is a mock implementation of Receiver.
type MockReceiver struct {
	mock.Mock
}

// Screen mocks the Screen method.
func (m *MockReceiver) Screen(
	ctx context.Context,
	fc *inboxDomain.FilterContext,
) (inboxDomain.FilterResult, error) {
	args := m.Called(ctx, fc)
	return args.Get(0).(inboxDomain.FilterResult), args.Error(1)
}

// Receive mocks the Receive method.
func (m *MockReceiver) Receive(
	ctx context.Context,
	trackerID uuid.UUID,
	sender string,
	unit *multipart.Unit,
	verdict inboxDomain.FilterResult,
) (driveDomain.InternalDriveFileID, error) {
	args := m.Called(ctx, trackerID, sender, unit, verdict)
	return args.Get(0).(driveDomain.InternalDriveFileID), args.Error(1)
}

// Reject mocks the Reject method.
func (m *MockReceiver) Reject(ctx context.Context, trackerID uuid.UUID, sender, reason string) error {
	args := m.Called(ctx, trackerID, sender, reason)
	return args.Error(0)
}

// DeleteLinkedFile mocks the DeleteLinkedFile method.
func (m *MockReceiver) DeleteLinkedFile(
	ctx context.Context,
	trackerID uuid.UUID,
	sender string,
	req *inboxUseCase.DeleteLinkedFileRequest,
) error {
	args := m.Called(ctx, trackerID, sender, req)
	return args.Error(0)
}
