// Package mocks provides mock implementations of the transfer use cases for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	"github.com/allisson/peertransfer/internal/multipart"
	outboxDomain "github.com/allisson/peertransfer/internal/outbox/domain"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
)

// MockTransitService is a mock implementation of TransitService.
type MockTransitService struct {
	mock.Mock
}

// StageUpload mocks the StageUpload method.
func (m *MockTransitService) StageUpload(
	ctx context.Context,
	sender string,
	instructions *transferDomain.UploadInstructions,
	unit *multipart.Unit,
) (*transferDomain.UploadPackage, error) {
	args := m.Called(ctx, sender, instructions, unit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transferDomain.UploadPackage), args.Error(1)
}

// AcceptUpload mocks the AcceptUpload method.
func (m *MockTransitService) AcceptUpload(
	ctx context.Context,
	pkg *transferDomain.UploadPackage,
) (*transferDomain.UploadResult, error) {
	args := m.Called(ctx, pkg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transferDomain.UploadResult), args.Error(1)
}

// PrepareTransfer mocks the PrepareTransfer method.
func (m *MockTransitService) PrepareTransfer(
	ctx context.Context,
	pkg *transferDomain.UploadPackage,
) (map[string]transferDomain.TransferStatus, error) {
	args := m.Called(ctx, pkg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]transferDomain.TransferStatus), args.Error(1)
}

// SendBatchNow mocks the SendBatchNow method.
func (m *MockTransitService) SendBatchNow(
	ctx context.Context,
	items []*outboxDomain.OutboxItem,
) []transferDomain.SendResult {
	args := m.Called(ctx, items)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]transferDomain.SendResult)
}

// GetTransferStatus mocks the GetTransferStatus method.
func (m *MockTransitService) GetTransferStatus(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
) ([]*transferDomain.TransferHistory, error) {
	args := m.Called(ctx, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transferDomain.TransferHistory), args.Error(1)
}
