// Package mocks provides mock implementations of the crypto use cases for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
)

// MockHostKeyUseCase is a mock implementation of HostKeyUseCase.
type MockHostKeyUseCase struct {
	mock.Mock
}

// GetActive mocks the GetActive method.
func (m *MockHostKeyUseCase) GetActive(ctx context.Context) (*cryptoDomain.HostTransitKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.HostTransitKey), args.Error(1)
}

// Rotate mocks the Rotate method.
func (m *MockHostKeyUseCase) Rotate(ctx context.Context) (*cryptoDomain.HostTransitKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.HostTransitKey), args.Error(1)
}

// UnwrapTransferKeyHeader mocks the UnwrapTransferKeyHeader method.
func (m *MockHostKeyUseCase) UnwrapTransferKeyHeader(
	ctx context.Context,
	header *cryptoDomain.EncryptedRecipientTransferKeyHeader,
) (*cryptoDomain.KeyHeader, error) {
	args := m.Called(ctx, header)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.KeyHeader), args.Error(1)
}
