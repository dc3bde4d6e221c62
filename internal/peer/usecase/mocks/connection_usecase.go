// Package mocks provides mock implementations of the peer use cases for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	peerDomain "github.com/allisson/peertransfer/internal/peer/domain"
)

// MockConnectionUseCase is a mock implementation of ConnectionUseCase.
type MockConnectionUseCase struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockConnectionUseCase) Create(ctx context.Context, identity string, outboundToken string) (string, error) {
	args := m.Called(ctx, identity, outboundToken)
	return args.String(0), args.Error(1)
}

// Authenticate mocks the Authenticate method.
func (m *MockConnectionUseCase) Authenticate(
	ctx context.Context,
	identity string,
	secret string,
) (*peerDomain.Connection, error) {
	args := m.Called(ctx, identity, secret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*peerDomain.Connection), args.Error(1)
}

// IsActive mocks the IsActive method.
func (m *MockConnectionUseCase) IsActive(ctx context.Context, identity string) (bool, error) {
	args := m.Called(ctx, identity)
	return args.Bool(0), args.Error(1)
}

// OutboundToken mocks the OutboundToken method.
func (m *MockConnectionUseCase) OutboundToken(ctx context.Context, identity string) (string, error) {
	args := m.Called(ctx, identity)
	return args.String(0), args.Error(1)
}

// Block mocks the Block method.
func (m *MockConnectionUseCase) Block(ctx context.Context, identity string) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}
