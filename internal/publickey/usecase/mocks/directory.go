// Package mocks provides mock implementations of the public key directory for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	publicKeyDomain "github.com/allisson/peertransfer/internal/publickey/domain"
)

// MockDirectory is a mock implementation of Directory.
type MockDirectory struct {
	mock.Mock
}

// GetPublicKey mocks the GetPublicKey method.
func (m *MockDirectory) GetPublicKey(
	ctx context.Context,
	recipient string,
	lookupIfInvalid bool,
) (*publicKeyDomain.TransitPublicKey, error) {
	args := m.Called(ctx, recipient, lookupIfInvalid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*publicKeyDomain.TransitPublicKey), args.Error(1)
}

// Invalidate mocks the Invalidate method.
func (m *MockDirectory) Invalidate(ctx context.Context, recipient string) error {
	args := m.Called(ctx, recipient)
	return args.Error(0)
}
