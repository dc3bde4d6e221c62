package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/peertransfer/internal/metrics"
	outboxDomain "github.com/allisson/peertransfer/internal/outbox/domain"
	"github.com/allisson/peertransfer/internal/outbox/usecase/mocks"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
)

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

func TestOutboxUseCaseWithMetrics_AddWithReason(t *testing.T) {
	ctx := context.Background()
	item := newTestItem()

	tests := []struct {
		name   string
		err    error
		status string
	}{
		{"success", nil, "success"},
		{"error", errors.New("db down"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &mocks.MockOutboxUseCase{}
			m := &mockBusinessMetrics{}
			decorated := NewOutboxUseCaseWithMetrics(next, m)

			next.On("AddWithReason", ctx, item, transferDomain.UnknownError).Return(tt.err).Once()
			m.On("RecordOperation", ctx, "outbox", "outbox_check_in", tt.status).Once()
			m.On("RecordDuration", ctx, "outbox", "outbox_check_in", mock.AnythingOfType("time.Duration"), tt.status).Once()

			err := decorated.AddWithReason(ctx, item, transferDomain.UnknownError)
			assert.Equal(t, tt.err, err)
			next.AssertExpectations(t)
			m.AssertExpectations(t)
		})
	}
}

func TestOutboxUseCaseWithMetrics_GetNextBatch(t *testing.T) {
	ctx := context.Background()
	next := &mocks.MockOutboxUseCase{}
	m := &mockBusinessMetrics{}
	decorated := NewOutboxUseCaseWithMetrics(next, m)
	items := []*outboxDomain.OutboxItem{newTestItem()}

	next.On("GetNextBatch", ctx, 3).Return(items, nil).Once()
	m.On("RecordOperation", ctx, "outbox", "outbox_claim", "success").Once()
	m.On("RecordDuration", ctx, "outbox", "outbox_claim", mock.AnythingOfType("time.Duration"), "success").Once()

	got, err := decorated.GetNextBatch(ctx, 3)
	assert.NoError(t, err)
	assert.Equal(t, items, got)
	m.AssertExpectations(t)
}

func TestOutboxUseCaseWithMetrics_StatusNotRecorded(t *testing.T) {
	ctx := context.Background()
	next := &mocks.MockOutboxUseCase{}
	m := &mockBusinessMetrics{}
	decorated := NewOutboxUseCaseWithMetrics(next, m)

	next.On("Status", ctx).Return(&outboxDomain.OutboxStatus{Total: 1}, nil).Once()

	status, err := decorated.Status(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), status.Total)
	m.AssertNotCalled(t, "RecordOperation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
