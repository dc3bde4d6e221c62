package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
	"github.com/allisson/peertransfer/internal/multipart"
)

type stubReceiver struct {
	screen  inboxDomain.FilterResult
	receive error
}

func (s *stubReceiver) Screen(context.Context, *inboxDomain.FilterContext) (inboxDomain.FilterResult, error) {
	return s.screen, nil
}

func (s *stubReceiver) Receive(
	context.Context,
	uuid.UUID,
	string,
	*multipart.Unit,
	inboxDomain.FilterResult,
) (driveDomain.InternalDriveFileID, error) {
	return driveDomain.InternalDriveFileID{}, s.receive
}

func (s *stubReceiver) Reject(context.Context, uuid.UUID, string, string) error {
	return nil
}

func (s *stubReceiver) DeleteLinkedFile(context.Context, uuid.UUID, string, *DeleteLinkedFileRequest) error {
	return errors.New("db down")
}

func TestReceiverWithMetrics(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		next      *stubReceiver
		call      func(r Receiver)
		operation string
		status    string
	}{
		{
			name: "receive accepted",
			next: &stubReceiver{},
			call: func(r Receiver) {
				_, _ = r.Receive(ctx, uuid.New(), sender, nil, inboxDomain.Accepted)
			},
			operation: "inbox_receive",
			status:    "success",
		},
		{
			name: "receive rejected",
			next: &stubReceiver{receive: &rejection{reason: "no"}},
			call: func(r Receiver) {
				_, _ = r.Receive(ctx, uuid.New(), sender, nil, inboxDomain.Accepted)
			},
			operation: "inbox_receive",
			status:    "rejected",
		},
		{
			name:      "reject",
			next:      &stubReceiver{},
			call:      func(r Receiver) { _ = r.Reject(ctx, uuid.New(), sender, "no") },
			operation: "inbox_reject",
			status:    "success",
		},
		{
			name: "delete linked file error",
			next: &stubReceiver{},
			call: func(r Receiver) {
				_ = r.DeleteLinkedFile(ctx, uuid.New(), sender, &DeleteLinkedFileRequest{})
			},
			operation: "inbox_delete_linked_file",
			status:    "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockBusinessMetrics{}
			m.On("RecordOperation", ctx, "inbox", tt.operation, tt.status).Once()
			m.On("RecordDuration", ctx, "inbox", tt.operation, mock.Anything, tt.status).Once()

			tt.call(NewReceiverWithMetrics(tt.next, m))
			m.AssertExpectations(t)
		})
	}

	t.Run("screen verdict", func(t *testing.T) {
		m := &mockBusinessMetrics{}
		m.On("RecordOperation", ctx, "inbox", "inbox_screen", "quarantine").Once()

		next := &stubReceiver{screen: inboxDomain.FilterResult{Action: inboxDomain.FilterQuarantine}}
		_, _ = NewReceiverWithMetrics(next, m).Screen(ctx, &inboxDomain.FilterContext{})
		m.AssertExpectations(t)
	})
}
