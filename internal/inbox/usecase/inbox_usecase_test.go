package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
	"github.com/allisson/peertransfer/internal/testutil"
)

func newItem() *inboxDomain.InboxItem {
	return inboxDomain.NewInboxItem(uuid.New(), &inboxDomain.IncomingTransfer{
		Sender: sender,
		File:   driveDomain.InternalDriveFileID{DriveID: uuid.New(), FileID: uuid.New()},
	}, time.Now().UTC())
}

func TestInboxUseCase_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := &mockInboxRepository{}
		uc := NewInboxUseCase(time.Minute, testutil.PassthroughTxManager{}, repo, testutil.DiscardLogger())
		item := newItem()

		repo.On("Add", ctx, item).Return(nil)

		require.NoError(t, uc.Add(ctx, item))
		repo.AssertExpectations(t)
	})

	t.Run("Error_InvalidFile", func(t *testing.T) {
		repo := &mockInboxRepository{}
		uc := NewInboxUseCase(time.Minute, testutil.PassthroughTxManager{}, repo, testutil.DiscardLogger())
		item := newItem()
		item.File.FileID = uuid.Nil

		assert.ErrorIs(t, uc.Add(ctx, item), inboxDomain.ErrInvalidTransfer)
		repo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	})
}

func TestInboxUseCase_PopItems(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_StampsEveryItem", func(t *testing.T) {
		repo := &mockInboxRepository{}
		uc := NewInboxUseCase(time.Minute, testutil.PassthroughTxManager{}, repo, testutil.DiscardLogger())
		items := []*inboxDomain.InboxItem{newItem(), newItem()}

		repo.On("SelectPending", ctx, 10).Return(items, nil)
		repo.On("SetPopStamp", ctx, []uuid.UUID{items[0].ID, items[1].ID}, mock.Anything, mock.Anything).
			Return(nil)

		stamp, popped, err := uc.PopItems(ctx, 10)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, stamp)
		require.Len(t, popped, 2)
		for _, item := range popped {
			require.NotNil(t, item.PopStamp)
			assert.Equal(t, stamp, *item.PopStamp)
			assert.NotNil(t, item.PoppedAt)
		}
		repo.AssertExpectations(t)
	})

	t.Run("Success_Empty", func(t *testing.T) {
		repo := &mockInboxRepository{}
		uc := NewInboxUseCase(time.Minute, testutil.PassthroughTxManager{}, repo, testutil.DiscardLogger())

		repo.On("SelectPending", ctx, 10).Return([]*inboxDomain.InboxItem{}, nil)

		_, popped, err := uc.PopItems(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, popped)
		repo.AssertNotCalled(t, "SetPopStamp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_SetPopStamp", func(t *testing.T) {
		repo := &mockInboxRepository{}
		uc := NewInboxUseCase(time.Minute, testutil.PassthroughTxManager{}, repo, testutil.DiscardLogger())

		repo.On("SelectPending", ctx, 10).Return([]*inboxDomain.InboxItem{newItem()}, nil)
		repo.On("SetPopStamp", ctx, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down"))

		stamp, popped, err := uc.PopItems(ctx, 10)
		assert.Error(t, err)
		assert.Equal(t, uuid.Nil, stamp)
		assert.Nil(t, popped)
	})
}

func TestInboxUseCase_MarkComplete(t *testing.T) {
	ctx := context.Background()
	stamp := uuid.New()

	t.Run("Success", func(t *testing.T) {
		repo := &mockInboxRepository{}
		uc := NewInboxUseCase(time.Minute, testutil.PassthroughTxManager{}, repo, testutil.DiscardLogger())

		repo.On("DeleteByPopStamp", ctx, stamp).Return(int64(2), nil)

		n, err := uc.MarkComplete(ctx, stamp)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("Error_UnknownStamp", func(t *testing.T) {
		repo := &mockInboxRepository{}
		uc := NewInboxUseCase(time.Minute, testutil.PassthroughTxManager{}, repo, testutil.DiscardLogger())

		repo.On("DeleteByPopStamp", ctx, stamp).Return(int64(0), nil)

		_, err := uc.MarkComplete(ctx, stamp)
		assert.ErrorIs(t, err, inboxDomain.ErrInboxItemNotFound)
	})
}

func TestInboxUseCase_RecoverPopped(t *testing.T) {
	ctx := context.Background()
	repo := &mockInboxRepository{}
	uc := NewInboxUseCase(10*time.Minute, testutil.PassthroughTxManager{}, repo, testutil.DiscardLogger())

	before := time.Now().UTC().Add(-10 * time.Minute)
	repo.On("RecoverPopped", ctx, mock.MatchedBy(func(olderThan time.Time) bool {
		return !olderThan.Before(before) && olderThan.Before(time.Now().UTC().Add(-9*time.Minute))
	})).Return(int64(3), nil)

	n, err := uc.RecoverPopped(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	repo.AssertExpectations(t)
}
