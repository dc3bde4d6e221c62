package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	keyQueueDomain "github.com/allisson/peertransfer/internal/keyqueue/domain"
	"github.com/allisson/peertransfer/internal/metrics"
	"github.com/allisson/peertransfer/internal/testutil"
)

var sweeperNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestSweeper(repo *mockKeyQueueRepository, preparer *mockPreparer) *Sweeper {
	s := NewSweeper(
		Config{
			Interval:      time.Second,
			BatchSize:     10,
			RetryInterval: time.Minute,
			MaxBackoff:    time.Hour,
			MaxAttempts:   5,
			MaxAge:        24 * time.Hour,
		},
		testutil.PassthroughTxManager{},
		repo,
		preparer,
		metrics.NewNoOpBusinessMetrics(),
		testutil.DiscardLogger(),
	)
	s.now = func() time.Time { return sweeperNow }
	return s
}

func expectClaim(repo *mockKeyQueueRepository, items []*keyQueueDomain.KeyEncryptionQueueItem) {
	repo.On("DrainDue", mock.Anything, 10, sweeperNow.UnixMilli()).Return(items, nil).Once()
	if len(items) > 0 {
		repo.On("Touch", mock.Anything, mock.Anything, sweeperNow.Add(time.Minute).UnixMilli()).Return(nil).Once()
	}
}

func queuedItem(attempts int, firstAdded time.Time) *keyQueueDomain.KeyEncryptionQueueItem {
	item := keyQueueDomain.NewItem(keyQueueDomain.DefaultAppID, testFile(), "sam.dotyou.cloud", firstAdded)
	item.Attempts = attempts
	return item
}

func TestSweeper_ProcessDue(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_NothingDue", func(t *testing.T) {
		repo := &mockKeyQueueRepository{}
		preparer := &mockPreparer{}
		s := newTestSweeper(repo, preparer)
		expectClaim(repo, nil)

		n, err := s.ProcessDue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		preparer.AssertNotCalled(t, "PrepareRecipient", mock.Anything, mock.Anything)
	})

	t.Run("Success_PreparedItemIsRemoved", func(t *testing.T) {
		repo := &mockKeyQueueRepository{}
		preparer := &mockPreparer{}
		s := newTestSweeper(repo, preparer)
		item := queuedItem(1, sweeperNow.Add(-time.Hour))
		expectClaim(repo, []*keyQueueDomain.KeyEncryptionQueueItem{item})

		preparer.On("PrepareRecipient", mock.Anything, item).Return(true, nil).Once()
		repo.On("Remove", mock.Anything, item.File, item.Recipient).Return(nil).Once()

		n, err := s.ProcessDue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		repo.AssertExpectations(t)
		preparer.AssertExpectations(t)
	})

	t.Run("Success_KeyStillUnavailableBacksOff", func(t *testing.T) {
		repo := &mockKeyQueueRepository{}
		preparer := &mockPreparer{}
		s := newTestSweeper(repo, preparer)
		item := queuedItem(3, sweeperNow.Add(-time.Hour))
		expectClaim(repo, []*keyQueueDomain.KeyEncryptionQueueItem{item})

		preparer.On("PrepareRecipient", mock.Anything, item).Return(false, nil).Once()
		repo.On("RecordAttempt", mock.Anything, mock.MatchedBy(func(next *keyQueueDomain.KeyEncryptionQueueItem) bool {
			return next.ID == item.ID &&
				next.Attempts == 4 &&
				next.LastAttemptTimestampMs == sweeperNow.UnixMilli() &&
				next.NextAttemptTimestampMs == sweeperNow.Add(4*time.Minute).UnixMilli()
		})).Return(nil).Once()

		_, err := s.ProcessDue(ctx)
		require.NoError(t, err)
		repo.AssertExpectations(t)
		repo.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	})

	t.Run("Success_CryptoFailureIsRetried", func(t *testing.T) {
		repo := &mockKeyQueueRepository{}
		preparer := &mockPreparer{}
		s := newTestSweeper(repo, preparer)
		item := queuedItem(1, sweeperNow.Add(-time.Hour))
		expectClaim(repo, []*keyQueueDomain.KeyEncryptionQueueItem{item})

		preparer.On("PrepareRecipient", mock.Anything, item).Return(false, cryptoDomain.ErrDecryptionFailed).Once()
		repo.On("RecordAttempt", mock.Anything, mock.MatchedBy(func(next *keyQueueDomain.KeyEncryptionQueueItem) bool {
			return next.Attempts == 2
		})).Return(nil).Once()

		_, err := s.ProcessDue(ctx)
		require.NoError(t, err)
		repo.AssertExpectations(t)
		repo.AssertNotCalled(t, "MarkUndeliverable", mock.Anything, mock.Anything, mock.Anything)
		preparer.AssertNotCalled(t, "AbandonRecipient", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Success_ExhaustedAttemptsAbandoned", func(t *testing.T) {
		repo := &mockKeyQueueRepository{}
		preparer := &mockPreparer{}
		s := newTestSweeper(repo, preparer)
		item := queuedItem(4, sweeperNow.Add(-time.Hour))
		expectClaim(repo, []*keyQueueDomain.KeyEncryptionQueueItem{item})

		preparer.On("PrepareRecipient", mock.Anything, item).
			Return(false, apperrors.Wrap(apperrors.ErrUnavailable, "peer offline")).Once()
		repo.On("MarkUndeliverable", mock.Anything, item.File, item.Recipient).Return(nil).Once()
		preparer.On("AbandonRecipient", mock.Anything, item.File, item.Recipient).Return(nil).Once()

		_, err := s.ProcessDue(ctx)
		require.NoError(t, err)
		repo.AssertExpectations(t)
		preparer.AssertExpectations(t)
		repo.AssertNotCalled(t, "RecordAttempt", mock.Anything, mock.Anything)
	})

	t.Run("Success_ExpiredAgeAbandoned", func(t *testing.T) {
		repo := &mockKeyQueueRepository{}
		preparer := &mockPreparer{}
		s := newTestSweeper(repo, preparer)
		item := queuedItem(1, sweeperNow.Add(-48*time.Hour))
		expectClaim(repo, []*keyQueueDomain.KeyEncryptionQueueItem{item})

		preparer.On("PrepareRecipient", mock.Anything, item).Return(false, nil).Once()
		repo.On("MarkUndeliverable", mock.Anything, item.File, item.Recipient).Return(nil).Once()
		preparer.On("AbandonRecipient", mock.Anything, item.File, item.Recipient).Return(nil).Once()

		_, err := s.ProcessDue(ctx)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("Success_MissingFileAbandonedImmediately", func(t *testing.T) {
		repo := &mockKeyQueueRepository{}
		preparer := &mockPreparer{}
		s := newTestSweeper(repo, preparer)
		item := queuedItem(1, sweeperNow.Add(-time.Minute))
		expectClaim(repo, []*keyQueueDomain.KeyEncryptionQueueItem{item})

		preparer.On("PrepareRecipient", mock.Anything, item).Return(false, driveDomain.ErrFileNotFound).Once()
		repo.On("MarkUndeliverable", mock.Anything, item.File, item.Recipient).Return(nil).Once()
		preparer.On("AbandonRecipient", mock.Anything, item.File, item.Recipient).Return(nil).Once()

		_, err := s.ProcessDue(ctx)
		require.NoError(t, err)
		preparer.AssertExpectations(t)
	})

	t.Run("Success_FailingItemDoesNotStopOthers", func(t *testing.T) {
		repo := &mockKeyQueueRepository{}
		preparer := &mockPreparer{}
		s := newTestSweeper(repo, preparer)
		first := queuedItem(1, sweeperNow.Add(-time.Hour))
		second := queuedItem(1, sweeperNow.Add(-time.Hour))
		expectClaim(repo, []*keyQueueDomain.KeyEncryptionQueueItem{first, second})

		preparer.On("PrepareRecipient", mock.Anything, first).Return(true, nil).Once()
		repo.On("Remove", mock.Anything, first.File, first.Recipient).Return(errors.New("db down")).Once()
		preparer.On("PrepareRecipient", mock.Anything, second).Return(true, nil).Once()
		repo.On("Remove", mock.Anything, second.File, second.Recipient).Return(nil).Once()

		n, err := s.ProcessDue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		preparer.AssertExpectations(t)
	})

	t.Run("Error_ClaimFails", func(t *testing.T) {
		repo := &mockKeyQueueRepository{}
		preparer := &mockPreparer{}
		s := newTestSweeper(repo, preparer)
		repo.On("DrainDue", mock.Anything, 10, sweeperNow.UnixMilli()).Return(nil, errors.New("db down")).Once()

		_, err := s.ProcessDue(ctx)
		assert.Error(t, err)
	})
}

// An offline recipient under the default policy is retried with growing delays and
// only abandoned once the item outlives MaxAge.
func TestSweeper_DefaultPolicyKeepsRetryingUntilMaxAge(t *testing.T) {
	ctx := context.Background()
	repo := &mockKeyQueueRepository{}
	preparer := &mockPreparer{}
	s := newTestSweeper(repo, preparer)
	s.config.MaxAttempts = 0
	s.config.MaxAge = 168 * time.Hour

	added := sweeperNow
	item := queuedItem(1, added)
	clock := added

	preparer.On("PrepareRecipient", mock.Anything, mock.Anything).Return(false, nil)
	repo.On("RecordAttempt", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		item = args.Get(1).(*keyQueueDomain.KeyEncryptionQueueItem)
	})

	var abandonedAt time.Time
	repo.On("MarkUndeliverable", mock.Anything, item.File, item.Recipient).Return(nil).Once().
		Run(func(mock.Arguments) { abandonedAt = clock })
	preparer.On("AbandonRecipient", mock.Anything, item.File, item.Recipient).Return(nil).Once()

	retries := 0
	for abandonedAt.IsZero() {
		require.Less(t, retries, 1000, "item was never abandoned")
		clock = time.UnixMilli(item.NextAttemptTimestampMs).UTC()
		require.NoError(t, s.processItem(ctx, item, clock))
		retries++
	}

	assert.GreaterOrEqual(t, abandonedAt.Sub(added), 168*time.Hour)
	assert.LessOrEqual(t, abandonedAt.Sub(added), 169*time.Hour)
	assert.Greater(t, retries, 100)
	assert.Less(t, retries, 200)
	preparer.AssertExpectations(t)
}

func TestSweeper_RecordsMetrics(t *testing.T) {
	ctx := context.Background()
	repo := &mockKeyQueueRepository{}
	preparer := &mockPreparer{}
	businessMetrics := &mockBusinessMetrics{}
	s := newTestSweeper(repo, preparer)
	s.metrics = businessMetrics
	item := queuedItem(1, sweeperNow.Add(-time.Hour))
	expectClaim(repo, []*keyQueueDomain.KeyEncryptionQueueItem{item})

	preparer.On("PrepareRecipient", mock.Anything, item).Return(true, nil).Once()
	repo.On("Remove", mock.Anything, item.File, item.Recipient).Return(nil).Once()
	businessMetrics.On("RecordOperation", mock.Anything, "keyqueue", "key_retry", "success").Once()
	businessMetrics.On("RecordDuration", mock.Anything, "keyqueue", "key_retry", mock.AnythingOfType("time.Duration"), "success").
		Once()

	_, err := s.ProcessDue(ctx)
	require.NoError(t, err)
	businessMetrics.AssertExpectations(t)
}

func TestSweeper_Start(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := &mockKeyQueueRepository{}
	preparer := &mockPreparer{}
	s := newTestSweeper(repo, preparer)
	s.config.Interval = 10 * time.Millisecond
	repo.On("DrainDue", mock.Anything, 10, mock.Anything).Return(nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}
