package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
)

func TestNewOutboxItem(t *testing.T) {
	now := time.Now()
	file := driveDomain.InternalDriveFileID{DriveID: uuid.New(), FileID: uuid.New()}

	item := NewOutboxItem("sam.dotyou.cloud", file, 0, now)
	assert.NotEqual(t, uuid.Nil, item.ID)
	assert.Equal(t, transferDomain.PriorityDefault, item.Priority)
	assert.Empty(t, item.Attempts)
	assert.NotNil(t, item.Attempts)
	assert.Equal(t, now, item.NextRunAt)
	assert.False(t, item.IsCheckedOut())

	item = NewOutboxItem("sam.dotyou.cloud", file, transferDomain.PriorityInteractive, now)
	assert.Equal(t, transferDomain.PriorityInteractive, item.Priority)
}

func TestOutboxItem_AddAttempt(t *testing.T) {
	now := time.Now()
	file := driveDomain.InternalDriveFileID{DriveID: uuid.New(), FileID: uuid.New()}
	item := NewOutboxItem("sam.dotyou.cloud", file, 0, now)
	stamp := uuid.New()
	item.CheckOutStamp = &stamp
	item.CheckedOutAt = &now

	later := now.Add(time.Second)
	item.AddAttempt(transferDomain.RecipientServerError, later, time.Minute)

	assert.Len(t, item.Attempts, 1)
	assert.Equal(t, transferDomain.RecipientServerError, item.Attempts[0].FailureReason)
	assert.Equal(t, later.UnixMilli(), item.Attempts[0].TimestampMs)
	assert.False(t, item.IsCheckedOut())
	assert.Nil(t, item.CheckedOutAt)
	assert.Equal(t, later.Add(time.Minute), item.NextRunAt)
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		name     string
		attempts int
		expected time.Duration
	}{
		{"no attempts", 0, 0},
		{"first attempt", 1, 30 * time.Second},
		{"second attempt", 2, time.Minute},
		{"third attempt", 3, 2 * time.Minute},
		{"capped", 10, 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Backoff(tt.attempts, 30*time.Second, 5*time.Minute))
		})
	}
}
