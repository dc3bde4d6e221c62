package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
)

func TestFailureReason_RoutesToKeyQueue(t *testing.T) {
	assert.True(t, EncryptedTransferKeyNotAvailable.RoutesToKeyQueue())
	assert.False(t, RecipientServerError.RoutesToKeyQueue())
	assert.False(t, CouldNotEncrypt.RoutesToKeyQueue())
	assert.False(t, UnknownError.RoutesToKeyQueue())
}

func TestFailureReason_IsValid(t *testing.T) {
	assert.True(t, UnknownError.IsValid())
	assert.False(t, FailureReason("timeout").IsValid())
}

func TestTransitResponseCode_IsAccepted(t *testing.T) {
	tests := []struct {
		code     TransitResponseCode
		accepted bool
	}{
		{CodeAccepted, true},
		{CodeAcceptedIntoInbox, true},
		{CodeAcceptedDirectWrite, true},
		{CodeRejected, false},
		{CodeQuarantinedPayload, false},
		{TransitResponseCode(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.accepted, tt.code.IsAccepted())
		})
	}
}

func TestUploadPackage(t *testing.T) {
	file := driveDomain.InternalDriveFileID{DriveID: uuid.New(), FileID: uuid.New()}
	pkg := &UploadPackage{
		ID:         uuid.New(),
		Sender:     "frodo.dotyou.cloud",
		File:       file,
		Recipients: []string{"sam.dotyou.cloud"},
	}

	assert.True(t, pkg.IsValid())
	assert.False(t, pkg.IsSelfAddressed())

	pkg.Recipients = append(pkg.Recipients, "frodo.dotyou.cloud")
	assert.True(t, pkg.IsSelfAddressed())

	assert.False(t, (&UploadPackage{File: file}).IsValid())
	assert.False(t, (*UploadPackage)(nil).IsValid())
}

func TestNewFailure(t *testing.T) {
	file := driveDomain.InternalDriveFileID{DriveID: uuid.New(), FileID: uuid.New()}
	result := NewFailure("sam.dotyou.cloud", file, RecipientServerError)

	assert.False(t, result.Success)
	assert.Equal(t, RecipientServerError, result.FailureReason)
	assert.False(t, result.Timestamp.IsZero())
}

func TestUploadInstructions_AddressedTo(t *testing.T) {
	instructions := &UploadInstructions{Recipients: []string{"sam.dotyou.cloud", "merry.dotyou.cloud"}}

	assert.True(t, instructions.AddressedTo("merry.dotyou.cloud"))
	assert.False(t, instructions.AddressedTo("frodo.dotyou.cloud"))
}

func TestUploadInstructions_EffectivePriority(t *testing.T) {
	assert.Equal(t, 42, (&UploadInstructions{Priority: 42, Schedule: ScheduleSendNow}).EffectivePriority())
	assert.Equal(t, PriorityInteractive, (&UploadInstructions{Schedule: ScheduleSendNow}).EffectivePriority())
	assert.Equal(t, PriorityDefault, (&UploadInstructions{Schedule: ScheduleSendLater}).EffectivePriority())
}

func TestNewTransferHistory(t *testing.T) {
	file := driveDomain.InternalDriveFileID{DriveID: uuid.New(), FileID: uuid.New()}
	now := time.Now().UTC()

	entry := NewTransferHistory(file, "sam.dotyou.cloud", Delivered, "", now)
	assert.Nil(t, entry.FailureReason)
	assert.Equal(t, now, entry.CreatedAt)

	entry = NewTransferHistory(file, "sam.dotyou.cloud", PendingRetry, UnknownError, now)
	if assert.NotNil(t, entry.FailureReason) {
		assert.Equal(t, UnknownError, *entry.FailureReason)
	}
}
