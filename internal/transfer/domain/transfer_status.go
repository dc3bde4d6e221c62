package domain

import (
	"time"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
)

// TransferStatus is the delivery state of a file for one recipient.
type TransferStatus string

const (
	AwaitingTransferKey TransferStatus = "awaitingTransferKey"
	TransferKeyCreated  TransferStatus = "transferKeyCreated"
	Delivered           TransferStatus = "delivered"
	PendingRetry        TransferStatus = "pendingRetry"
	Undeliverable       TransferStatus = "undeliverable"
)

// TransferHistory is the latest status recorded for (file, recipient).
type TransferHistory struct {
	File          driveDomain.InternalDriveFileID
	Recipient     string
	Status        TransferStatus
	FailureReason *FailureReason
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SendResult is the outcome of one send attempt. It is never persisted.
type SendResult struct {
	Recipient     string
	File          driveDomain.InternalDriveFileID
	Success       bool
	FailureReason FailureReason
	Timestamp     time.Time
	ResponseCode  TransitResponseCode
}

// NewSuccess builds a successful result.
func NewSuccess(recipient string, file driveDomain.InternalDriveFileID, code TransitResponseCode) SendResult {
	return SendResult{
		Recipient:    recipient,
		File:         file,
		Success:      true,
		Timestamp:    time.Now().UTC(),
		ResponseCode: code,
	}
}

// NewFailure builds a failed result.
func NewFailure(recipient string, file driveDomain.InternalDriveFileID, reason FailureReason) SendResult {
	return SendResult{
		Recipient:     recipient,
		File:          file,
		FailureReason: reason,
		Timestamp:     time.Now().UTC(),
	}
}

// NewTransferHistory builds the entry recorded at now. An empty reason records none.
func NewTransferHistory(
	file driveDomain.InternalDriveFileID,
	recipient string,
	status TransferStatus,
	reason FailureReason,
	now time.Time,
) *TransferHistory {
	entry := &TransferHistory{
		File:      file,
		Recipient: recipient,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if reason != "" {
		entry.FailureReason = &reason
	}
	return entry
}
