// Package domain defines the outbox: one durable delivery item per (recipient, file)
// with its attempt history and claim state.
package domain

import (
	"time"

	"github.com/google/uuid"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
)

// TransferAttempt records one failed send.
type TransferAttempt struct {
	FailureReason transferDomain.FailureReason `json:"failureReason"`
	TimestampMs   int64                        `json:"timestampMs"`
}

// OutboxItem is a pending delivery of File to Recipient.
type OutboxItem struct {
	ID            uuid.UUID                       `json:"id"`
	Recipient     string                          `json:"recipient"`
	File          driveDomain.InternalDriveFileID `json:"file"`
	Priority      int                             `json:"priority"`
	Attempts      []TransferAttempt               `json:"attempts"`
	CheckOutStamp *uuid.UUID                      `json:"checkOutStamp,omitempty"`
	CheckOutCount int                             `json:"checkOutCount"`
	CheckedOutAt  *time.Time                      `json:"checkedOutAt,omitempty"`
	NextRunAt     time.Time                       `json:"nextRunAt"`
	CreatedAt     time.Time                       `json:"createdAt"`
	UpdatedAt     time.Time                       `json:"updatedAt"`
}

// NewOutboxItem creates an item that is due immediately.
func NewOutboxItem(recipient string, file driveDomain.InternalDriveFileID, priority int, now time.Time) *OutboxItem {
	if priority <= 0 {
		priority = transferDomain.PriorityDefault
	}
	return &OutboxItem{
		ID:        uuid.Must(uuid.NewV7()),
		Recipient: recipient,
		File:      file,
		Priority:  priority,
		Attempts:  []TransferAttempt{},
		NextRunAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddAttempt appends a failed attempt, releases the claim and schedules the next run.
func (i *OutboxItem) AddAttempt(reason transferDomain.FailureReason, now time.Time, backoff time.Duration) {
	i.Attempts = append(i.Attempts, TransferAttempt{FailureReason: reason, TimestampMs: now.UnixMilli()})
	i.CheckOutStamp = nil
	i.CheckedOutAt = nil
	i.NextRunAt = now.Add(backoff)
	i.UpdatedAt = now
}

// IsCheckedOut reports whether a worker currently holds the item.
func (i *OutboxItem) IsCheckedOut() bool {
	return i.CheckOutStamp != nil
}

// Backoff returns base * 2^(attempts-1) capped at maxBackoff. Zero attempts yield zero.
func Backoff(attempts int, base, maxBackoff time.Duration) time.Duration {
	if attempts <= 0 || base <= 0 {
		return 0
	}
	d := base
	for n := 1; n < attempts; n++ {
		d *= 2
		if maxBackoff > 0 && d >= maxBackoff {
			return maxBackoff
		}
	}
	if maxBackoff > 0 && d > maxBackoff {
		return maxBackoff
	}
	return d
}

// OutboxStatus summarizes the outbox of one tenant.
type OutboxStatus struct {
	Total      int64      `json:"total"`
	CheckedOut int64      `json:"checkedOut"`
	NextRunAt  *time.Time `json:"nextRunAt,omitempty"`
}
