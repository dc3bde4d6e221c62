// Package domain defines the key-encryption retry queue: recipients whose transfer
// key header could not be wrapped yet, usually because their public key was unavailable.
package domain

import (
	"math"
	"time"

	"github.com/google/uuid"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
)

// Status is the state of a queue item.
type Status string

const (
	// StatusPending items are retried by the sweeper.
	StatusPending Status = "pending"
	// StatusUndeliverable items exhausted their attempts or age and are kept for inspection.
	StatusUndeliverable Status = "undeliverable"
)

// KeyEncryptionQueueItem is one (file, recipient) pair awaiting a wrapped key header.
type KeyEncryptionQueueItem struct {
	ID                     uuid.UUID
	AppID                  string
	File                   driveDomain.InternalDriveFileID
	Recipient              string
	Attempts               int
	FirstAddedTimestampMs  int64
	LastAttemptTimestampMs int64
	NextAttemptTimestampMs int64
	Status                 Status
}

// NewItem creates a pending item first attempted at now.
func NewItem(appID string, file driveDomain.InternalDriveFileID, recipient string, now time.Time) *KeyEncryptionQueueItem {
	return &KeyEncryptionQueueItem{
		ID:                     uuid.Must(uuid.NewV7()),
		AppID:                  appID,
		File:                   file,
		Recipient:              recipient,
		Attempts:               1,
		FirstAddedTimestampMs:  now.UnixMilli(),
		LastAttemptTimestampMs: now.UnixMilli(),
		NextAttemptTimestampMs: now.UnixMilli(),
		Status:                 StatusPending,
	}
}

// Retried returns a copy of the item after one more failed attempt at now, due again
// once the backoff for the new attempt count has elapsed.
func (i *KeyEncryptionQueueItem) Retried(now time.Time, base, maxBackoff time.Duration) *KeyEncryptionQueueItem {
	next := *i
	next.Attempts++
	next.LastAttemptTimestampMs = now.UnixMilli()
	next.NextAttemptTimestampMs = now.Add(Backoff(next.Attempts-1, base, maxBackoff)).UnixMilli()
	return &next
}

// Exhausted reports whether the item reached maxAttempts or has waited longer than
// maxAge at now. Zero limits are ignored.
func (i *KeyEncryptionQueueItem) Exhausted(now time.Time, maxAttempts int, maxAge time.Duration) bool {
	if maxAttempts > 0 && i.Attempts >= maxAttempts {
		return true
	}
	if maxAge > 0 && now.UnixMilli()-i.FirstAddedTimestampMs > maxAge.Milliseconds() {
		return true
	}
	return false
}

// Backoff returns base * 2^(failures-1) capped at maxBackoff. Zero failures yield zero.
func Backoff(failures int, base, maxBackoff time.Duration) time.Duration {
	if failures <= 0 || base <= 0 {
		return 0
	}
	d := base
	for n := 1; n < failures; n++ {
		if maxBackoff > 0 && d >= maxBackoff {
			return maxBackoff
		}
		if d > math.MaxInt64/2 {
			return d
		}
		d *= 2
	}
	if maxBackoff > 0 && d > maxBackoff {
		return maxBackoff
	}
	return d
}

// QueueStatus summarizes the queue of one tenant.
type QueueStatus struct {
	Pending       int64 `json:"pending"`
	Undeliverable int64 `json:"undeliverable"`
}

// DefaultAppID is used when an upload names no application.
const DefaultAppID = "drive"
