package dto

import (
	"time"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	keyQueueDomain "github.com/allisson/peertransfer/internal/keyqueue/domain"
	outboxDomain "github.com/allisson/peertransfer/internal/outbox/domain"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
)

// TransferHistoryResponse is the status of a file for one recipient.
type TransferHistoryResponse struct {
	Recipient     string                        `json:"recipient"`
	Status        transferDomain.TransferStatus `json:"status"`
	FailureReason *transferDomain.FailureReason `json:"failureReason,omitempty"`
	UpdatedAt     time.Time                     `json:"updatedAt"`
}

// FileStatusResponse is the body of GET /v1/transit/files/:driveId/:fileId/status.
type FileStatusResponse struct {
	File       driveDomain.InternalDriveFileID `json:"file"`
	Recipients []TransferHistoryResponse       `json:"recipients"`
}

// MapTransferHistoryToResponse builds the status of file from its history rows.
func MapTransferHistoryToResponse(
	file driveDomain.InternalDriveFileID,
	entries []*transferDomain.TransferHistory,
) FileStatusResponse {
	recipients := make([]TransferHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		recipients = append(recipients, TransferHistoryResponse{
			Recipient:     entry.Recipient,
			Status:        entry.Status,
			FailureReason: entry.FailureReason,
			UpdatedAt:     entry.UpdatedAt,
		})
	}
	return FileStatusResponse{File: file, Recipients: recipients}
}

// ListOutboxItemsResponse is the body of GET /v1/transit/outbox/items.
type ListOutboxItemsResponse struct {
	Data []*outboxDomain.OutboxItem `json:"data"`
}

// KeyQueueItemResponse is a key-encryption queue item as listed on the owner API.
type KeyQueueItemResponse struct {
	ID            string                          `json:"id"`
	AppID         string                          `json:"appId"`
	File          driveDomain.InternalDriveFileID `json:"file"`
	Recipient     string                          `json:"recipient"`
	Attempts      int                             `json:"attempts"`
	FirstAddedAt  time.Time                       `json:"firstAddedAt"`
	LastAttemptAt time.Time                       `json:"lastAttemptAt"`
	Status        keyQueueDomain.Status           `json:"status"`
}

// MapKeyQueueItemsToResponse maps queue items to their listing form.
func MapKeyQueueItemsToResponse(items []*keyQueueDomain.KeyEncryptionQueueItem) []KeyQueueItemResponse {
	data := make([]KeyQueueItemResponse, 0, len(items))
	for _, item := range items {
		data = append(data, KeyQueueItemResponse{
			ID:            item.ID.String(),
			AppID:         item.AppID,
			File:          item.File,
			Recipient:     item.Recipient,
			Attempts:      item.Attempts,
			FirstAddedAt:  time.UnixMilli(item.FirstAddedTimestampMs).UTC(),
			LastAttemptAt: time.UnixMilli(item.LastAttemptTimestampMs).UTC(),
			Status:        item.Status,
		})
	}
	return data
}

// ListKeyQueueItemsResponse is the body of GET /v1/transit/keyqueue/items.
type ListKeyQueueItemsResponse struct {
	Data []KeyQueueItemResponse `json:"data"`
}
