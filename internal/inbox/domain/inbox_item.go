// Package domain defines the receiving side of peer transfers: inbox items handed
// to downstream processing and the signed audit trail of every decision.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
)

// InstructionType tells downstream processing what to do with an inbox item.
type InstructionType string

const (
	InstructionTransfer         InstructionType = "transfer"
	InstructionDeleteLinkedFile InstructionType = "delete_linked_file"
)

// DefaultPriority is the priority of items received from peers.
const DefaultPriority = 100

// InboxItem is one accepted transfer or instruction awaiting processing.
type InboxItem struct {
	ID                uuid.UUID
	Sender            string
	AppID             string
	File              driveDomain.InternalDriveFileID
	TrackerID         uuid.UUID
	InstructionType   InstructionType
	TransferKeyHeader *cryptoDomain.EncryptedRecipientTransferKeyHeader
	Metadata          json.RawMessage
	Priority          int
	PopStamp          *uuid.UUID
	PoppedAt          *time.Time
	CreatedAt         time.Time
}

// IncomingTransfer is what a peer delivered for one file.
type IncomingTransfer struct {
	Sender            string
	AppID             string
	File              driveDomain.InternalDriveFileID
	InstructionType   InstructionType
	TransferKeyHeader *cryptoDomain.EncryptedRecipientTransferKeyHeader
	Metadata          json.RawMessage
}

// NewInboxItem builds the item for transfer, tracked by trackerID.
func NewInboxItem(trackerID uuid.UUID, transfer *IncomingTransfer, now time.Time) *InboxItem {
	instruction := transfer.InstructionType
	if instruction == "" {
		instruction = InstructionTransfer
	}
	return &InboxItem{
		ID:                uuid.Must(uuid.NewV7()),
		Sender:            transfer.Sender,
		AppID:             transfer.AppID,
		File:              transfer.File,
		TrackerID:         trackerID,
		InstructionType:   instruction,
		TransferKeyHeader: transfer.TransferKeyHeader,
		Metadata:          transfer.Metadata,
		Priority:          DefaultPriority,
		CreatedAt:         now,
	}
}

// InboxStatus summarizes the inbox of one tenant.
type InboxStatus struct {
	Total           int64      `json:"total"`
	Popped          int64      `json:"popped"`
	OldestCreatedAt *time.Time `json:"oldestCreatedAt,omitempty"`
}
