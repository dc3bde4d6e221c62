package domain

import (
	"slices"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
)

// Schedule tells the orchestrator whether an upload may be sent synchronously.
type Schedule string

const (
	ScheduleSendNow   Schedule = "sendNow"
	ScheduleSendLater Schedule = "sendLater"
)

// Outbox priorities. Lower runs first.
const (
	PriorityInteractive = 10
	PriorityDefault     = 100
)

// UploadPackage is a finalized owner upload staged in drive storage.
type UploadPackage struct {
	ID         uuid.UUID
	Sender     string
	AppID      string
	File       driveDomain.InternalDriveFileID
	Recipients []string
	Schedule   Schedule
	Priority   int
}

// IsValid reports whether the package and drive file ids are set.
func (p *UploadPackage) IsValid() bool {
	return p != nil && p.ID != uuid.Nil && p.File.IsValid()
}

// IsSelfAddressed reports whether the sender is one of the recipients.
func (p *UploadPackage) IsSelfAddressed() bool {
	return slices.Contains(p.Recipients, p.Sender)
}

// UploadInstructions is the instructions part of an owner upload. A zero FileID
// lets the host pick one; a nil KeyHeader lets the host generate one.
type UploadInstructions struct {
	DriveID    uuid.UUID
	FileID     uuid.UUID
	AppID      string
	Recipients []string
	Schedule   Schedule
	Priority   int
	KeyHeader  *cryptoDomain.KeyHeader
}

// AddressedTo reports whether identity is one of the recipients.
func (i *UploadInstructions) AddressedTo(identity string) bool {
	return slices.Contains(i.Recipients, identity)
}

// EffectivePriority returns the outbox priority of the upload.
func (i *UploadInstructions) EffectivePriority() int {
	switch {
	case i.Priority > 0:
		return i.Priority
	case i.Schedule == ScheduleSendNow:
		return PriorityInteractive
	default:
		return PriorityDefault
	}
}

// UploadResult is returned to the owner once an upload was accepted.
type UploadResult struct {
	File            driveDomain.InternalDriveFileID `json:"file"`
	RecipientStatus map[string]TransferStatus       `json:"recipientStatus"`
}
