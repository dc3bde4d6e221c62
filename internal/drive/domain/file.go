// Package domain defines the drive file references and metadata exchanged by peer transfers.
package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// InternalDriveFileID addresses one file on one drive of this host.
type InternalDriveFileID struct {
	DriveID uuid.UUID `json:"driveId"`
	FileID  uuid.UUID `json:"fileId"`
}

// IsValid reports whether both ids are set.
func (f InternalDriveFileID) IsValid() bool {
	return f.DriveID != uuid.Nil && f.FileID != uuid.Nil
}

func (f InternalDriveFileID) String() string {
	return fmt.Sprintf("%s/%s", f.DriveID, f.FileID)
}

// InboxDriveID is the drive holding files received from peers for tenantID.
func InboxDriveID(tenantID string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte("inbox."+tenantID))
}

// Thumbnail describes one thumbnail stored next to a file payload.
type Thumbnail struct {
	PixelWidth  int    `json:"pixelWidth"`
	PixelHeight int    `json:"pixelHeight"`
	ContentType string `json:"contentType"`
}

// Key is the storage name of the thumbnail.
func (t Thumbnail) Key() string {
	return fmt.Sprintf("%dx%d", t.PixelWidth, t.PixelHeight)
}

// ServerMetadata holds fields only this host may see.
type ServerMetadata struct {
	AllowDistribution bool            `json:"allowDistribution"`
	AccessControlList json.RawMessage `json:"accessControlList,omitempty"`
	FileByteCount     int64           `json:"fileByteCount"`
}

// FileMetadata describes a file. ServerMetadata never leaves the host.
type FileMetadata struct {
	ContentType     string          `json:"contentType"`
	PayloadSize     int64           `json:"payloadSize"`
	AppData         json.RawMessage `json:"appData,omitempty"`
	Thumbnails      []Thumbnail     `json:"thumbnails,omitempty"`
	GlobalTransitID *uuid.UUID      `json:"globalTransitId,omitempty"`
	SenderIdentity  string          `json:"senderIdentity,omitempty"`
	CreatedMs       int64           `json:"created"`
	UpdatedMs       int64           `json:"updated"`
	ServerMetadata  *ServerMetadata `json:"serverMetadata,omitempty"`
}

// Redacted returns a copy suitable for sending to a peer.
func (m FileMetadata) Redacted() FileMetadata {
	m.ServerMetadata = nil
	return m
}

// Area is a storage location a file can live in.
type Area string

const (
	// AreaStaging holds uploads that are not yet committed.
	AreaStaging Area = "staging"
	// AreaLongTerm holds committed drive files.
	AreaLongTerm Area = "drives"
	// AreaInbox holds files received from peers awaiting processing.
	AreaInbox Area = "inbox"
)

// FilePart names one streamable part of a stored file.
type FilePart string

// PayloadPart is the file payload.
const PayloadPart FilePart = "payload"

// ThumbnailPart returns the part name of the thumbnail with the given key.
func ThumbnailPart(key string) FilePart {
	return FilePart("thumbnails/" + key)
}
