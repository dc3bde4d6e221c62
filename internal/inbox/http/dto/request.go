// Package dto provides data transfer objects for the inbox HTTP endpoints.
package dto

import (
	"encoding/json"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	inboxUseCase "github.com/allisson/peertransfer/internal/inbox/usecase"
)

// FileReference names a file on the sending host.
type FileReference struct {
	DriveID uuid.UUID `json:"driveId"`
	FileID  uuid.UUID `json:"fileId"`
}

// DeleteLinkedFileRequest is the body of POST /peer/v1/drive/deletelinkedfile.
type DeleteLinkedFileRequest struct {
	File         FileReference   `json:"file"`
	Instructions json.RawMessage `json:"instructions,omitempty"`
}

// Validate checks that the request names a file.
func (r *DeleteLinkedFileRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.File, validation.By(func(value interface{}) error {
			ref, _ := value.(FileReference)
			if ref.DriveID == uuid.Nil || ref.FileID == uuid.Nil {
				return validation.NewError("validation_file", "driveId and fileId are required")
			}
			return nil
		})),
	)
}

// ToUseCase maps the request to the receiver input.
func (r *DeleteLinkedFileRequest) ToUseCase() *inboxUseCase.DeleteLinkedFileRequest {
	return &inboxUseCase.DeleteLinkedFileRequest{
		File:         driveDomain.InternalDriveFileID{DriveID: r.File.DriveID, FileID: r.File.FileID},
		Instructions: r.Instructions,
	}
}
