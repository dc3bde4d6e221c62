// Package dto provides data transfer objects for the owner transit endpoints.
package dto

import (
	"encoding/base64"
	"encoding/json"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
	customValidation "github.com/allisson/peertransfer/internal/validation"
)

// KeyHeaderRequest carries a caller supplied key header.
type KeyHeaderRequest struct {
	Iv     string `json:"iv"`     // Base64-encoded, 16 bytes
	AesKey string `json:"aesKey"` // Base64-encoded, 16 bytes
}

// Validate checks both halves decode to the expected sizes.
func (r KeyHeaderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Iv, validation.Required, customValidation.Base64, decodedLength(cryptoDomain.IvSize)),
		validation.Field(&r.AesKey,
			validation.Required,
			customValidation.Base64,
			decodedLength(cryptoDomain.AesKeySize),
		),
	)
}

// UploadInstructionsRequest is the instructions part of POST /v1/transit/uploads.
type UploadInstructionsRequest struct {
	DriveID    uuid.UUID         `json:"driveId"`
	FileID     uuid.UUID         `json:"fileId"`
	AppID      string            `json:"appId"`
	Recipients []string          `json:"recipients"`
	Schedule   string            `json:"schedule"`
	Priority   int               `json:"priority"`
	KeyHeader  *KeyHeaderRequest `json:"keyHeader,omitempty"`
}

// ParseUploadInstructions decodes the instructions part and normalizes recipients.
func ParseUploadInstructions(data []byte) (*UploadInstructionsRequest, error) {
	var req UploadInstructionsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "instructions are not valid json")
	}
	for i, recipient := range req.Recipients {
		req.Recipients[i] = customValidation.NormalizeIdentity(recipient)
	}
	return &req, nil
}

// Validate checks the upload instructions.
func (r *UploadInstructionsRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.DriveID, validation.By(func(value interface{}) error {
			if id, _ := value.(uuid.UUID); id == uuid.Nil {
				return validation.NewError("validation_required", "cannot be blank")
			}
			return nil
		})),
		validation.Field(&r.AppID, validation.Length(0, 64), customValidation.NoWhitespace),
		validation.Field(&r.Recipients,
			validation.Required,
			validation.Each(customValidation.Identity),
			customValidation.UniqueIdentities,
		),
		validation.Field(&r.Schedule, validation.In(
			string(transferDomain.ScheduleSendNow),
			string(transferDomain.ScheduleSendLater),
		)),
		validation.Field(&r.Priority, validation.Min(0)),
		validation.Field(&r.KeyHeader),
	)
}

// ToDomain converts the request. The caller owns the returned key header.
func (r *UploadInstructionsRequest) ToDomain() (*transferDomain.UploadInstructions, error) {
	instructions := &transferDomain.UploadInstructions{
		DriveID:    r.DriveID,
		FileID:     r.FileID,
		AppID:      r.AppID,
		Recipients: r.Recipients,
		Schedule:   transferDomain.Schedule(r.Schedule),
		Priority:   r.Priority,
	}
	if instructions.Schedule == "" {
		instructions.Schedule = transferDomain.ScheduleSendLater
	}
	if r.KeyHeader != nil {
		iv, err := base64.StdEncoding.DecodeString(r.KeyHeader.Iv)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid key header iv")
		}
		key, err := base64.StdEncoding.DecodeString(r.KeyHeader.AesKey)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid key header key")
		}
		instructions.KeyHeader = &cryptoDomain.KeyHeader{Iv: iv, AesKey: key}
	}
	return instructions, nil
}

func decodedLength(size int) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string)
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil || s == "" {
			return nil
		}
		defer cryptoDomain.Zero(data)
		if len(data) != size {
			return validation.NewError("validation_key_size", "must decode to the expected size")
		}
		return nil
	})
}
