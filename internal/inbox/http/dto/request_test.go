package dto

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDeleteLinkedFileRequest_Validate(t *testing.T) {
	valid := DeleteLinkedFileRequest{File: FileReference{DriveID: uuid.New(), FileID: uuid.New()}}
	assert.NoError(t, valid.Validate())

	missingFile := DeleteLinkedFileRequest{File: FileReference{DriveID: uuid.New()}}
	assert.Error(t, missingFile.Validate())

	req := valid.ToUseCase()
	assert.Equal(t, valid.File.DriveID, req.File.DriveID)
	assert.Equal(t, valid.File.FileID, req.File.FileID)
}
