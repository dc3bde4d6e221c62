// Package http serves the owner transit API: uploads, per-file transfer status and
// the delivery queues.
package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	"github.com/allisson/peertransfer/internal/httputil"
	"github.com/allisson/peertransfer/internal/multipart"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
	"github.com/allisson/peertransfer/internal/transfer/http/dto"
	transferUseCase "github.com/allisson/peertransfer/internal/transfer/usecase"
	customValidation "github.com/allisson/peertransfer/internal/validation"
)

// TransitHandler handles owner uploads and transfer status.
type TransitHandler struct {
	transitService transferUseCase.TransitService
	assembler      *multipart.Assembler
	hostIdentity   string
	logger         *slog.Logger
}

// NewTransitHandler creates a TransitHandler sending as hostIdentity.
func NewTransitHandler(
	transitService transferUseCase.TransitService,
	assembler *multipart.Assembler,
	hostIdentity string,
	logger *slog.Logger,
) *TransitHandler {
	return &TransitHandler{
		transitService: transitService,
		assembler:      assembler,
		hostIdentity:   hostIdentity,
		logger:         logger,
	}
}

// UploadHandler stages a file and queues it for every recipient.
// POST /v1/transit/uploads
// Parts: instructions (JSON), metadata (JSON), payload, thumbnail (filename "<w>x<h>").
func (h *TransitHandler) UploadHandler(c *gin.Context) {
	ctx := c.Request.Context()

	reader, err := c.Request.MultipartReader()
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	unitID, err := h.assembler.Create(multipart.KindPackage)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer func() {
		if err := h.assembler.Remove(unitID); err != nil {
			h.logger.Warn("failed to remove upload unit", slog.Any("error", err))
		}
	}()

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}

		name, err := multipart.ParsePartName(part.FormName())
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}

		if name == multipart.PartThumbnail {
			err = h.assembler.AddThumbnail(ctx, unitID, part.FileName(), part.Header.Get("Content-Type"), part)
		} else {
			_, err = h.assembler.AddPart(ctx, unitID, name, part)
		}
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
	}

	unit := h.assembler.Get(unitID)
	req, err := dto.ParseUploadInstructions(unit.Bytes(multipart.PartInstructions))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	instructions, err := req.ToDomain()
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer instructions.KeyHeader.Zero()

	if instructions.AddressedTo(h.hostIdentity) {
		httputil.HandleErrorGin(c, transferDomain.ErrSelfTransfer, h.logger)
		return
	}

	pkg, err := h.transitService.StageUpload(ctx, h.hostIdentity, instructions, unit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	result, err := h.transitService.AcceptUpload(ctx, pkg)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetFileStatusHandler lists the delivery status of a file per recipient.
// GET /v1/transit/files/:driveId/:fileId/status
func (h *TransitHandler) GetFileStatusHandler(c *gin.Context) {
	file, err := parseFileID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	entries, err := h.transitService.GetTransferStatus(c.Request.Context(), file)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTransferHistoryToResponse(file, entries))
}

func parseFileID(c *gin.Context) (driveDomain.InternalDriveFileID, error) {
	driveID, err := uuid.Parse(c.Param("driveId"))
	if err != nil {
		return driveDomain.InternalDriveFileID{}, fmt.Errorf("invalid driveId format: must be a valid UUID")
	}
	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		return driveDomain.InternalDriveFileID{}, fmt.Errorf("invalid fileId format: must be a valid UUID")
	}
	return driveDomain.InternalDriveFileID{DriveID: driveID, FileID: fileID}, nil
}
