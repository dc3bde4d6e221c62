// Package http serves the perimeter endpoints other identity hosts send transfers
// to, and the owner listing of the inbox.
package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/allisson/peertransfer/internal/errors"
	"github.com/allisson/peertransfer/internal/httputil"
	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
	"github.com/allisson/peertransfer/internal/inbox/http/dto"
	inboxUseCase "github.com/allisson/peertransfer/internal/inbox/usecase"
	"github.com/allisson/peertransfer/internal/multipart"
	peerHttp "github.com/allisson/peertransfer/internal/peer/http"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
	customValidation "github.com/allisson/peertransfer/internal/validation"
)

// PeerTransferHandler receives transfers from authenticated peers.
type PeerTransferHandler struct {
	receiver        inboxUseCase.Receiver
	assembler       *multipart.Assembler
	maxPayloadBytes int64
	logger          *slog.Logger
}

// NewPeerTransferHandler creates a handler staging parts with assembler. Payloads
// longer than maxPayloadBytes are cut off and rejected; zero disables the limit.
func NewPeerTransferHandler(
	receiver inboxUseCase.Receiver,
	assembler *multipart.Assembler,
	maxPayloadBytes int64,
	logger *slog.Logger,
) *PeerTransferHandler {
	return &PeerTransferHandler{
		receiver:        receiver,
		assembler:       assembler,
		maxPayloadBytes: maxPayloadBytes,
		logger:          logger,
	}
}

// trackerID follows the request id when it is a UUID.
func trackerID(c *gin.Context) uuid.UUID {
	if id, err := uuid.Parse(requestid.Get(c)); err == nil {
		return id
	}
	return uuid.Must(uuid.NewV7())
}

// UploadHandler receives one file streamed as header, metadata, payload and
// thumbnail parts.
// POST /peer/v1/drive/upload - Requires peer authentication.
// Refusals are answered with 200 and code "rejected".
func (h *PeerTransferHandler) UploadHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sender := peerHttp.SenderIdentity(ctx)
	tracker := trackerID(c)

	reader, err := c.Request.MultipartReader()
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	unitID, err := h.assembler.Create(multipart.KindPeerTransfer)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer func() {
		if err := h.assembler.Remove(unitID); err != nil {
			h.logger.Warn("failed to remove upload unit", slog.Any("error", err))
		}
	}()

	verdict := inboxDomain.Accepted
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

		switch name {
		case multipart.PartThumbnail:
			err = h.assembler.AddThumbnail(ctx, unitID, part.FileName(), part.Header.Get("Content-Type"), part)
		case multipart.PartPayload:
			var body io.Reader = part
			if h.maxPayloadBytes > 0 {
				body = io.LimitReader(part, h.maxPayloadBytes+1)
			}
			_, err = h.assembler.AddPart(ctx, unitID, name, body)
		default:
			_, err = h.assembler.AddPart(ctx, unitID, name, part)
		}
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}

		if name != multipart.PartHeader && name != multipart.PartPayload {
			continue
		}

		fc := &inboxDomain.FilterContext{Sender: sender, PayloadSize: -1}
		if name == multipart.PartPayload {
			fc.PayloadSize = h.assembler.Get(unitID).PayloadSize()
		}
		result, err := h.receiver.Screen(ctx, fc)
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
		if result.Action == inboxDomain.FilterReject {
			h.reject(c, tracker, sender, result.Reason)
			return
		}
		if result.Action == inboxDomain.FilterQuarantine {
			verdict = result
		}
	}

	_, err = h.receiver.Receive(ctx, tracker, sender, h.assembler.Get(unitID), verdict)
	if err != nil {
		if apperrors.Is(err, inboxDomain.ErrTransferRejected) {
			c.JSON(http.StatusOK, transferDomain.HostTransitResponse{
				Code:    transferDomain.CodeRejected,
				Message: err.Error(),
			})
			return
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, transferDomain.HostTransitResponse{Code: transferDomain.CodeAcceptedIntoInbox})
}

func (h *PeerTransferHandler) reject(c *gin.Context, tracker uuid.UUID, sender, reason string) {
	if err := h.receiver.Reject(c.Request.Context(), tracker, sender, reason); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, transferDomain.HostTransitResponse{Code: transferDomain.CodeRejected, Message: reason})
}

// DeleteLinkedFileHandler queues a request to drop this host's copy of a file.
// POST /peer/v1/drive/deletelinkedfile - Requires peer authentication.
func (h *PeerTransferHandler) DeleteLinkedFileHandler(c *gin.Context) {
	var req dto.DeleteLinkedFileRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	ctx := c.Request.Context()
	err := h.receiver.DeleteLinkedFile(ctx, trackerID(c), peerHttp.SenderIdentity(ctx), req.ToUseCase())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, transferDomain.HostTransitResponse{Code: transferDomain.CodeAcceptedIntoInbox})
}
