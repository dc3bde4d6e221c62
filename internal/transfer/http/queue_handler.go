package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/peertransfer/internal/httputil"
	keyQueueUseCase "github.com/allisson/peertransfer/internal/keyqueue/usecase"
	outboxUseCase "github.com/allisson/peertransfer/internal/outbox/usecase"
	"github.com/allisson/peertransfer/internal/transfer/http/dto"
)

// QueueHandler exposes the outbox and the key-encryption queue to the owner.
type QueueHandler struct {
	outboxUseCase   outboxUseCase.OutboxUseCase
	keyQueueUseCase keyQueueUseCase.KeyQueueUseCase
	logger          *slog.Logger
}

// NewQueueHandler creates a QueueHandler.
func NewQueueHandler(
	outboxUseCase outboxUseCase.OutboxUseCase,
	keyQueueUseCase keyQueueUseCase.KeyQueueUseCase,
	logger *slog.Logger,
) *QueueHandler {
	return &QueueHandler{
		outboxUseCase:   outboxUseCase,
		keyQueueUseCase: keyQueueUseCase,
		logger:          logger,
	}
}

// OutboxStatusHandler reports outbox depth.
// GET /v1/transit/outbox/status
func (h *QueueHandler) OutboxStatusHandler(c *gin.Context) {
	status, err := h.outboxUseCase.Status(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, status)
}

// ListOutboxItemsHandler lists outbox items in claim order.
// GET /v1/transit/outbox/items?offset=0&limit=50
func (h *QueueHandler) ListOutboxItemsHandler(c *gin.Context) {
	page, err := httputil.ParsePageOptions(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	items, err := h.outboxUseCase.GetPendingItems(c.Request.Context(), page.Offset, page.Limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ListOutboxItemsResponse{Data: items})
}

// KeyQueueStatusHandler counts key-encryption queue items per status.
// GET /v1/transit/keyqueue/status
func (h *QueueHandler) KeyQueueStatusHandler(c *gin.Context) {
	status, err := h.keyQueueUseCase.Status(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, status)
}

// ListKeyQueueItemsHandler lists recipients still waiting for a wrapped key header.
// GET /v1/transit/keyqueue/items?offset=0&limit=50
func (h *QueueHandler) ListKeyQueueItemsHandler(c *gin.Context) {
	page, err := httputil.ParsePageOptions(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	items, err := h.keyQueueUseCase.GetPendingItems(c.Request.Context(), page.Offset, page.Limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ListKeyQueueItemsResponse{Data: dto.MapKeyQueueItemsToResponse(items)})
}
