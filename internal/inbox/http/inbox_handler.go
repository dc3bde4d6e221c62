package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/peertransfer/internal/httputil"
	"github.com/allisson/peertransfer/internal/inbox/http/dto"
	inboxUseCase "github.com/allisson/peertransfer/internal/inbox/usecase"
)

// InboxHandler exposes the inbox to the owner.
type InboxHandler struct {
	inboxUseCase inboxUseCase.InboxUseCase
	logger       *slog.Logger
}

// NewInboxHandler creates an InboxHandler.
func NewInboxHandler(inboxUseCase inboxUseCase.InboxUseCase, logger *slog.Logger) *InboxHandler {
	return &InboxHandler{
		inboxUseCase: inboxUseCase,
		logger:       logger,
	}
}

// ListItemsHandler lists items awaiting processing.
// GET /v1/transit/inbox/items?offset=0&limit=50
func (h *InboxHandler) ListItemsHandler(c *gin.Context) {
	page, err := httputil.ParsePageOptions(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	items, err := h.inboxUseCase.GetPendingItems(c.Request.Context(), page.Offset, page.Limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ListInboxItemsResponse{Data: dto.MapInboxItemsToResponse(items)})
}

// StatusHandler reports queue depth.
// GET /v1/transit/inbox/status
func (h *InboxHandler) StatusHandler(c *gin.Context) {
	status, err := h.inboxUseCase.Status(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, status)
}
