// Package http serves this host's transit public key to peers.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	cryptoUseCase "github.com/allisson/peertransfer/internal/crypto/usecase"
	"github.com/allisson/peertransfer/internal/httputil"
	"github.com/allisson/peertransfer/internal/publickey/http/dto"
)

// PublicKeyHandler publishes the active host transit key.
type PublicKeyHandler struct {
	hostKeyUseCase cryptoUseCase.HostKeyUseCase
	ttl            time.Duration
	logger         *slog.Logger
}

// NewPublicKeyHandler creates a handler publishing keys valid for ttl.
func NewPublicKeyHandler(
	hostKeyUseCase cryptoUseCase.HostKeyUseCase,
	ttl time.Duration,
	logger *slog.Logger,
) *PublicKeyHandler {
	return &PublicKeyHandler{
		hostKeyUseCase: hostKeyUseCase,
		ttl:            ttl,
		logger:         logger,
	}
}

// GetHandler returns the active transit public key.
// GET /peer/v1/transit/publickey - Public.
func (h *PublicKeyHandler) GetHandler(c *gin.Context) {
	key, err := h.hostKeyUseCase.GetActive(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapHostKeyToResponse(key, time.Now().Add(h.ttl)))
}
