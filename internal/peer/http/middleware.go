package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/allisson/peertransfer/internal/httputil"
	peerDomain "github.com/allisson/peertransfer/internal/peer/domain"
	peerUseCase "github.com/allisson/peertransfer/internal/peer/usecase"
)

// AuthenticationMiddleware authenticates peer hosts by the X-Peer-Identity header
// and the bearer secret issued when the connection was created.
//
// Missing or malformed credentials and unknown peers are 401. Blocked peers are 403.
func AuthenticationMiddleware(connectionUseCase peerUseCase.ConnectionUseCase, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := c.GetHeader(peerDomain.IdentityHeader)
		authHeader := c.GetHeader(peerDomain.AuthorizationHeader)

		const bearerPrefix = "bearer "
		if identity == "" || len(authHeader) <= len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("peer authentication failed: missing credentials",
				slog.String("identity", identity))
			httputil.HandleErrorGin(c, peerDomain.ErrInvalidCredentials, logger)
			c.Abort()
			return
		}

		conn, err := connectionUseCase.Authenticate(c.Request.Context(), identity, authHeader[len(bearerPrefix):])
		if err != nil {
			logger.Debug("peer authentication failed",
				slog.String("identity", identity),
				slog.Any("error", err))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithConnection(c.Request.Context(), conn))
		c.Next()
	}
}
