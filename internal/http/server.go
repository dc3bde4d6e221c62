// Package http provides the HTTP server: the owner transit API, the peer perimeter
// API and the health endpoints.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/peertransfer/internal/config"
	inboxHTTP "github.com/allisson/peertransfer/internal/inbox/http"
	"github.com/allisson/peertransfer/internal/metrics"
	peerHTTP "github.com/allisson/peertransfer/internal/peer/http"
	peerUseCase "github.com/allisson/peertransfer/internal/peer/usecase"
	publicKeyHTTP "github.com/allisson/peertransfer/internal/publickey/http"
	transferHTTP "github.com/allisson/peertransfer/internal/transfer/http"
)

// Server represents the HTTP server
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// Handlers groups the route handlers mounted by SetupRouter.
type Handlers struct {
	Transit      *transferHTTP.TransitHandler
	Queue        *transferHTTP.QueueHandler
	Inbox        *inboxHTTP.InboxHandler
	PeerTransfer *inboxHTTP.PeerTransferHandler
	PublicKey    *publicKeyHTTP.PublicKeyHandler
}

// NewServer creates a new HTTP server
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			ReadHeaderTimeout: 15 * time.Second,
			ReadTimeout:       5 * time.Minute,
			WriteTimeout:      5 * time.Minute,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// SetupRouter mounts every route. ctx bounds background work of the middlewares.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	handlers Handlers,
	connectionUseCase peerUseCase.ConnectionUseCase,
	metricsProvider *metrics.Provider,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))
	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	// Owner API
	owner := router.Group("/v1/transit")
	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		owner.Use(corsMiddleware)
	}
	{
		owner.POST("/uploads", handlers.Transit.UploadHandler)
		owner.GET("/files/:driveId/:fileId/status", handlers.Transit.GetFileStatusHandler)
		owner.GET("/outbox/status", handlers.Queue.OutboxStatusHandler)
		owner.GET("/outbox/items", handlers.Queue.ListOutboxItemsHandler)
		owner.GET("/keyqueue/status", handlers.Queue.KeyQueueStatusHandler)
		owner.GET("/keyqueue/items", handlers.Queue.ListKeyQueueItemsHandler)
		owner.GET("/inbox/status", handlers.Inbox.StatusHandler)
		owner.GET("/inbox/items", handlers.Inbox.ListItemsHandler)
	}

	// Peer perimeter
	peer := router.Group("/peer/v1")
	{
		peer.GET("/transit/publickey", handlers.PublicKey.GetHandler)

		drive := peer.Group("/drive")
		drive.Use(peerHTTP.AuthenticationMiddleware(connectionUseCase, s.logger))
		if cfg.RateLimitPeerEnabled {
			drive.Use(peerHTTP.RateLimitMiddleware(
				ctx,
				cfg.RateLimitPeerRequestsPerSec,
				cfg.RateLimitPeerBurst,
				s.logger,
			))
		}
		drive.POST("/upload", handlers.PeerTransfer.UploadHandler)
		drive.POST("/deletelinkedfile", handlers.PeerTransfer.DeleteLinkedFileHandler)
	}

	s.router = router
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not initialized")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("database not ready", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": "ok"},
	})
}
