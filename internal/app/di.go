// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"gocloud.dev/blob"

	"github.com/allisson/peertransfer/internal/config"
	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	cryptoService "github.com/allisson/peertransfer/internal/crypto/service"
	cryptoUseCase "github.com/allisson/peertransfer/internal/crypto/usecase"
	"github.com/allisson/peertransfer/internal/database"
	driveService "github.com/allisson/peertransfer/internal/drive/service"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	serverHTTP "github.com/allisson/peertransfer/internal/http"
	inboxHTTP "github.com/allisson/peertransfer/internal/inbox/http"
	inboxUseCase "github.com/allisson/peertransfer/internal/inbox/usecase"
	keyQueueUseCase "github.com/allisson/peertransfer/internal/keyqueue/usecase"
	"github.com/allisson/peertransfer/internal/metrics"
	"github.com/allisson/peertransfer/internal/multipart"
	outboxUseCase "github.com/allisson/peertransfer/internal/outbox/usecase"
	peerService "github.com/allisson/peertransfer/internal/peer/service"
	peerUseCase "github.com/allisson/peertransfer/internal/peer/usecase"
	publicKeyHTTP "github.com/allisson/peertransfer/internal/publickey/http"
	publicKeyUseCase "github.com/allisson/peertransfer/internal/publickey/usecase"
	transferHTTP "github.com/allisson/peertransfer/internal/transfer/http"
	transferService "github.com/allisson/peertransfer/internal/transfer/service"
	transferUseCase "github.com/allisson/peertransfer/internal/transfer/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Background context for long lived helpers (rate limiter cleanup). Cancelled on Shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	txManager       database.TxManager
	bucket          *blob.Bucket
	assembler       *multipart.Assembler
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Crypto
	kmsService     cryptoService.KMSService
	masterKey      *cryptoDomain.MasterKey
	aeadManager    cryptoService.AEADManager
	keyDeriver     cryptoService.KeyDeriver
	keyWrapper     cryptoService.KeyWrapper
	hostKeyRepo    cryptoUseCase.HostKeyRepository
	hostKeyUseCase cryptoUseCase.HostKeyUseCase

	// Drive
	driveStorage *driveService.Storage

	// Peer
	connectionRepo     peerUseCase.ConnectionRepository
	connectionUseCase  peerUseCase.ConnectionUseCase
	peerClientFactory  peerService.ClientFactory
	publicKeyRepo      publicKeyUseCase.PublicKeyRepository
	publicKeyDirectory publicKeyUseCase.Directory

	// Transfer
	keyQueueRepo        keyQueueUseCase.KeyQueueRepository
	keyQueueUseCase     keyQueueUseCase.KeyQueueUseCase
	outboxRepo          outboxUseCase.OutboxRepository
	outboxUseCase       outboxUseCase.OutboxUseCase
	recipientKeyRepo    transferUseCase.RecipientKeyRepository
	historyRepo         transferUseCase.HistoryRepository
	peerTransferClient  transferService.PeerTransferClient
	transferKeyPreparer transferUseCase.TransferKeyPreparer
	sender              transferUseCase.Sender
	transitService      transferUseCase.TransitService

	// Inbox
	inboxRepo      inboxUseCase.InboxRepository
	auditEventRepo inboxUseCase.AuditEventRepository
	inboxUseCase   inboxUseCase.InboxUseCase
	auditWriter    inboxUseCase.AuditWriter
	acceptor       inboxUseCase.Acceptor
	receiver       inboxUseCase.Receiver

	// Servers and Workers
	httpServer      *serverHTTP.Server
	metricsServer   *serverHTTP.MetricsServer
	outboxWorker    *transferUseCase.Worker
	keyQueueSweeper *keyQueueUseCase.Sweeper

	// Initialization flags and mutex for thread-safety
	mu                      sync.Mutex
	loggerInit              sync.Once
	dbInit                  sync.Once
	txManagerInit           sync.Once
	bucketInit              sync.Once
	assemblerInit           sync.Once
	metricsProviderInit     sync.Once
	businessMetricsInit     sync.Once
	kmsServiceInit          sync.Once
	masterKeyInit           sync.Once
	aeadManagerInit         sync.Once
	keyDeriverInit          sync.Once
	keyWrapperInit          sync.Once
	hostKeyRepoInit         sync.Once
	hostKeyUseCaseInit      sync.Once
	driveStorageInit        sync.Once
	connectionRepoInit      sync.Once
	connectionUseCaseInit   sync.Once
	peerClientFactoryInit   sync.Once
	publicKeyRepoInit       sync.Once
	publicKeyDirectoryInit  sync.Once
	keyQueueRepoInit        sync.Once
	keyQueueUseCaseInit     sync.Once
	outboxRepoInit          sync.Once
	outboxUseCaseInit       sync.Once
	recipientKeyRepoInit    sync.Once
	historyRepoInit         sync.Once
	peerTransferClientInit  sync.Once
	transferKeyPreparerInit sync.Once
	senderInit              sync.Once
	transitServiceInit      sync.Once
	inboxRepoInit           sync.Once
	auditEventRepoInit      sync.Once
	inboxUseCaseInit        sync.Once
	auditWriterInit         sync.Once
	acceptorInit            sync.Once
	receiverInit            sync.Once
	httpServerInit          sync.Once
	metricsServerInit       sync.Once
	outboxWorkerInit        sync.Once
	keyQueueSweeperInit     sync.Once
	initErrors              map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	ctx, cancel := context.WithCancel(context.Background())
	return &Container{
		config:     cfg,
		ctx:        ctx,
		cancel:     cancel,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = c.initMetricsProvider()
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. A no-op recorder is returned
// when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the HTTP server instance with the owner and peer routes mounted.
func (c *Container) HTTPServer() (*serverHTTP.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server instance, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*serverHTTP.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancel()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.bucket != nil {
		if err := c.bucket.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("drive bucket close: %w", err))
		}
	}

	// Wipe key material
	if c.masterKey != nil {
		c.masterKey.Close()
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return apperrors.Join(shutdownErrors...)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler).With(slog.String("host_identity", c.config.HostIdentity))
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(context.Background(), database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}
	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

// initHTTPServer creates the HTTP server with all its handlers.
func (c *Container) initHTTPServer() (*serverHTTP.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	transitService, err := c.TransitService()
	if err != nil {
		return nil, fmt.Errorf("failed to get transit service for http server: %w", err)
	}

	outboxUC, err := c.OutboxUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox use case for http server: %w", err)
	}

	keyQueueUC, err := c.KeyQueueUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get key queue use case for http server: %w", err)
	}

	inboxUC, err := c.InboxUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get inbox use case for http server: %w", err)
	}

	receiver, err := c.Receiver()
	if err != nil {
		return nil, fmt.Errorf("failed to get receiver for http server: %w", err)
	}

	hostKeyUC, err := c.HostKeyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get host key use case for http server: %w", err)
	}

	connectionUC, err := c.ConnectionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection use case for http server: %w", err)
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	assembler := c.Assembler()

	handlers := serverHTTP.Handlers{
		Transit:      transferHTTP.NewTransitHandler(transitService, assembler, c.config.HostIdentity, logger),
		Queue:        transferHTTP.NewQueueHandler(outboxUC, keyQueueUC, logger),
		Inbox:        inboxHTTP.NewInboxHandler(inboxUC, logger),
		PeerTransfer: inboxHTTP.NewPeerTransferHandler(receiver, assembler, c.config.PeerMaxPayloadBytes, logger),
		PublicKey:    publicKeyHTTP.NewPublicKeyHandler(hostKeyUC, c.config.PublicKeyCacheTTL, logger),
	}

	server := serverHTTP.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(c.ctx, c.config, handlers, connectionUC, metricsProvider)

	return server, nil
}

// initMetricsServer creates the metrics server and registers the queue depth gauge.
func (c *Container) initMetricsServer() (*serverHTTP.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}

	outboxUC, err := c.OutboxUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox use case for metrics server: %w", err)
	}
	keyQueueUC, err := c.KeyQueueUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get key queue use case for metrics server: %w", err)
	}
	inboxUC, err := c.InboxUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get inbox use case for metrics server: %w", err)
	}

	queues := map[string]metrics.QueueDepthFunc{
		"outbox": func(ctx context.Context) (int64, error) {
			status, err := outboxUC.Status(ctx)
			if err != nil {
				return 0, err
			}
			return status.Total, nil
		},
		"keyqueue": func(ctx context.Context) (int64, error) {
			status, err := keyQueueUC.Status(ctx)
			if err != nil {
				return 0, err
			}
			return status.Pending, nil
		},
		"inbox": func(ctx context.Context) (int64, error) {
			status, err := inboxUC.Status(ctx)
			if err != nil {
				return 0, err
			}
			return status.Total, nil
		},
	}
	if err := metrics.RegisterQueueDepthGauge(provider.MeterProvider(), c.config.MetricsNamespace, queues); err != nil {
		return nil, fmt.Errorf("failed to register queue depth gauge: %w", err)
	}

	return serverHTTP.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}

// peerHTTPClient returns the client used for every host-to-host request.
func (c *Container) peerHTTPClient() *http.Client {
	return &http.Client{Timeout: c.config.PeerHTTPTimeout}
}

// unsupportedDriver is returned by every repository factory for an unknown DBDriver.
func (c *Container) unsupportedDriver() error {
	return fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
}

var (
	_ inboxUseCase.TransferKeyUnwrapper = (cryptoUseCase.HostKeyUseCase)(nil)
	_ inboxUseCase.SigningKeySource     = (cryptoService.KeyDeriver)(nil)
	_ inboxUseCase.ConnectionChecker    = (peerUseCase.ConnectionUseCase)(nil)
	_ peerService.TokenSource           = (peerUseCase.ConnectionUseCase)(nil)
	_ inboxUseCase.DriveStorage         = (*driveService.Storage)(nil)
	_ transferUseCase.DriveStorage      = (*driveService.Storage)(nil)
)
