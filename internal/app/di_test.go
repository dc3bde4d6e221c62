package app

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/peertransfer/internal/config"
	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	"github.com/allisson/peertransfer/internal/metrics"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LogLevel:                    "error",
		ServerHost:                  "127.0.0.1",
		ServerPort:                  8080,
		DBDriver:                    "postgres",
		HostIdentity:                "frodo.dotyou.cloud",
		MasterKey:                   base64.StdEncoding.EncodeToString(make([]byte, cryptoDomain.MasterKeySize)),
		DriveBucketURL:              "mem://",
		MultipartStagingDir:         t.TempDir(),
		PeerScheme:                  "https",
		PeerHTTPTimeout:             time.Second,
		PeerMaxPayloadBytes:         1 << 20,
		PublicKeyCacheTTL:           time.Hour,
		OutboxInterval:              time.Second,
		OutboxBatchSize:             10,
		OutboxSendConcurrency:       2,
		OutboxRetryInterval:         time.Second,
		OutboxMaxBackoff:            time.Minute,
		OutboxClaimTimeout:          time.Minute,
		KeyQueueInterval:            time.Second,
		KeyQueueBatchSize:           10,
		KeyQueueRetryInterval:       time.Second,
		KeyQueueMaxBackoff:          time.Minute,
		KeyQueueMaxAttempts:         10,
		KeyQueueMaxAge:              time.Hour,
		InboxPopTimeout:             time.Minute,
		InstantSendMaxBytes:         1024,
		InstantSendMaxRecipients:    3,
		InstantSendTimeout:          time.Second,
		RateLimitPeerEnabled:        true,
		RateLimitPeerRequestsPerSec: 10,
		RateLimitPeerBurst:          20,
		MetricsNamespace:            "peertransfer_test",
		MetricsPort:                 8081,
	}
}

// withMockDB injects a sqlmock connection so no component dials a real database.
func withMockDB(t *testing.T, c *Container) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	c.dbInit.Do(func() {
		c.db = db
	})
	return mock
}

func TestNewContainer(t *testing.T) {
	cfg := testConfig(t)

	container := NewContainer(cfg)

	require.NotNil(t, container)
	assert.Same(t, cfg, container.Config())
}

func TestContainerLogger(t *testing.T) {
	container := NewContainer(&config.Config{LogLevel: "debug"})

	logger := container.Logger()
	require.NotNil(t, logger)
	assert.Same(t, logger, container.Logger())
}

func TestContainerLoggerDefaultLevel(t *testing.T) {
	container := NewContainer(&config.Config{LogLevel: "invalid"})

	logger := container.Logger()
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(context.Background(), 0))
	assert.False(t, logger.Enabled(context.Background(), -4))
}

func TestContainerInitializationErrors(t *testing.T) {
	container := NewContainer(&config.Config{DBDriver: "invalid_driver"})

	_, err := container.DB()
	require.Error(t, err)

	_, err = container.DB()
	require.Error(t, err)

	_, err = container.OutboxUseCase()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get database for outbox repository")
}

func TestContainerUnsupportedDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBDriver = "sqlite"
	container := NewContainer(cfg)
	withMockDB(t, container)

	repositories := map[string]func() error{
		"host key":      func() error { _, err := container.HostKeyRepository(); return err },
		"connection":    func() error { _, err := container.ConnectionRepository(); return err },
		"public key":    func() error { _, err := container.PublicKeyRepository(); return err },
		"key queue":     func() error { _, err := container.KeyQueueRepository(); return err },
		"outbox":        func() error { _, err := container.OutboxRepository(); return err },
		"recipient key": func() error { _, err := container.RecipientKeyRepository(); return err },
		"history":       func() error { _, err := container.HistoryRepository(); return err },
		"inbox":         func() error { _, err := container.InboxRepository(); return err },
		"audit event":   func() error { _, err := container.AuditEventRepository(); return err },
	}

	for name, get := range repositories {
		t.Run(name, func(t *testing.T) {
			err := get()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "unsupported database driver: sqlite")
		})
	}
}

func TestContainerMasterKey(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		container := NewContainer(testConfig(t))

		masterKey, err := container.MasterKey()
		require.NoError(t, err)
		assert.Len(t, masterKey.Key, cryptoDomain.MasterKeySize)

		keyDeriver, err := container.KeyDeriver()
		require.NoError(t, err)
		require.NotNil(t, keyDeriver)
	})

	t.Run("Error_NotSet", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.MasterKey = ""
		container := NewContainer(cfg)

		_, err := container.MasterKey()
		require.ErrorIs(t, err, cryptoDomain.ErrMasterKeyNotSet)

		_, err = container.KeyDeriver()
		require.Error(t, err)
	})

	t.Run("Error_InvalidKMSURI", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.KMSKeyURI = "unknown://key"
		container := NewContainer(cfg)

		_, err := container.MasterKey()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open KMS keeper")
	})
}

func TestContainerMetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.MetricsEnabled = false
	container := NewContainer(cfg)
	withMockDB(t, container)

	provider, err := container.MetricsProvider()
	require.NoError(t, err)
	assert.Nil(t, provider)

	businessMetrics, err := container.BusinessMetrics()
	require.NoError(t, err)
	assert.Equal(t, metrics.NewNoOpBusinessMetrics(), businessMetrics)

	metricsServer, err := container.MetricsServer()
	require.NoError(t, err)
	assert.Nil(t, metricsServer)
}

func TestContainerWiring(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig(t)
	cfg.MetricsEnabled = true
	container := NewContainer(cfg)
	mock := withMockDB(t, container)

	server, err := container.HTTPServer()
	require.NoError(t, err)
	require.NotNil(t, server)

	metricsServer, err := container.MetricsServer()
	require.NoError(t, err)
	require.NotNil(t, metricsServer)

	worker, err := container.OutboxWorker()
	require.NoError(t, err)
	assert.NotNil(t, worker)

	sweeper, err := container.KeyQueueSweeper()
	require.NoError(t, err)
	assert.NotNil(t, sweeper)

	// The same instances are shared by every consumer.
	first, err := container.OutboxUseCase()
	require.NoError(t, err)
	second, err := container.OutboxUseCase()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Same(t, container.Assembler(), container.Assembler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	server.GetHandler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/peer/v1/drive/upload", nil)
	server.GetHandler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	mock.ExpectClose()
	require.NoError(t, container.Shutdown(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContainerLazyInitialization(t *testing.T) {
	container := NewContainer(&config.Config{LogLevel: "info"})

	assert.Nil(t, container.logger)

	logger := container.Logger()
	require.NotNil(t, logger)
	assert.NotNil(t, container.logger)
	assert.Nil(t, container.db)
}

func TestContainerShutdown(t *testing.T) {
	container := NewContainer(&config.Config{LogLevel: "info"})

	require.NoError(t, container.Shutdown(context.Background()))
	assert.Error(t, container.ctx.Err())
}
