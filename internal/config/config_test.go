package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "load default configuration",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0", cfg.ServerHost)
				assert.Equal(t, 8080, cfg.ServerPort)
				assert.Equal(t, "postgres", cfg.DBDriver)
				assert.Equal(t, 25, cfg.DBMaxOpenConnections)
				assert.Equal(t, 5, cfg.DBMaxIdleConnections)
				assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, "localhost", cfg.HostIdentity)
				assert.Equal(t, "https", cfg.PeerScheme)
				assert.Equal(t, 30*time.Second, cfg.PeerHTTPTimeout)
				assert.Equal(t, int64(256<<20), cfg.PeerMaxPayloadBytes)
				assert.Equal(t, time.Hour, cfg.PublicKeyCacheTTL)
				assert.Equal(t, 5*time.Second, cfg.OutboxInterval)
				assert.Equal(t, 10, cfg.OutboxBatchSize)
				assert.Equal(t, 4, cfg.OutboxSendConcurrency)
				assert.Equal(t, time.Minute, cfg.KeyQueueRetryInterval)
				assert.Equal(t, time.Hour, cfg.KeyQueueMaxBackoff)
				assert.Equal(t, 0, cfg.KeyQueueMaxAttempts)
				assert.Equal(t, 7*24*time.Hour, cfg.KeyQueueMaxAge)
				assert.Equal(t, 10*time.Minute, cfg.InboxPopTimeout)
				assert.Equal(t, int64(1<<20), cfg.InstantSendMaxBytes)
				assert.Equal(t, "peertransfer", cfg.MetricsNamespace)
			},
		},
		{
			name: "load custom server configuration",
			envVars: map[string]string{
				"SERVER_HOST": "localhost",
				"SERVER_PORT": "9090",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "localhost", cfg.ServerHost)
				assert.Equal(t, 9090, cfg.ServerPort)
			},
		},
		{
			name: "load custom database configuration",
			envVars: map[string]string{
				"DB_DRIVER":               "mysql",
				"DB_CONNECTION_STRING":    "user:password@tcp(localhost:3306)/testdb",
				"DB_MAX_OPEN_CONNECTIONS": "50",
				"DB_MAX_IDLE_CONNECTIONS": "10",
				"DB_CONN_MAX_LIFETIME":    "10",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mysql", cfg.DBDriver)
				assert.Equal(t, "user:password@tcp(localhost:3306)/testdb", cfg.DBConnectionString)
				assert.Equal(t, 50, cfg.DBMaxOpenConnections)
				assert.Equal(t, 10, cfg.DBMaxIdleConnections)
				assert.Equal(t, 10*time.Minute, cfg.DBConnMaxLifetime)
			},
		},
		{
			name: "load custom peer configuration",
			envVars: map[string]string{
				"HOST_IDENTITY":                "frodo.dotyou.cloud",
				"PEER_SCHEME":                  "http",
				"PEER_PORT":                    "8443",
				"PEER_HTTP_TIMEOUT_SECONDS":    "3",
				"PEER_MAX_PAYLOAD_BYTES":       "1024",
				"PUBLIC_KEY_CACHE_TTL_MINUTES": "5",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "frodo.dotyou.cloud", cfg.HostIdentity)
				assert.Equal(t, "http", cfg.PeerScheme)
				assert.Equal(t, 8443, cfg.PeerPort)
				assert.Equal(t, 3*time.Second, cfg.PeerHTTPTimeout)
				assert.Equal(t, int64(1024), cfg.PeerMaxPayloadBytes)
				assert.Equal(t, 5*time.Minute, cfg.PublicKeyCacheTTL)
			},
		},
		{
			name: "normalize host identity",
			envVars: map[string]string{
				"HOST_IDENTITY": "  Frodo.DotYou.Cloud \n",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "frodo.dotyou.cloud", cfg.HostIdentity)
			},
		},
		{
			name: "load custom queue configuration",
			envVars: map[string]string{
				"OUTBOX_INTERVAL_SECONDS":          "1",
				"OUTBOX_BATCH_SIZE":                "50",
				"OUTBOX_RETRY_INTERVAL_SECONDS":    "2",
				"OUTBOX_MAX_BACKOFF_MINUTES":       "3",
				"OUTBOX_CLAIM_TIMEOUT_MINUTES":     "4",
				"KEY_QUEUE_INTERVAL_SECONDS":       "6",
				"KEY_QUEUE_RETRY_INTERVAL_SECONDS": "7",
				"KEY_QUEUE_MAX_BACKOFF_MINUTES":    "5",
				"KEY_QUEUE_MAX_ATTEMPTS":           "8",
				"KEY_QUEUE_MAX_AGE_HOURS":          "9",
				"INBOX_POP_TIMEOUT_MINUTES":        "11",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, time.Second, cfg.OutboxInterval)
				assert.Equal(t, 50, cfg.OutboxBatchSize)
				assert.Equal(t, 2*time.Second, cfg.OutboxRetryInterval)
				assert.Equal(t, 3*time.Minute, cfg.OutboxMaxBackoff)
				assert.Equal(t, 4*time.Minute, cfg.OutboxClaimTimeout)
				assert.Equal(t, 6*time.Second, cfg.KeyQueueInterval)
				assert.Equal(t, 7*time.Second, cfg.KeyQueueRetryInterval)
				assert.Equal(t, 5*time.Minute, cfg.KeyQueueMaxBackoff)
				assert.Equal(t, 8, cfg.KeyQueueMaxAttempts)
				assert.Equal(t, 9*time.Hour, cfg.KeyQueueMaxAge)
				assert.Equal(t, 11*time.Minute, cfg.InboxPopTimeout)
			},
		},
		{
			name: "load custom log level",
			envVars: map[string]string{
				"LOG_LEVEL": "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.LogLevel)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for key, value := range tt.envVars {
				err := os.Setenv(key, value)
				require.NoError(t, err)
			}

			cfg := Load()
			tt.validate(t, cfg)
		})
	}
}

func TestGetGinMode(t *testing.T) {
	tests := []struct {
		logLevel string
		expected string
	}{
		{"debug", "debug"},
		{"info", "release"},
		{"warn", "release"},
		{"error", "release"},
		{"unknown", "release"},
	}

	for _, tt := range tests {
		t.Run(tt.logLevel, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}
			assert.Equal(t, tt.expected, cfg.GetGinMode())
		})
	}
}
