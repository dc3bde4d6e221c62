package http

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

const ownerOrigin = "https://frodo.dotyou.cloud"

func TestCreateCORSMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		origins string
		wantNil bool
	}{
		{name: "disabled", enabled: false, origins: ownerOrigin, wantNil: true},
		{name: "enabled without origins", enabled: true, origins: "", wantNil: true},
		{name: "only separators", enabled: true, origins: " , ,", wantNil: true},
		{name: "single origin", enabled: true, origins: ownerOrigin},
		{name: "several origins", enabled: true, origins: ownerOrigin + ", https://app.dotyou.cloud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			middleware := createCORSMiddleware(tt.enabled, tt.origins, slog.Default())
			if tt.wantNil {
				assert.Nil(t, middleware)
				return
			}
			assert.NotNil(t, middleware)
		})
	}
}

func TestParseOrigins(t *testing.T) {
	assert.Nil(t, parseOrigins(""))
	assert.Equal(t,
		[]string{ownerOrigin, "https://app.dotyou.cloud"},
		parseOrigins(" "+ownerOrigin+" ,https://app.dotyou.cloud,"),
	)
}

func newCORSRouter(enabled bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if middleware := createCORSMiddleware(enabled, ownerOrigin, slog.Default()); middleware != nil {
		router.Use(middleware)
	}
	router.GET("/v1/transit/outbox/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"total": 0})
	})
	router.POST("/v1/transit/uploads", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{})
	})
	return router
}

func TestCORSIntegration(t *testing.T) {
	t.Run("HeadersAddedWhenEnabled", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/transit/outbox/status", nil)
		req.Header.Set("Origin", ownerOrigin)
		newCORSRouter(true).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, ownerOrigin, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("NoHeadersWhenDisabled", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/transit/outbox/status", nil)
		req.Header.Set("Origin", ownerOrigin)
		newCORSRouter(false).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("PreflightForUpload", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/v1/transit/uploads", nil)
		req.Header.Set("Origin", ownerOrigin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		newCORSRouter(true).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, ownerOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	})
}
