package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterQueueDepthGauge(t *testing.T) {
	provider, err := NewProvider("queue_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	err = RegisterQueueDepthGauge(provider.MeterProvider(), "queue_test", map[string]QueueDepthFunc{
		"outbox": func(ctx context.Context) (int64, error) { return 7, nil },
		"keyqueue": func(ctx context.Context) (int64, error) {
			return 0, errors.New("database unavailable")
		},
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	provider.Handler().ServeHTTP(w, req)

	output := w.Body.String()
	assert.Regexp(t, `queue_test_queue_depth(_items)?\{[^}]*queue="outbox"[^}]*\} 7`, output)
	assert.NotContains(t, output, `queue="keyqueue"`)
}
