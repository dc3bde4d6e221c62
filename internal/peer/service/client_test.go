package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	peerDomain "github.com/allisson/peertransfer/internal/peer/domain"
)

type staticTokens map[string]string

func (s staticTokens) OutboundToken(ctx context.Context, identity string) (string, error) {
	token, ok := s[identity]
	if !ok {
		return "", peerDomain.ErrConnectionNotFound
	}
	return token, nil
}

type failingTokens struct{}

func (failingTokens) OutboundToken(ctx context.Context, identity string) (string, error) {
	return "", errors.New("database down")
}

// newFactoryFor points a factory at srv. The peer identity is the loopback host.
func newFactoryFor(t *testing.T, srv *httptest.Server, tokens TokenSource) ClientFactory {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return NewClientFactory(srv.Client(), "http", port, "frodo.dotyou.cloud", tokens)
}

func TestClient_GetJSON(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_SendsIdentityAndToken", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/peer/v1/ping", r.URL.Path)
			assert.Equal(t, "frodo.dotyou.cloud", r.Header.Get(peerDomain.IdentityHeader))
			assert.Equal(t, "Bearer token-123", r.Header.Get(peerDomain.AuthorizationHeader))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"value":"pong"}`))
		}))
		defer srv.Close()

		factory := newFactoryFor(t, srv, staticTokens{"127.0.0.1": "token-123"})
		c, err := factory.Client(ctx, "127.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", c.Identity())

		var out struct {
			Value string `json:"value"`
		}
		require.NoError(t, c.GetJSON(ctx, "/peer/v1/ping", &out))
		assert.Equal(t, "pong", out.Value)
	})

	t.Run("Success_NoConnectionOmitsAuthorization", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get(peerDomain.AuthorizationHeader))
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c, err := newFactoryFor(t, srv, staticTokens{}).Client(ctx, "127.0.0.1")
		require.NoError(t, err)

		var out map[string]any
		require.NoError(t, c.GetJSON(ctx, "/", &out))
	})

	t.Run("Error_NonSuccessStatus", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c, err := newFactoryFor(t, srv, staticTokens{}).Client(ctx, "127.0.0.1")
		require.NoError(t, err)

		var out map[string]any
		err = c.GetJSON(ctx, "/", &out)
		assert.ErrorIs(t, err, peerDomain.ErrUnexpectedResponse)
	})

	t.Run("Error_InvalidBody", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer srv.Close()

		c, err := newFactoryFor(t, srv, staticTokens{}).Client(ctx, "127.0.0.1")
		require.NoError(t, err)

		var out map[string]any
		assert.ErrorIs(t, c.GetJSON(ctx, "/", &out), peerDomain.ErrUnexpectedResponse)
	})

	t.Run("Error_Unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		factory := newFactoryFor(t, srv, staticTokens{})
		srv.Close()

		c, err := factory.Client(ctx, "127.0.0.1")
		require.NoError(t, err)

		var out map[string]any
		assert.ErrorIs(t, c.GetJSON(ctx, "/", &out), peerDomain.ErrPeerUnreachable)
	})
}

func TestClientFactory_TokenLookupError(t *testing.T) {
	factory := NewClientFactory(http.DefaultClient, "https", 0, "frodo.dotyou.cloud", failingTokens{})

	_, err := factory.Client(context.Background(), "sam.dotyou.cloud")
	assert.Error(t, err)
}
