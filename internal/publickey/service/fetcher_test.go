package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	peerDomain "github.com/allisson/peertransfer/internal/peer/domain"
	peerService "github.com/allisson/peertransfer/internal/peer/service"
)

type noTokens struct{}

func (noTokens) OutboundToken(ctx context.Context, identity string) (string, error) {
	return "", peerDomain.ErrConnectionNotFound
}

func TestFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PublicKeyPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"publicKey":"AQID","crc32":42,"expiresAt":"2030-01-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	f := NewFetcher(peerService.NewClientFactory(srv.Client(), "http", port, "frodo.dotyou.cloud", noTokens{}))

	key, err := f.Fetch(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", key.Identity)
	assert.Equal(t, []byte{1, 2, 3}, key.PublicKey)
	assert.Equal(t, uint32(42), key.Crc32)
	assert.Equal(t, 2030, key.ExpiresAt.Year())
}
