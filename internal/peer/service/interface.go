// Package service provides the credentials and the authenticated HTTP client used
// between identity hosts.
package service

import (
	"context"
	"io"
	"net/http"
)

// SecretService generates and verifies the inbound secrets peers present to this host.
type SecretService interface {
	// GenerateSecret returns a random secret and its Argon2id hash.
	GenerateSecret() (plainSecret string, hashedSecret string, err error)

	// CompareSecret reports whether plainSecret matches hashedSecret.
	CompareSecret(plainSecret string, hashedSecret string) bool
}

// TokenSource returns the token this host presents to a peer.
type TokenSource interface {
	OutboundToken(ctx context.Context, identity string) (string, error)
}

// Client talks to one peer host.
type Client interface {
	// Identity is the peer this client addresses.
	Identity() string

	// NewRequest builds a request for path on the peer with the identity headers set.
	NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error)

	// Do sends req. Transport failures wrap ErrPeerUnreachable.
	Do(req *http.Request) (*http.Response, error)

	// GetJSON fetches path and decodes the JSON response into out.
	GetJSON(ctx context.Context, path string, out any) error
}

// ClientFactory returns authenticated clients by peer identity.
type ClientFactory interface {
	Client(ctx context.Context, identity string) (Client, error)
}
