package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"

	apperrors "github.com/allisson/peertransfer/internal/errors"
	peerDomain "github.com/allisson/peertransfer/internal/peer/domain"
)

// maxJSONResponseBytes bounds JSON bodies read from peers.
const maxJSONResponseBytes = 1 << 20

type client struct {
	httpClient *http.Client
	baseURL    *url.URL
	identity   string
	sender     string
	token      string
}

func (c *client) Identity() string {
	return c.identity
}

func (c *client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	target := c.baseURL.JoinPath(path)

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create peer request")
	}

	req.Header.Set(peerDomain.IdentityHeader, c.sender)
	if c.token != "" {
		req.Header.Set(peerDomain.AuthorizationHeader, "Bearer "+c.token)
	}
	return req, nil
}

func (c *client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", peerDomain.ErrPeerUnreachable, c.identity, err)
	}
	return resp, nil
}

func (c *client) GetJSON(ctx context.Context, path string, out any) error {
	req, err := c.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxJSONResponseBytes))
		return fmt.Errorf("%w: %s returned status %d", peerDomain.ErrUnexpectedResponse, c.identity, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %w", peerDomain.ErrUnexpectedResponse, c.identity, err)
	}
	return nil
}

type clientFactory struct {
	httpClient *http.Client
	scheme     string
	port       int
	sender     string
	tokens     TokenSource
}

// Client returns a client for identity. Peers without a connection get a client
// that carries only the identity header, enough for public endpoints.
func (f *clientFactory) Client(ctx context.Context, identity string) (Client, error) {
	host := identity
	if f.port > 0 {
		host = net.JoinHostPort(identity, strconv.Itoa(f.port))
	}

	token, err := f.tokens.OutboundToken(ctx, identity)
	if err != nil && !apperrors.Is(err, peerDomain.ErrConnectionNotFound) {
		return nil, err
	}

	return &client{
		httpClient: f.httpClient,
		baseURL:    &url.URL{Scheme: f.scheme, Host: host},
		identity:   identity,
		sender:     f.sender,
		token:      token,
	}, nil
}

// NewClientFactory creates a ClientFactory. sender is this host's identity, sent
// on every request. A port of zero keeps the scheme default.
func NewClientFactory(
	httpClient *http.Client,
	scheme string,
	port int,
	sender string,
	tokens TokenSource,
) ClientFactory {
	return &clientFactory{
		httpClient: httpClient,
		scheme:     scheme,
		port:       port,
		sender:     sender,
		tokens:     tokens,
	}
}
