// Package http provides the gin middleware that authenticates and rate limits
// requests arriving from other identity hosts.
package http

import (
	"context"

	peerDomain "github.com/allisson/peertransfer/internal/peer/domain"
)

type connectionKey struct{}

// WithConnection stores the authenticated peer connection in the context.
func WithConnection(ctx context.Context, conn *peerDomain.Connection) context.Context {
	return context.WithValue(ctx, connectionKey{}, conn)
}

// GetConnection returns the authenticated peer connection, if any.
func GetConnection(ctx context.Context) (*peerDomain.Connection, bool) {
	conn, ok := ctx.Value(connectionKey{}).(*peerDomain.Connection)
	return conn, ok
}

// SenderIdentity returns the identity of the authenticated peer, or "".
func SenderIdentity(ctx context.Context) string {
	conn, ok := GetConnection(ctx)
	if !ok || conn == nil {
		return ""
	}
	return conn.Identity
}
