// Package domain defines the connections between this host and other identity hosts.
package domain

import "time"

// Header names carried by every host-to-host request.
const (
	IdentityHeader      = "X-Peer-Identity"
	AuthorizationHeader = "Authorization"
)

// ConnectionStatus is the state of a peer connection.
type ConnectionStatus string

const (
	// ConnectionActive allows transfers in both directions.
	ConnectionActive ConnectionStatus = "active"
	// ConnectionBlocked rejects every inbound request from the peer.
	ConnectionBlocked ConnectionStatus = "blocked"
)

// Connection holds the credentials exchanged with one peer. The inbound secret is
// what the peer presents to us and is stored hashed. The outbound token is what we
// present to the peer and is stored sealed with a key derived from the master key.
type Connection struct {
	Identity           string
	Status             ConnectionStatus
	InboundSecretHash  string
	OutboundToken      []byte
	OutboundTokenNonce []byte
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsActive reports whether the peer may send to this host.
func (c *Connection) IsActive() bool {
	return c.Status == ConnectionActive
}
