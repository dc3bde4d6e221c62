// Package service fetches transit public keys from peer hosts.
package service

import (
	"context"

	peerService "github.com/allisson/peertransfer/internal/peer/service"
	publicKeyDomain "github.com/allisson/peertransfer/internal/publickey/domain"
)

// PublicKeyPath is where every host publishes its transit public key.
const PublicKeyPath = "/peer/v1/transit/publickey"

// Fetcher retrieves the published transit public key of a peer.
type Fetcher interface {
	Fetch(ctx context.Context, identity string) (*publicKeyDomain.TransitPublicKey, error)
}

type fetcher struct {
	clients peerService.ClientFactory
}

// Fetch GETs the key from identity. The result is not validated.
func (f *fetcher) Fetch(ctx context.Context, identity string) (*publicKeyDomain.TransitPublicKey, error) {
	client, err := f.clients.Client(ctx, identity)
	if err != nil {
		return nil, err
	}

	var key publicKeyDomain.TransitPublicKey
	if err := client.GetJSON(ctx, PublicKeyPath, &key); err != nil {
		return nil, err
	}

	key.Identity = identity
	return &key, nil
}

// NewFetcher creates a Fetcher on top of the peer client factory.
func NewFetcher(clients peerService.ClientFactory) Fetcher {
	return &fetcher{clients: clients}
}
