package app

import (
	"fmt"

	peerRepository "github.com/allisson/peertransfer/internal/peer/repository"
	peerService "github.com/allisson/peertransfer/internal/peer/service"
	peerUseCase "github.com/allisson/peertransfer/internal/peer/usecase"
	publicKeyRepository "github.com/allisson/peertransfer/internal/publickey/repository"
	publicKeyService "github.com/allisson/peertransfer/internal/publickey/service"
	publicKeyUseCase "github.com/allisson/peertransfer/internal/publickey/usecase"
)

// ConnectionRepository returns the peer connection repository.
func (c *Container) ConnectionRepository() (peerUseCase.ConnectionRepository, error) {
	var err error
	c.connectionRepoInit.Do(func() {
		c.connectionRepo, err = c.initConnectionRepository()
		if err != nil {
			c.initErrors["connectionRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["connectionRepo"]; exists {
		return nil, storedErr
	}
	return c.connectionRepo, nil
}

// ConnectionUseCase returns the peer connection use case.
func (c *Container) ConnectionUseCase() (peerUseCase.ConnectionUseCase, error) {
	var err error
	c.connectionUseCaseInit.Do(func() {
		c.connectionUseCase, err = c.initConnectionUseCase()
		if err != nil {
			c.initErrors["connectionUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["connectionUseCase"]; exists {
		return nil, storedErr
	}
	return c.connectionUseCase, nil
}

// PeerClientFactory returns the factory of authenticated clients to other hosts.
func (c *Container) PeerClientFactory() (peerService.ClientFactory, error) {
	var err error
	c.peerClientFactoryInit.Do(func() {
		c.peerClientFactory, err = c.initPeerClientFactory()
		if err != nil {
			c.initErrors["peerClientFactory"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["peerClientFactory"]; exists {
		return nil, storedErr
	}
	return c.peerClientFactory, nil
}

// PublicKeyRepository returns the cache of recipient transit public keys.
func (c *Container) PublicKeyRepository() (publicKeyUseCase.PublicKeyRepository, error) {
	var err error
	c.publicKeyRepoInit.Do(func() {
		c.publicKeyRepo, err = c.initPublicKeyRepository()
		if err != nil {
			c.initErrors["publicKeyRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["publicKeyRepo"]; exists {
		return nil, storedErr
	}
	return c.publicKeyRepo, nil
}

// PublicKeyDirectory returns the recipient public key directory.
func (c *Container) PublicKeyDirectory() (publicKeyUseCase.Directory, error) {
	var err error
	c.publicKeyDirectoryInit.Do(func() {
		c.publicKeyDirectory, err = c.initPublicKeyDirectory()
		if err != nil {
			c.initErrors["publicKeyDirectory"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["publicKeyDirectory"]; exists {
		return nil, storedErr
	}
	return c.publicKeyDirectory, nil
}

func (c *Container) initConnectionRepository() (peerUseCase.ConnectionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for connection repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return peerRepository.NewPostgreSQLConnectionRepository(db, c.config.HostIdentity), nil
	case "mysql":
		return peerRepository.NewMySQLConnectionRepository(db, c.config.HostIdentity), nil
	default:
		return nil, c.unsupportedDriver()
	}
}

func (c *Container) initConnectionUseCase() (peerUseCase.ConnectionUseCase, error) {
	repo, err := c.ConnectionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection repository for connection use case: %w", err)
	}

	keyDeriver, err := c.KeyDeriver()
	if err != nil {
		return nil, fmt.Errorf("failed to get key deriver for connection use case: %w", err)
	}

	return peerUseCase.NewConnectionUseCase(
		repo,
		peerService.NewSecretService(),
		c.AEADManager(),
		keyDeriver,
		c.config.HostIdentity,
	), nil
}

func (c *Container) initPeerClientFactory() (peerService.ClientFactory, error) {
	connectionUC, err := c.ConnectionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection use case for peer client factory: %w", err)
	}

	return peerService.NewClientFactory(
		c.peerHTTPClient(),
		c.config.PeerScheme,
		c.config.PeerPort,
		c.config.HostIdentity,
		connectionUC,
	), nil
}

func (c *Container) initPublicKeyRepository() (publicKeyUseCase.PublicKeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for public key repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return publicKeyRepository.NewPostgreSQLPublicKeyRepository(db, c.config.HostIdentity), nil
	case "mysql":
		return publicKeyRepository.NewMySQLPublicKeyRepository(db, c.config.HostIdentity), nil
	default:
		return nil, c.unsupportedDriver()
	}
}

func (c *Container) initPublicKeyDirectory() (publicKeyUseCase.Directory, error) {
	repo, err := c.PublicKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get public key repository for directory: %w", err)
	}

	clients, err := c.PeerClientFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to get peer client factory for directory: %w", err)
	}

	return publicKeyUseCase.NewDirectory(repo, publicKeyService.NewFetcher(clients), c.Logger()), nil
}
