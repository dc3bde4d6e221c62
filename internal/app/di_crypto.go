package app

import (
	"context"
	"fmt"
	"log/slog"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	cryptoRepository "github.com/allisson/peertransfer/internal/crypto/repository"
	cryptoService "github.com/allisson/peertransfer/internal/crypto/service"
	cryptoUseCase "github.com/allisson/peertransfer/internal/crypto/usecase"
)

// KMSService returns the KMS service.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// MasterKey returns the master key loaded from MASTER_KEY, decrypted through
// KMS_KEY_URI when set.
func (c *Container) MasterKey() (*cryptoDomain.MasterKey, error) {
	var err error
	c.masterKeyInit.Do(func() {
		c.masterKey, err = c.initMasterKey()
		if err != nil {
			c.initErrors["masterKey"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["masterKey"]; exists {
		return nil, storedErr
	}
	return c.masterKey, nil
}

// AEADManager returns the AEAD manager service.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// KeyWrapper returns the key header wrapper.
func (c *Container) KeyWrapper() cryptoService.KeyWrapper {
	c.keyWrapperInit.Do(func() {
		c.keyWrapper = cryptoService.NewKeyWrapper()
	})
	return c.keyWrapper
}

// KeyDeriver returns the deriver of every key rooted at the master key.
func (c *Container) KeyDeriver() (cryptoService.KeyDeriver, error) {
	var err error
	c.keyDeriverInit.Do(func() {
		c.keyDeriver, err = c.initKeyDeriver()
		if err != nil {
			c.initErrors["keyDeriver"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyDeriver"]; exists {
		return nil, storedErr
	}
	return c.keyDeriver, nil
}

// HostKeyRepository returns the host transit key repository.
func (c *Container) HostKeyRepository() (cryptoUseCase.HostKeyRepository, error) {
	var err error
	c.hostKeyRepoInit.Do(func() {
		c.hostKeyRepo, err = c.initHostKeyRepository()
		if err != nil {
			c.initErrors["hostKeyRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["hostKeyRepo"]; exists {
		return nil, storedErr
	}
	return c.hostKeyRepo, nil
}

// HostKeyUseCase returns the host transit key use case.
func (c *Container) HostKeyUseCase() (cryptoUseCase.HostKeyUseCase, error) {
	var err error
	c.hostKeyUseCaseInit.Do(func() {
		c.hostKeyUseCase, err = c.initHostKeyUseCase()
		if err != nil {
			c.initErrors["hostKeyUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["hostKeyUseCase"]; exists {
		return nil, storedErr
	}
	return c.hostKeyUseCase, nil
}

func (c *Container) initMasterKey() (*cryptoDomain.MasterKey, error) {
	ctx := context.Background()

	var keeper cryptoDomain.KMSKeeper
	if c.config.KMSKeyURI != "" {
		k, err := c.KMSService().OpenKeeper(ctx, c.config.KMSKeyURI)
		if err != nil {
			return nil, fmt.Errorf("failed to open KMS keeper for master key: %w", err)
		}
		defer func() {
			if closeErr := k.Close(); closeErr != nil {
				c.Logger().Warn("failed to close KMS keeper", slog.Any("error", closeErr))
			}
		}()
		keeper = k
	}

	masterKey, err := cryptoDomain.LoadMasterKey(ctx, c.config.MasterKey, keeper)
	if err != nil {
		return nil, fmt.Errorf("failed to load master key: %w", err)
	}
	return masterKey, nil
}

func (c *Container) initKeyDeriver() (cryptoService.KeyDeriver, error) {
	masterKey, err := c.MasterKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key for key deriver: %w", err)
	}
	return cryptoService.NewKeyDeriver(masterKey), nil
}

func (c *Container) initHostKeyRepository() (cryptoUseCase.HostKeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for host key repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return cryptoRepository.NewPostgreSQLHostKeyRepository(db, c.config.HostIdentity), nil
	case "mysql":
		return cryptoRepository.NewMySQLHostKeyRepository(db, c.config.HostIdentity), nil
	default:
		return nil, c.unsupportedDriver()
	}
}

func (c *Container) initHostKeyUseCase() (cryptoUseCase.HostKeyUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for host key use case: %w", err)
	}

	repo, err := c.HostKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get host key repository for host key use case: %w", err)
	}

	keyDeriver, err := c.KeyDeriver()
	if err != nil {
		return nil, fmt.Errorf("failed to get key deriver for host key use case: %w", err)
	}

	return cryptoUseCase.NewHostKeyUseCase(
		txManager,
		repo,
		c.AEADManager(),
		keyDeriver,
		c.KeyWrapper(),
		cryptoDomain.AESGCM,
		c.config.HostIdentity,
	), nil
}
