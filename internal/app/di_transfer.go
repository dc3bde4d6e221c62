package app

import (
	"fmt"

	keyQueueRepository "github.com/allisson/peertransfer/internal/keyqueue/repository"
	keyQueueUseCase "github.com/allisson/peertransfer/internal/keyqueue/usecase"
	outboxRepository "github.com/allisson/peertransfer/internal/outbox/repository"
	outboxUseCase "github.com/allisson/peertransfer/internal/outbox/usecase"
	transferRepository "github.com/allisson/peertransfer/internal/transfer/repository"
	transferService "github.com/allisson/peertransfer/internal/transfer/service"
	transferUseCase "github.com/allisson/peertransfer/internal/transfer/usecase"
)

// KeyQueueRepository returns the key-encryption retry queue repository.
func (c *Container) KeyQueueRepository() (keyQueueUseCase.KeyQueueRepository, error) {
	var err error
	c.keyQueueRepoInit.Do(func() {
		c.keyQueueRepo, err = c.initKeyQueueRepository()
		if err != nil {
			c.initErrors["keyQueueRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyQueueRepo"]; exists {
		return nil, storedErr
	}
	return c.keyQueueRepo, nil
}

// KeyQueueUseCase returns the key-encryption retry queue use case.
func (c *Container) KeyQueueUseCase() (keyQueueUseCase.KeyQueueUseCase, error) {
	var err error
	c.keyQueueUseCaseInit.Do(func() {
		var repo keyQueueUseCase.KeyQueueRepository
		repo, err = c.KeyQueueRepository()
		if err != nil {
			err = fmt.Errorf("failed to get key queue repository for key queue use case: %w", err)
			c.initErrors["keyQueueUseCase"] = err
			return
		}
		c.keyQueueUseCase = keyQueueUseCase.NewKeyQueueUseCase(repo)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyQueueUseCase"]; exists {
		return nil, storedErr
	}
	return c.keyQueueUseCase, nil
}

// OutboxRepository returns the peer outbox repository.
func (c *Container) OutboxRepository() (outboxUseCase.OutboxRepository, error) {
	var err error
	c.outboxRepoInit.Do(func() {
		c.outboxRepo, err = c.initOutboxRepository()
		if err != nil {
			c.initErrors["outboxRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxRepo"]; exists {
		return nil, storedErr
	}
	return c.outboxRepo, nil
}

// OutboxUseCase returns the peer outbox use case, instrumented with business metrics.
func (c *Container) OutboxUseCase() (outboxUseCase.OutboxUseCase, error) {
	var err error
	c.outboxUseCaseInit.Do(func() {
		c.outboxUseCase, err = c.initOutboxUseCase()
		if err != nil {
			c.initErrors["outboxUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxUseCase"]; exists {
		return nil, storedErr
	}
	return c.outboxUseCase, nil
}

// RecipientKeyRepository returns the store of per-recipient transfer key headers.
func (c *Container) RecipientKeyRepository() (transferUseCase.RecipientKeyRepository, error) {
	var err error
	c.recipientKeyRepoInit.Do(func() {
		c.recipientKeyRepo, err = c.initRecipientKeyRepository()
		if err != nil {
			c.initErrors["recipientKeyRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recipientKeyRepo"]; exists {
		return nil, storedErr
	}
	return c.recipientKeyRepo, nil
}

// HistoryRepository returns the transfer history repository.
func (c *Container) HistoryRepository() (transferUseCase.HistoryRepository, error) {
	var err error
	c.historyRepoInit.Do(func() {
		c.historyRepo, err = c.initHistoryRepository()
		if err != nil {
			c.initErrors["historyRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["historyRepo"]; exists {
		return nil, storedErr
	}
	return c.historyRepo, nil
}

// PeerTransferClient returns the client of the peer drive endpoints.
func (c *Container) PeerTransferClient() (transferService.PeerTransferClient, error) {
	var err error
	c.peerTransferClientInit.Do(func() {
		c.peerTransferClient, err = c.initPeerTransferClient()
		if err != nil {
			c.initErrors["peerTransferClient"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["peerTransferClient"]; exists {
		return nil, storedErr
	}
	return c.peerTransferClient, nil
}

// TransferKeyPreparer returns the preparer wrapping transfer keys for recipients.
func (c *Container) TransferKeyPreparer() (transferUseCase.TransferKeyPreparer, error) {
	var err error
	c.transferKeyPreparerInit.Do(func() {
		c.transferKeyPreparer, err = c.initTransferKeyPreparer()
		if err != nil {
			c.initErrors["transferKeyPreparer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["transferKeyPreparer"]; exists {
		return nil, storedErr
	}
	return c.transferKeyPreparer, nil
}

// Sender returns the outbox item sender.
func (c *Container) Sender() (transferUseCase.Sender, error) {
	var err error
	c.senderInit.Do(func() {
		c.sender, err = c.initSender()
		if err != nil {
			c.initErrors["sender"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sender"]; exists {
		return nil, storedErr
	}
	return c.sender, nil
}

// TransitService returns the owner-facing transit service, instrumented with business metrics.
func (c *Container) TransitService() (transferUseCase.TransitService, error) {
	var err error
	c.transitServiceInit.Do(func() {
		c.transitService, err = c.initTransitService()
		if err != nil {
			c.initErrors["transitService"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["transitService"]; exists {
		return nil, storedErr
	}
	return c.transitService, nil
}

// OutboxWorker returns the background worker draining the peer outbox.
func (c *Container) OutboxWorker() (*transferUseCase.Worker, error) {
	var err error
	c.outboxWorkerInit.Do(func() {
		c.outboxWorker, err = c.initOutboxWorker()
		if err != nil {
			c.initErrors["outboxWorker"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxWorker"]; exists {
		return nil, storedErr
	}
	return c.outboxWorker, nil
}

// KeyQueueSweeper returns the background sweeper of the key-encryption retry queue.
func (c *Container) KeyQueueSweeper() (*keyQueueUseCase.Sweeper, error) {
	var err error
	c.keyQueueSweeperInit.Do(func() {
		c.keyQueueSweeper, err = c.initKeyQueueSweeper()
		if err != nil {
			c.initErrors["keyQueueSweeper"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyQueueSweeper"]; exists {
		return nil, storedErr
	}
	return c.keyQueueSweeper, nil
}

func (c *Container) initKeyQueueRepository() (keyQueueUseCase.KeyQueueRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for key queue repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return keyQueueRepository.NewPostgreSQLKeyQueueRepository(db, c.config.HostIdentity), nil
	case "mysql":
		return keyQueueRepository.NewMySQLKeyQueueRepository(db, c.config.HostIdentity), nil
	default:
		return nil, c.unsupportedDriver()
	}
}

func (c *Container) initOutboxRepository() (outboxUseCase.OutboxRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for outbox repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return outboxRepository.NewPostgreSQLOutboxRepository(db, c.config.HostIdentity), nil
	case "mysql":
		return outboxRepository.NewMySQLOutboxRepository(db, c.config.HostIdentity), nil
	default:
		return nil, c.unsupportedDriver()
	}
}

func (c *Container) initOutboxUseCase() (outboxUseCase.OutboxUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for outbox use case: %w", err)
	}

	repo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for outbox use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for outbox use case: %w", err)
	}

	useCase := outboxUseCase.NewOutboxUseCase(
		outboxUseCase.Config{
			RetryInterval: c.config.OutboxRetryInterval,
			MaxBackoff:    c.config.OutboxMaxBackoff,
			ClaimTimeout:  c.config.OutboxClaimTimeout,
		},
		txManager,
		repo,
		c.Logger(),
	)

	return outboxUseCase.NewOutboxUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initRecipientKeyRepository() (transferUseCase.RecipientKeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for recipient key repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return transferRepository.NewPostgreSQLRecipientKeyRepository(db, c.config.HostIdentity), nil
	case "mysql":
		return transferRepository.NewMySQLRecipientKeyRepository(db, c.config.HostIdentity), nil
	default:
		return nil, c.unsupportedDriver()
	}
}

func (c *Container) initHistoryRepository() (transferUseCase.HistoryRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for history repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return transferRepository.NewPostgreSQLTransferHistoryRepository(db, c.config.HostIdentity), nil
	case "mysql":
		return transferRepository.NewMySQLTransferHistoryRepository(db, c.config.HostIdentity), nil
	default:
		return nil, c.unsupportedDriver()
	}
}

func (c *Container) initPeerTransferClient() (transferService.PeerTransferClient, error) {
	clients, err := c.PeerClientFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to get peer client factory for peer transfer client: %w", err)
	}
	return transferService.NewPeerTransferClient(clients), nil
}

func (c *Container) initTransferKeyPreparer() (transferUseCase.TransferKeyPreparer, error) {
	directory, err := c.PublicKeyDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get public key directory for key preparer: %w", err)
	}

	storage, err := c.DriveStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to get drive storage for key preparer: %w", err)
	}

	keyDeriver, err := c.KeyDeriver()
	if err != nil {
		return nil, fmt.Errorf("failed to get key deriver for key preparer: %w", err)
	}

	recipientKeys, err := c.RecipientKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get recipient key repository for key preparer: %w", err)
	}

	outbox, err := c.OutboxUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox use case for key preparer: %w", err)
	}

	history, err := c.HistoryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get history repository for key preparer: %w", err)
	}

	return transferUseCase.NewTransferKeyPreparer(
		directory,
		storage,
		c.KeyWrapper(),
		keyDeriver,
		recipientKeys,
		outbox,
		history,
		c.Logger(),
	), nil
}

func (c *Container) initSender() (transferUseCase.Sender, error) {
	recipientKeys, err := c.RecipientKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get recipient key repository for sender: %w", err)
	}

	storage, err := c.DriveStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to get drive storage for sender: %w", err)
	}

	client, err := c.PeerTransferClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get peer transfer client for sender: %w", err)
	}

	outbox, err := c.OutboxUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox use case for sender: %w", err)
	}

	keyQueue, err := c.KeyQueueUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get key queue use case for sender: %w", err)
	}

	history, err := c.HistoryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get history repository for sender: %w", err)
	}

	return transferUseCase.NewSender(
		recipientKeys,
		storage,
		client,
		outbox,
		keyQueue,
		history,
		c.config.OutboxSendConcurrency,
		c.Logger(),
	), nil
}

func (c *Container) initTransitService() (transferUseCase.TransitService, error) {
	storage, err := c.DriveStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to get drive storage for transit service: %w", err)
	}

	keyDeriver, err := c.KeyDeriver()
	if err != nil {
		return nil, fmt.Errorf("failed to get key deriver for transit service: %w", err)
	}

	preparer, err := c.TransferKeyPreparer()
	if err != nil {
		return nil, fmt.Errorf("failed to get key preparer for transit service: %w", err)
	}

	keyQueue, err := c.KeyQueueUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get key queue use case for transit service: %w", err)
	}

	outbox, err := c.OutboxUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox use case for transit service: %w", err)
	}

	sender, err := c.Sender()
	if err != nil {
		return nil, fmt.Errorf("failed to get sender for transit service: %w", err)
	}

	history, err := c.HistoryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get history repository for transit service: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for transit service: %w", err)
	}

	service := transferUseCase.NewTransitService(
		transferUseCase.Config{
			InstantSendMaxBytes:      c.config.InstantSendMaxBytes,
			InstantSendMaxRecipients: c.config.InstantSendMaxRecipients,
			InstantSendTimeout:       c.config.InstantSendTimeout,
		},
		storage,
		c.KeyWrapper(),
		keyDeriver,
		preparer,
		keyQueue,
		outbox,
		sender,
		history,
		c.Logger(),
	)

	return transferUseCase.NewTransitServiceWithMetrics(service, businessMetrics), nil
}

func (c *Container) initOutboxWorker() (*transferUseCase.Worker, error) {
	outbox, err := c.OutboxUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox use case for outbox worker: %w", err)
	}

	sender, err := c.Sender()
	if err != nil {
		return nil, fmt.Errorf("failed to get sender for outbox worker: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for outbox worker: %w", err)
	}

	return transferUseCase.NewWorker(
		transferUseCase.WorkerConfig{
			Interval:  c.config.OutboxInterval,
			BatchSize: c.config.OutboxBatchSize,
		},
		outbox,
		sender,
		businessMetrics,
		c.Logger(),
	), nil
}

func (c *Container) initKeyQueueSweeper() (*keyQueueUseCase.Sweeper, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for key queue sweeper: %w", err)
	}

	repo, err := c.KeyQueueRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get key queue repository for key queue sweeper: %w", err)
	}

	preparer, err := c.TransferKeyPreparer()
	if err != nil {
		return nil, fmt.Errorf("failed to get key preparer for key queue sweeper: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for key queue sweeper: %w", err)
	}

	return keyQueueUseCase.NewSweeper(
		keyQueueUseCase.Config{
			Interval:      c.config.KeyQueueInterval,
			BatchSize:     c.config.KeyQueueBatchSize,
			RetryInterval: c.config.KeyQueueRetryInterval,
			MaxBackoff:    c.config.KeyQueueMaxBackoff,
			MaxAttempts:   c.config.KeyQueueMaxAttempts,
			MaxAge:        c.config.KeyQueueMaxAge,
		},
		txManager,
		repo,
		preparer,
		businessMetrics,
		c.Logger(),
	), nil
}
