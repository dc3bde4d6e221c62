package app

import (
	"fmt"

	inboxRepository "github.com/allisson/peertransfer/internal/inbox/repository"
	inboxService "github.com/allisson/peertransfer/internal/inbox/service"
	inboxUseCase "github.com/allisson/peertransfer/internal/inbox/usecase"
)

// InboxRepository returns the inbox repository.
func (c *Container) InboxRepository() (inboxUseCase.InboxRepository, error) {
	var err error
	c.inboxRepoInit.Do(func() {
		c.inboxRepo, err = c.initInboxRepository()
		if err != nil {
			c.initErrors["inboxRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["inboxRepo"]; exists {
		return nil, storedErr
	}
	return c.inboxRepo, nil
}

// AuditEventRepository returns the transfer audit event repository.
func (c *Container) AuditEventRepository() (inboxUseCase.AuditEventRepository, error) {
	var err error
	c.auditEventRepoInit.Do(func() {
		c.auditEventRepo, err = c.initAuditEventRepository()
		if err != nil {
			c.initErrors["auditEventRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditEventRepo"]; exists {
		return nil, storedErr
	}
	return c.auditEventRepo, nil
}

// InboxUseCase returns the inbox use case.
func (c *Container) InboxUseCase() (inboxUseCase.InboxUseCase, error) {
	var err error
	c.inboxUseCaseInit.Do(func() {
		c.inboxUseCase, err = c.initInboxUseCase()
		if err != nil {
			c.initErrors["inboxUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["inboxUseCase"]; exists {
		return nil, storedErr
	}
	return c.inboxUseCase, nil
}

// AuditWriter returns the signed transfer audit writer.
func (c *Container) AuditWriter() (inboxUseCase.AuditWriter, error) {
	var err error
	c.auditWriterInit.Do(func() {
		c.auditWriter, err = c.initAuditWriter()
		if err != nil {
			c.initErrors["auditWriter"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditWriter"]; exists {
		return nil, storedErr
	}
	return c.auditWriter, nil
}

// Acceptor returns the acceptor routing received transfers into the inbox.
func (c *Container) Acceptor() (inboxUseCase.Acceptor, error) {
	var err error
	c.acceptorInit.Do(func() {
		c.acceptor, err = c.initAcceptor()
		if err != nil {
			c.initErrors["acceptor"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["acceptor"]; exists {
		return nil, storedErr
	}
	return c.acceptor, nil
}

// Receiver returns the perimeter receiver, instrumented with business metrics.
func (c *Container) Receiver() (inboxUseCase.Receiver, error) {
	var err error
	c.receiverInit.Do(func() {
		c.receiver, err = c.initReceiver()
		if err != nil {
			c.initErrors["receiver"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["receiver"]; exists {
		return nil, storedErr
	}
	return c.receiver, nil
}

func (c *Container) initInboxRepository() (inboxUseCase.InboxRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for inbox repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return inboxRepository.NewPostgreSQLInboxRepository(db, c.config.HostIdentity), nil
	case "mysql":
		return inboxRepository.NewMySQLInboxRepository(db, c.config.HostIdentity), nil
	default:
		return nil, c.unsupportedDriver()
	}
}

func (c *Container) initAuditEventRepository() (inboxUseCase.AuditEventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit event repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return inboxRepository.NewPostgreSQLAuditEventRepository(db, c.config.HostIdentity), nil
	case "mysql":
		return inboxRepository.NewMySQLAuditEventRepository(db, c.config.HostIdentity), nil
	default:
		return nil, c.unsupportedDriver()
	}
}

func (c *Container) initInboxUseCase() (inboxUseCase.InboxUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for inbox use case: %w", err)
	}

	repo, err := c.InboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get inbox repository for inbox use case: %w", err)
	}

	return inboxUseCase.NewInboxUseCase(c.config.InboxPopTimeout, txManager, repo, c.Logger()), nil
}

func (c *Container) initAuditWriter() (inboxUseCase.AuditWriter, error) {
	repo, err := c.AuditEventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit event repository for audit writer: %w", err)
	}

	keyDeriver, err := c.KeyDeriver()
	if err != nil {
		return nil, fmt.Errorf("failed to get key deriver for audit writer: %w", err)
	}

	return inboxUseCase.NewAuditWriter(repo, inboxService.NewAuditSigner(), keyDeriver, c.Logger()), nil
}

func (c *Container) initAcceptor() (inboxUseCase.Acceptor, error) {
	audit, err := c.AuditWriter()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit writer for acceptor: %w", err)
	}

	inbox, err := c.InboxUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get inbox use case for acceptor: %w", err)
	}

	return inboxUseCase.NewAcceptor(audit, inbox), nil
}

func (c *Container) initReceiver() (inboxUseCase.Receiver, error) {
	connectionUC, err := c.ConnectionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection use case for receiver: %w", err)
	}

	hostKeyUC, err := c.HostKeyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get host key use case for receiver: %w", err)
	}

	storage, err := c.DriveStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to get drive storage for receiver: %w", err)
	}

	acceptor, err := c.Acceptor()
	if err != nil {
		return nil, fmt.Errorf("failed to get acceptor for receiver: %w", err)
	}

	audit, err := c.AuditWriter()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit writer for receiver: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for receiver: %w", err)
	}

	filters := []inboxUseCase.TransferFilter{
		inboxUseCase.NewActiveConnectionFilter(connectionUC),
		inboxUseCase.NewPayloadSizeFilter(c.config.PeerMaxPayloadBytes),
	}

	receiver := inboxUseCase.NewReceiver(
		c.config.HostIdentity,
		filters,
		hostKeyUC,
		storage,
		acceptor,
		audit,
		c.Logger(),
	)

	return inboxUseCase.NewReceiverWithMetrics(receiver, businessMetrics), nil
}
