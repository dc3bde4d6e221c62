package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/peertransfer/cmd/app/commands"
	"github.com/allisson/peertransfer/internal/app"
	"github.com/allisson/peertransfer/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "no-workers",
					Value: false,
					Usage: "Do not run the outbox worker and key queue sweeper in this process",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version, !cmd.Bool("no-workers"))
			},
		},
		{
			Name:  "worker",
			Usage: "Run the outbox worker and key queue sweeper without the HTTP API",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunWorker(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "outbox-status",
			Usage: "Show the depth of the outbox, key queue and inbox",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				outboxUseCase, err := container.OutboxUseCase()
				if err != nil {
					return err
				}

				keyQueueUseCase, err := container.KeyQueueUseCase()
				if err != nil {
					return err
				}

				inboxUseCase, err := container.InboxUseCase()
				if err != nil {
					return err
				}

				return commands.RunOutboxStatus(
					ctx,
					outboxUseCase,
					keyQueueUseCase,
					inboxUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
	}
}
