package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/peertransfer/cmd/app/commands"
	"github.com/allisson/peertransfer/internal/app"
	"github.com/allisson/peertransfer/internal/config"
)

func getPeerCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-peer-connection",
			Usage: "Record an active connection with a peer host",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "identity",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Peer host identity (e.g., samwise.dotyou.cloud)",
				},
				&cli.StringFlag{
					Name:     "outbound-token",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Secret issued by the peer to authenticate this host",
				},
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

				connectionUseCase, err := container.ConnectionUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreatePeerConnection(
					ctx,
					connectionUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("identity"),
					cmd.String("outbound-token"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "block-peer-connection",
			Usage: "Block a peer host so its transfers are rejected",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "identity",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Peer host identity",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				connectionUseCase, err := container.ConnectionUseCase()
				if err != nil {
					return err
				}

				return commands.RunBlockPeerConnection(
					ctx,
					connectionUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("identity"),
				)
			},
		},
	}
}
