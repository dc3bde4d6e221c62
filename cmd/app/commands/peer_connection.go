package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	peerUseCase "github.com/allisson/peertransfer/internal/peer/usecase"
)

// RunCreatePeerConnection records an active connection with identity. outboundToken is
// the secret the peer issued to this host; the returned inbound secret must be handed
// to the peer once and is not recoverable afterwards.
func RunCreatePeerConnection(
	ctx context.Context,
	connectionUseCase peerUseCase.ConnectionUseCase,
	logger *slog.Logger,
	writer io.Writer,
	identity string,
	outboundToken string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("creating peer connection", slog.String("identity", identity))

	secret, err := connectionUseCase.Create(ctx, identity, outboundToken)
	if err != nil {
		return fmt.Errorf("failed to create peer connection: %w", err)
	}

	logger.Info("peer connection created", slog.String("identity", identity))

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"identity":       identity,
			"inbound_secret": secret,
		})
	}

	_, _ = fmt.Fprintln(writer, "Peer connection created successfully")
	_, _ = fmt.Fprintf(writer, "Identity: %s\n", identity)
	_, _ = fmt.Fprintf(writer, "Inbound Secret: %s\n", secret)
	_, _ = fmt.Fprintln(writer, "\nWARNING: Hand this secret to the peer now. It will not be shown again.")
	return nil
}

// RunBlockPeerConnection blocks identity. Its transfers are rejected from then on.
func RunBlockPeerConnection(
	ctx context.Context,
	connectionUseCase peerUseCase.ConnectionUseCase,
	logger *slog.Logger,
	writer io.Writer,
	identity string,
) error {
	if err := connectionUseCase.Block(ctx, identity); err != nil {
		return fmt.Errorf("failed to block peer connection: %w", err)
	}

	logger.Info("peer connection blocked", slog.String("identity", identity))
	_, _ = fmt.Fprintf(writer, "Peer connection %s blocked\n", identity)
	return nil
}
