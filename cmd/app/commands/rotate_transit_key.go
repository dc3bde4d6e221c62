package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	cryptoUseCase "github.com/allisson/peertransfer/internal/crypto/usecase"
)

// RunRotateTransitKey generates a new host transit key pair and makes it the active
// one. Older pairs stay available to unwrap headers sent before the rotation; peers
// pick up the new public key when their cached copy expires.
//
// Requirements: Database must be migrated, MASTER_KEY must be set.
func RunRotateTransitKey(
	ctx context.Context,
	hostKeyUseCase cryptoUseCase.HostKeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("rotating host transit key")

	key, err := hostKeyUseCase.Rotate(ctx)
	if err != nil {
		return fmt.Errorf("failed to rotate host transit key: %w", err)
	}

	logger.Info("host transit key rotated",
		slog.String("key_id", key.ID.String()),
		slog.Uint64("crc32", uint64(key.Crc32)),
	)

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"id":         key.ID.String(),
			"crc32":      key.Crc32,
			"algorithm":  string(key.Algorithm),
			"created_at": key.CreatedAt.Format(time.RFC3339),
		})
	}

	_, _ = fmt.Fprintln(writer, "Host transit key rotated successfully")
	_, _ = fmt.Fprintf(writer, "ID: %s\n", key.ID)
	_, _ = fmt.Fprintf(writer, "CRC32: %d\n", key.Crc32)
	return nil
}
