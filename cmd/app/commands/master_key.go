package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	cryptoService "github.com/allisson/peertransfer/internal/crypto/service"
)

// RunCreateMasterKey generates a 32-byte master key and prints it as MASTER_KEY.
// When kmsKeyURI is set the key is encrypted with the KMS keeper first and the printed
// value is the KMS ciphertext; the host decrypts it at startup through KMS_KEY_URI.
//
// For local development, use kmsKeyURI="base64key://<32-byte-base64-key>". Leaving it
// empty prints the raw key, which must never be used in production.
func RunCreateMasterKey(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	kmsKeyURI string,
) error {
	masterKey := make([]byte, cryptoDomain.MasterKeySize)
	if _, err := rand.Read(masterKey); err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}
	defer cryptoDomain.Zero(masterKey)

	if kmsKeyURI == "" {
		logger.Warn("master key generated without KMS encryption")

		_, _ = fmt.Fprintln(writer, "# Master Key Configuration (plaintext, development only)")
		_, _ = fmt.Fprintf(writer, "MASTER_KEY=\"%s\"\n", base64.StdEncoding.EncodeToString(masterKey))
		return nil
	}

	keeper, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			logger.Warn("failed to close KMS keeper", slog.Any("error", closeErr))
		}
	}()

	ciphertext, err := keeper.Encrypt(ctx, masterKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt master key with KMS: %w", err)
	}

	logger.Info("master key generated", slog.Bool("kms", true))

	_, _ = fmt.Fprintln(writer, "# Master Key Configuration (KMS Mode)")
	_, _ = fmt.Fprintln(writer, "# Copy these environment variables to your .env file or secrets manager")
	_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	_, _ = fmt.Fprintf(writer, "MASTER_KEY=\"%s\"\n", base64.StdEncoding.EncodeToString(ciphertext))

	return nil
}
