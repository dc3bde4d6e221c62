package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/allisson/peertransfer/internal/app"
	"github.com/allisson/peertransfer/internal/config"
)

// RunWorker runs the outbox worker and the key queue sweeper without the HTTP API.
// The metrics server is started when metrics are enabled.
func RunWorker(ctx context.Context, version string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting worker", slog.String("version", version))

	defer closeContainer(container, logger)

	runners, err := workerRunners(container)
	if err != nil {
		return err
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	workerErr := make(chan error, 1+len(runners))
	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				workerErr <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	workers := startRunners(ctx, runners, workerErr)

	var shutdownErrors []error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-workerErr:
		logger.Error("worker error, initiating shutdown", slog.Any("error", err))
		shutdownErrors = append(shutdownErrors, err)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
	defer shutdownCancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	cancel()
	if err := waitRunners(shutdownCtx, workers); err != nil {
		shutdownErrors = append(shutdownErrors, err)
	}

	return errors.Join(shutdownErrors...)
}
