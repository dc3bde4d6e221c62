package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/peertransfer/internal/app"
	"github.com/allisson/peertransfer/internal/config"
)

// backgroundRunner is a long running loop stopped by cancelling its context.
type backgroundRunner interface {
	Start(ctx context.Context) error
}

// RunServer starts the HTTP server, the metrics server and, unless disabled, the
// outbox worker and key queue sweeper. Blocks until SIGINT/SIGTERM or a fatal error,
// then shuts everything down within DBConnMaxLifetime.
func RunServer(ctx context.Context, version string, withWorkers bool) error {
	cfg := config.Load()

	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting server",
		slog.String("version", version),
		slog.Bool("workers", withWorkers),
	)

	defer closeContainer(container, logger)

	// Initializes every dependency of the owner and peer APIs
	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	var runners []backgroundRunner
	if withWorkers {
		runners, err = workerRunners(container)
		if err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	serverErr := make(chan error, 2+len(runners))
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErr <- fmt.Errorf("api server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				serverErr <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	workers := startRunners(ctx, runners, serverErr)

	var shutdownErrors []error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error, initiating shutdown", slog.Any("error", err))
		shutdownErrors = append(shutdownErrors, err)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", err))
	}

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

// workerRunners returns the outbox worker and the key queue sweeper.
func workerRunners(container *app.Container) ([]backgroundRunner, error) {
	worker, err := container.OutboxWorker()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize outbox worker: %w", err)
	}

	sweeper, err := container.KeyQueueSweeper()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize key queue sweeper: %w", err)
	}

	return []backgroundRunner{worker, sweeper}, nil
}

// startRunners starts each runner in its own goroutine. A runner returning an error
// other than a context cancellation is reported on errs. The returned group is done
// once every runner has returned.
func startRunners(ctx context.Context, runners []backgroundRunner, errs chan<- error) *errgroup.Group {
	g := &errgroup.Group{}
	for _, runner := range runners {
		g.Go(func() error {
			if err := runner.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errs <- fmt.Errorf("background worker error: %w", err)
			}
			return nil
		})
	}
	return g
}

// waitRunners blocks until every runner of g has returned or shutdownCtx is done.
// The runners' context must already be cancelled.
func waitRunners(shutdownCtx context.Context, g *errgroup.Group) error {
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-shutdownCtx.Done():
		return fmt.Errorf("background workers did not stop: %w", shutdownCtx.Err())
	}
}
