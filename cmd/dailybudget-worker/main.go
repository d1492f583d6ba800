package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"dailybudget/internal/backend"
	"dailybudget/internal/cli"
	applog "dailybudget/internal/log"
	"dailybudget/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(nil, applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting dailybudget-worker", applog.FieldOperation, applog.OpStartup)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	if bcfg.Remote == backend.NoRemote {
		logger.Error("Worker needs a remote backend, set REMOTE_BACKEND")
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger)
	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, nil)

	if err := runWorker(ctx, logger, factory, bcfg, cfg.SyncInterval); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped", applog.FieldOperation, applog.OpShutdown)
}

// runWorker opens the backends, runs the consumer and the periodic sync until
// ctx ends or either fails, and releases the backends before returning.
func runWorker(ctx context.Context, logger *applog.Logger, factory backend.Factory, bcfg backend.Config, interval time.Duration) error {
	comps, err := factory.Create(ctx, bcfg)
	if err != nil {
		return fmt.Errorf("initialize backends: %w", err)
	}
	defer func() {
		if err := comps.Cleanup(); err != nil {
			logger.Error("Failed to release backends", applog.FieldError, err)
		}
	}()

	consumer, err := factory.CreateConsumer(ctx, bcfg)
	if err != nil {
		return fmt.Errorf("initialize consumer: %w", err)
	}

	syncWorker := worker.NewSyncWorker(comps.Store, comps.Remote)

	g, gctx := errgroup.WithContext(ctx)
	if consumer != nil {
		g.Go(func() error {
			defer consumer.Close()
			err := consumer.ConsumeLedgerChanged(gctx, syncWorker.HandleLedgerChanged)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("No events backend configured, relying on periodic sync only")
	}
	g.Go(func() error {
		return syncWorker.Run(gctx, interval)
	})
	return g.Wait()
}
