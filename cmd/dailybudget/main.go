package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"dailybudget/internal/cache"
	"dailybudget/internal/cli"
	"dailybudget/internal/core"
	apphttp "dailybudget/internal/http"
	applog "dailybudget/internal/log"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(nil, applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg, applog.ComponentApp)

	logger.Info("Starting dailybudget", applog.FieldOperation, applog.OpStartup, "port", cfg.Port)

	rt, err := cli.NewRuntime(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize budget service", applog.FieldError, err)
		os.Exit(1)
	}

	caches := cache.NewManager()
	caches.Register(rt.Service.ViewCache())
	caches.StartCleanup(10 * time.Minute)

	store := rt.Components.Store
	srv := apphttp.NewServer(":"+cfg.Port, rt.Service, apphttp.Options{
		Logger: logger,
		Ready: func(ctx context.Context) error {
			_, err := store.Load(ctx, core.NewPeriodKey(time.Now()))
			return err
		},
	})

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown failed", applog.FieldError, err)
		}
		caches.Stop()
		if err := rt.Close(); err != nil {
			logger.Error("Failed to release backends", applog.FieldError, err)
		}
	})

	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", applog.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
