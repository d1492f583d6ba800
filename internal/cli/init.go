// Package cli holds the bootstrap shared by the binaries and the terminal
// rendering used by budgetctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"dailybudget/internal/advisor"
	"dailybudget/internal/backend"
	"dailybudget/internal/config"
	applog "dailybudget/internal/log"
	"dailybudget/internal/services"
)

// SetupLogger builds the process logger from LOG_LEVEL/LOG_FORMAT and makes
// it the slog default. cfg may be nil before configuration is loaded.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	lc := applog.DefaultConfig()
	lc.Component = component
	if cfg != nil {
		lc.Level = applog.ParseLevel(cfg.LogLevel)
		lc.Format = cfg.LogFormat
	}
	logger := applog.New(lc)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", applog.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// Runtime is a budget service together with the backends it owns.
type Runtime struct {
	Service    *services.BudgetService
	Components *backend.Components
	Config     backend.Config
}

// Close releases every backend resource.
func (r *Runtime) Close() error {
	if r.Components.Cleanup != nil {
		return r.Components.Cleanup()
	}
	return nil
}

// NewRuntime creates the configured backends and the budget service on top.
// The advisor is wired only when an Anthropic API key is present.
func NewRuntime(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*Runtime, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	target, err := cfg.DailyTarget()
	if err != nil {
		return nil, err
	}

	factory := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger)
	comps, err := factory.Create(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backends: %w", err)
	}

	deps := services.Deps{
		Store:     comps.Store,
		Remote:    comps.Remote,
		Publisher: comps.Publisher,
	}
	if cfg.AnthropicAPIKey != "" {
		ai, err := advisor.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		if err != nil {
			_ = comps.Cleanup()
			return nil, err
		}
		deps.Advisor = ai
		deps.Receipts = ai
	}

	svc, err := services.NewBudgetService(deps, services.Options{
		BaseDailyTarget: target,
		DefaultPolicy:   cfg.AllocationPolicy,
		MergePolicy:     cfg.SyncMergePolicy,
	})
	if err != nil {
		_ = comps.Cleanup()
		return nil, err
	}

	logger.Info("Budget service ready",
		applog.FieldBackend, string(bcfg.Store),
		"remote", string(bcfg.Remote),
		"events", string(bcfg.Events),
		applog.FieldPolicy, svc.DefaultPolicy(),
		"advisor", deps.Advisor != nil)

	return &Runtime{Service: svc, Components: comps, Config: bcfg}, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when cleanup is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
