package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dailybudget/internal/cli"
	"dailybudget/internal/config"
	"dailybudget/internal/core"
	applog "dailybudget/internal/log"
)

var (
	flagYear    int
	flagMonth   int
	flagPolicy  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:          "budgetctl",
	Short:        "Daily budget allocation from the terminal",
	Long:         "Record expenses against a fixed daily target and see how the rest of the month is allocated.",
	SilenceUsage: true,
	RunE:         runShow,
}

func init() {
	now := time.Now()
	rootCmd.PersistentFlags().IntVarP(&flagYear, "year", "y", now.Year(), "Period year")
	rootCmd.PersistentFlags().IntVarP(&flagMonth, "month", "m", int(now.Month()), "Period month (1-12)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log backend activity to stderr")
}

// period returns the key selected by --year/--month.
func period() (core.PeriodKey, error) {
	key := core.PeriodKey{Year: flagYear, Month: flagMonth}
	if err := key.Validate(); err != nil {
		return core.PeriodKey{}, err
	}
	return key, nil
}

// withRuntime loads configuration, opens the backends, runs fn and releases them.
func withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *cli.Runtime) error) error {
	cli.LoadEnvFile()

	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := applog.New(applog.Config{Level: level, Component: applog.ComponentCLI, Output: os.Stderr})
	applog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flagPolicy != "" {
		cfg.AllocationPolicy = flagPolicy
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	rt, err := cli.NewRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "  warning: %v\n", err)
		}
	}()
	return fn(ctx, rt)
}
