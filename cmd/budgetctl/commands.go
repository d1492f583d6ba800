package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dailybudget/internal/cli"
	"dailybudget/internal/core"
)

func init() {
	showCmd.Flags().StringVarP(&flagPolicy, "policy", "p", "", "Allocation policy (rsr or scr)")
	rootCmd.Flags().StringVarP(&flagPolicy, "policy", "p", "", "Allocation policy (rsr or scr)")

	rootCmd.AddCommand(showCmd, addCmd, rmCmd, resetCmd, policiesCmd, adviseCmd, pullCmd, scanCmd)
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the per-day allocation and summary of a period",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, _ []string) error {
	key, err := period()
	if err != nil {
		return err
	}
	return withRuntime(cmd, func(ctx context.Context, rt *cli.Runtime) error {
		view, err := rt.Service.View(ctx, key, "")
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), cli.RenderPeriod(view))
		return nil
	})
}

var addCmd = &cobra.Command{
	Use:   "add DAY AMOUNT [LABEL...]",
	Short: "Record an expense on a day",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := period()
		if err != nil {
			return err
		}
		day, err := parseDayArg(args[0])
		if err != nil {
			return err
		}
		amount, err := core.ParseAmount(args[1])
		if err != nil {
			return err
		}
		label := strings.Join(args[2:], " ")

		return withRuntime(cmd, func(ctx context.Context, rt *cli.Runtime) error {
			rec, err := rt.Service.AddExpense(ctx, key, day, amount, label)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s on %s-%02d (id %s)\n", core.FormatAmount(rec.Amount), key, day, rec.ID)
			return nil
		})
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm DAY ID",
	Short: "Remove an expense",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := period()
		if err != nil {
			return err
		}
		day, err := parseDayArg(args[0])
		if err != nil {
			return err
		}
		return withRuntime(cmd, func(ctx context.Context, rt *cli.Runtime) error {
			if err := rt.Service.RemoveExpense(ctx, key, day, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from %s-%02d\n", args[1], key, day)
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear every expense of the period",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		key, err := period()
		if err != nil {
			return err
		}
		return withRuntime(cmd, func(ctx context.Context, rt *cli.Runtime) error {
			l, err := rt.Service.Reset(ctx, key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %s (version %d)\n", key, l.Version)
			return nil
		})
	},
}

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "List the allocation policies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRuntime(cmd, func(_ context.Context, rt *cli.Runtime) error {
			fmt.Fprint(cmd.OutOrStdout(), cli.RenderPolicies(rt.Service.Policies(), rt.Service.DefaultPolicy()))
			return nil
		})
	},
}

var adviseCmd = &cobra.Command{
	Use:   "advise",
	Short: "Ask the AI advisor about the period (needs ANTHROPIC_API_KEY)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		key, err := period()
		if err != nil {
			return err
		}
		return withRuntime(cmd, func(ctx context.Context, rt *cli.Runtime) error {
			advice, err := rt.Service.Advise(ctx, key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), advice)
			return nil
		})
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Fetch the remote copy of the period and merge it locally",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		key, err := period()
		if err != nil {
			return err
		}
		return withRuntime(cmd, func(ctx context.Context, rt *cli.Runtime) error {
			l, changed, err := rt.Service.PullRemote(ctx, key)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is up to date (version %d)\n", key, l.Version)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s to version %d\n", key, l.Version)
			return nil
		})
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan DAY IMAGE",
	Short: "Read the total off a receipt photo and record it (needs ANTHROPIC_API_KEY)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := period()
		if err != nil {
			return err
		}
		day, err := parseDayArg(args[0])
		if err != nil {
			return err
		}
		image, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		mediaType := http.DetectContentType(image)
		if i := strings.IndexByte(mediaType, ';'); i >= 0 {
			mediaType = mediaType[:i]
		}

		return withRuntime(cmd, func(ctx context.Context, rt *cli.Runtime) error {
			rec, err := rt.Service.ScanReceipt(ctx, key, day, image, mediaType)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s from receipt on %s-%02d (id %s)\n", core.FormatAmount(rec.Amount), key, day, rec.ID)
			return nil
		})
	},
}

func parseDayArg(s string) (int, error) {
	day, err := strconv.Atoi(s)
	if err != nil {
		return 0, &core.ValidationError{Field: "day", Err: core.ErrInvalidDay}
	}
	return day, nil
}
