package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/solarcapture/internal/contracts"
	"github.com/wonny/solarcapture/internal/recompute"
)

// recomputeCmd groups the recompute runs
var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute daily metrics and rollups",
	Long: `Recomputes daily metrics from observations and rebuilds the rollups.

Subcommands:
  window  - trailing window (default SUMMARY_WINDOW_DAYS) or --from/--to
  full    - every (zone, month) of history, resumable
  rollup  - monthly, yearly and total from stored daily rows

Example:
  go run ./cmd/capture recompute window
  go run ./cmd/capture recompute window --from 2024-04-01 --to 2024-04-30
  go run ./cmd/capture recompute full --workers 4 --force
  go run ./cmd/capture recompute rollup`,
}

var (
	recomputeWindowCmd = &cobra.Command{
		Use:   "window",
		Short: "Recompute a window of days",
		RunE:  runRecomputeWindow,
	}

	recomputeFullCmd = &cobra.Command{
		Use:   "full",
		Short: "Recompute every period of history",
		RunE:  runRecomputeFull,
	}

	recomputeRollupCmd = &cobra.Command{
		Use:   "rollup",
		Short: "Rebuild rollups from daily rows",
		RunE:  runRecomputeRollup,
	}
)

var (
	windowFrom  string
	windowTo    string
	windowDays  int
	fullForce   bool
	fullWorkers int
	fullRate    float64
)

const dateLayout = "2006-01-02"

func init() {
	rootCmd.AddCommand(recomputeCmd)
	recomputeCmd.AddCommand(recomputeWindowCmd)
	recomputeCmd.AddCommand(recomputeFullCmd)
	recomputeCmd.AddCommand(recomputeRollupCmd)

	recomputeWindowCmd.Flags().StringVar(&windowFrom, "from", "", "first day (YYYY-MM-DD, UTC)")
	recomputeWindowCmd.Flags().StringVar(&windowTo, "to", "", "last day, inclusive (YYYY-MM-DD, UTC)")
	recomputeWindowCmd.Flags().IntVar(&windowDays, "days", 0, "trailing days before today (default SUMMARY_WINDOW_DAYS)")

	recomputeFullCmd.Flags().BoolVar(&fullForce, "force", false, "recompute periods that are already complete")
	recomputeFullCmd.Flags().IntVar(&fullWorkers, "workers", 0, "concurrent units (default RECOMPUTE_WORKERS)")
	recomputeFullCmd.Flags().Float64Var(&fullRate, "rate", -1, "units dispatched per second, 0 for unlimited (default RECOMPUTE_UNITS_PER_SECOND)")
}

// parseWindow builds [from, to+1d) from the inclusive day flags
func parseWindow(from, to string) (contracts.Window, error) {
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return contracts.Window{}, fmt.Errorf("invalid --from %q: %w", from, err)
	}
	end := start
	if to != "" {
		end, err = time.Parse(dateLayout, to)
		if err != nil {
			return contracts.Window{}, fmt.Errorf("invalid --to %q: %w", to, err)
		}
	}
	return contracts.NewWindow(start, end.AddDate(0, 0, 1))
}

func runRecomputeWindow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if windowDays > 0 {
		cfg.Recompute.WindowDays = windowDays
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var summary *contracts.RunSummary
	if windowFrom != "" {
		w, err := parseWindow(windowFrom, windowTo)
		if err != nil {
			return err
		}
		summary, err = a.controller.RunWindow(ctx, w)
		if err != nil {
			return reportFailure(summary, err)
		}
	} else {
		summary, err = a.controller.RunTrailing(ctx, time.Now().UTC())
		if err != nil {
			return reportFailure(summary, err)
		}
	}

	PrintRunSummary(summary)
	return nil
}

func runRecomputeFull(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if fullWorkers > 0 {
		cfg.Recompute.Workers = fullWorkers
	}
	if fullRate >= 0 {
		cfg.Recompute.UnitsPerSecond = fullRate
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := a.controller.RunFull(ctx, recompute.FullOptions{Force: fullForce})
	if err != nil {
		return reportFailure(summary, err)
	}

	PrintRunSummary(summary)
	return nil
}

func runRecomputeRollup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
	defer cancel()

	summary, err := a.controller.RunFullRollup(ctx)
	if err != nil {
		return reportFailure(summary, err)
	}

	PrintRunSummary(summary)
	return nil
}

// reportFailure prints what a failed run managed before returning err
func reportFailure(summary *contracts.RunSummary, err error) error {
	if summary != nil && summary.Total() > 0 {
		PrintRunSummary(summary)
	}
	PrintError(err.Error())
	return err
}
