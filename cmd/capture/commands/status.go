package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/solarcapture/internal/contracts"
)

// statusCmd prints the stored summaries
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored summaries",
	Long: `Prints the cross-zone total and the yearly summary of every zone,
followed by database pool health.

Example:
  go run ./cmd/capture status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	total, err := a.metrics.Total(ctx)
	if err != nil && !errors.Is(err, contracts.ErrNotFound) {
		return fmt.Errorf("read total: %w", err)
	}
	yearly, err := a.metrics.YearlyMetrics(ctx)
	if err != nil {
		return fmt.Errorf("read yearly: %w", err)
	}

	PrintDoubleSeparator()
	fmt.Println("  Overall")
	PrintSeparator()
	PrintMetrics(total.Metrics)

	fmt.Println()
	widths := []int{8, 22, 10, 10, 10, 10, 10, 10}
	PrintTableHeader([]string{"ZONE", "NAME", "NEG_H", "AVG", "CAPTURE", "CAP_F0", "RATE%", "SOLAR<0%"}, widths)
	for _, y := range yearly {
		PrintTableRow([]string{
			y.ZoneID,
			a.catalog.DisplayName(y.ZoneID),
			formatFloat(y.NegHours),
			formatFloat(y.AvgMarketPrice),
			formatFloat(y.CapturePrice),
			formatFloat(y.CapturePriceFloor0),
			formatFloat(y.CaptureRate),
			formatFloat(y.SolarAtNegPricePct),
		}, widths)
	}
	if len(yearly) == 0 {
		PrintWarning("No yearly rows yet. Run `recompute full` first.")
	}

	health, err := a.db.HealthCheck(ctx)
	if err != nil {
		PrintError(fmt.Sprintf("database unhealthy: %v", err))
		return nil
	}
	fmt.Println()
	PrintKeyValue("DB ping", health.ResponseTime.String(), 12)
	PrintKeyValue("DB conns", fmt.Sprintf("%d/%d", health.Stats.TotalConns, health.Stats.MaxConns), 12)
	return nil
}
