package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/solarcapture/internal/contracts"
	"github.com/wonny/solarcapture/internal/quality"
)

// coverageCmd reports observation coverage per zone
var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Check observation coverage per zone",
	Long: `Reports, per zone, the share of window hours covered by eligible
day-ahead prices and by solar generation. Exits non-zero with --strict when
any zone is below the thresholds.

Example:
  go run ./cmd/capture coverage
  go run ./cmd/capture coverage --from 2024-04-01 --to 2024-04-30 --strict`,
	RunE: runCoverage,
}

var (
	coverageFrom     string
	coverageTo       string
	coverageMinPrice float64
	coverageMinSolar float64
	coverageStrict   bool
)

func init() {
	rootCmd.AddCommand(coverageCmd)

	defaults := quality.DefaultConfig()
	coverageCmd.Flags().StringVar(&coverageFrom, "from", "", "first day (YYYY-MM-DD, UTC); default is the trailing window")
	coverageCmd.Flags().StringVar(&coverageTo, "to", "", "last day, inclusive (YYYY-MM-DD, UTC)")
	coverageCmd.Flags().Float64Var(&coverageMinPrice, "min-price", defaults.MinPriceCoverage, "minimum price coverage (0..1)")
	coverageCmd.Flags().Float64Var(&coverageMinSolar, "min-solar", defaults.MinSolarCoverage, "minimum solar coverage (0..1)")
	coverageCmd.Flags().BoolVar(&coverageStrict, "strict", false, "fail when any zone is below the thresholds")
}

func runCoverage(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var w contracts.Window
	if coverageFrom != "" {
		w, err = parseWindow(coverageFrom, coverageTo)
	} else {
		w, err = contracts.TrailingWindow(time.Now().UTC(), cfg.Recompute.WindowDays)
	}
	if err != nil {
		return err
	}

	gate := quality.NewGate(a.observations, quality.Config{
		MinPriceCoverage: coverageMinPrice,
		MinSolarCoverage: coverageMinSolar,
	})
	snapshots, err := gate.CheckAll(cmd.Context(), w)
	if err != nil {
		return err
	}

	fmt.Printf("Window: %s\n\n", w)
	widths := []int{8, 22, 8, 8, 8, 8, 6}
	PrintTableHeader([]string{"ZONE", "NAME", "PRICE", "SOLAR", "QH_DROP", "SCORE", "OK"}, widths)

	failed := 0
	for _, s := range snapshots {
		ok := "yes"
		if !s.Passed {
			ok = "no"
			failed++
		}
		PrintTableRow([]string{
			s.ZoneID,
			a.catalog.DisplayName(s.ZoneID),
			formatFloat(s.Coverage[quality.KeyPrice]),
			formatFloat(s.Coverage[quality.KeySolar]),
			fmt.Sprint(s.Dedup.DroppedQuarterHourly),
			formatFloat(s.Score),
			ok,
		}, widths)
	}

	if failed > 0 {
		PrintWarning(fmt.Sprintf("%d of %d zone(s) below coverage thresholds", failed, len(snapshots)))
		if coverageStrict {
			return fmt.Errorf("%d zone(s) below coverage thresholds", failed)
		}
		return nil
	}
	PrintSuccess(fmt.Sprintf("%d zone(s) fully covered", len(snapshots)))
	return nil
}
