package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/solarcapture/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintRunSummary prints the outcome of a recompute run
func PrintRunSummary(s *contracts.RunSummary) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  Recompute (%s)\n", s.Kind)
	PrintSeparator()
	PrintKeyValue("Run ID", s.RunID, 10)
	if s.Window != nil {
		PrintKeyValue("Window", s.Window.String(), 10)
	}
	PrintKeyValue("Succeeded", strconv.Itoa(s.Succeeded), 10)
	PrintKeyValue("Skipped", strconv.Itoa(s.Skipped), 10)
	PrintKeyValue("Failed", strconv.Itoa(s.Failed), 10)
	PrintKeyValue("Daily rows", strconv.Itoa(s.DailyRows), 10)
	PrintKeyValue("Duration", s.Duration.Round(time.Millisecond).String(), 10)
	PrintSeparator()

	if s.HasFailures() {
		items := make([]string, 0, len(s.FailedUnits))
		for _, f := range s.FailedUnits {
			items = append(items, fmt.Sprintf("%s: %s", f.Unit, f.Error))
		}
		PrintWarning(fmt.Sprintf("%d unit(s) failed", s.Failed))
		PrintList(items)
		return
	}
	PrintSuccess(fmt.Sprintf("%d/%d units completed", s.Succeeded, s.Total()))
}

// PrintMetrics prints one metric set as key-value lines
func PrintMetrics(m contracts.Metrics) {
	PrintKeyValue("Negative hours", formatFloat(m.NegHours), 22)
	PrintKeyValue("Avg market price", formatFloat(m.AvgMarketPrice), 22)
	PrintKeyValue("Capture price", formatFloat(m.CapturePrice), 22)
	PrintKeyValue("Capture price (>=0)", formatFloat(m.CapturePriceFloor0), 22)
	PrintKeyValue("Capture rate %", formatFloat(m.CaptureRate), 22)
	PrintKeyValue("Solar at neg price %", formatFloat(m.SolarAtNegPricePct), 22)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintList prints a bulleted list
func PrintList(items []string) {
	for _, item := range items {
		fmt.Printf("   • %s\n", item)
	}
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}
