package contracts

import (
	"fmt"
	"time"
)

// UnitKey is the (zone, period) unit of work of a full recompute
type UnitKey struct {
	ZoneID string `json:"zone_id"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`
}

func (u UnitKey) String() string {
	return fmt.Sprintf("%s/%04d-%02d", u.ZoneID, u.Year, u.Month)
}

// Period returns the calendar month of the unit
func (u UnitKey) Period() YearMonth {
	return YearMonth{Year: u.Year, Month: u.Month}
}

// UnitFailure records a unit that exhausted its retries
type UnitFailure struct {
	Unit  UnitKey `json:"unit"`
	Error string  `json:"error"`
}

// RunSummary reports the outcome of a recompute run
type RunSummary struct {
	RunID       string        `json:"run_id"`
	Kind        string        `json:"kind"` // window, full, rollup
	Window      *Window       `json:"window,omitempty"`
	Succeeded   int           `json:"succeeded"`
	Skipped     int           `json:"skipped"`
	Failed      int           `json:"failed"`
	FailedUnits []UnitFailure `json:"failed_units,omitempty"`
	DailyRows   int           `json:"daily_rows"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

// HasFailures reports whether any unit failed
func (s *RunSummary) HasFailures() bool {
	return s.Failed > 0
}

// Total returns the number of units considered
func (s *RunSummary) Total() int {
	return s.Succeeded + s.Skipped + s.Failed
}
