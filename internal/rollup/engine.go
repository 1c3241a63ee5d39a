// Package rollup derives monthly, yearly and total metrics from daily rows.
// Every stage fully replaces its output rows for the keys it touches.
package rollup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/solarcapture/internal/contracts"
)

// Engine 롤업 엔진
type Engine struct {
	store contracts.MetricStore
	log   zerolog.Logger
}

// Result reports what a rebuild wrote
type Result struct {
	MonthlyKeys int                   `json:"monthly_keys"`
	MonthlyRows int                   `json:"monthly_rows"`
	YearlyRows  int                   `json:"yearly_rows"`
	Total       contracts.TotalMetric `json:"total"`
	Duration    time.Duration         `json:"duration"`
}

// NewEngine creates a rollup engine over the metric store
func NewEngine(store contracts.MetricStore, log zerolog.Logger) *Engine {
	return &Engine{
		store: store,
		log:   log.With().Str("component", "rollup.engine").Logger(),
	}
}

// Rebuild replaces the monthly rows for scope from current daily rows, then
// rebuilds yearly from all monthly rows and total from all yearly rows.
// An empty scope rebuilds every monthly row.
func (e *Engine) Rebuild(ctx context.Context, scope []contracts.MonthKey) (*Result, error) {
	start := time.Now()
	res := &Result{}

	if err := e.rebuildMonthly(ctx, scope, res); err != nil {
		return nil, err
	}

	monthly, err := e.store.MonthlyMetrics(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("read monthly rows: %w", err)
	}
	yearly := Yearly(monthly)
	if err := e.store.ReplaceYearly(ctx, yearly); err != nil {
		return nil, fmt.Errorf("replace yearly rows: %w", err)
	}
	res.YearlyRows = len(yearly)

	res.Total = Total(yearly)
	if err := e.store.ReplaceTotal(ctx, res.Total); err != nil {
		return nil, fmt.Errorf("replace total row: %w", err)
	}

	res.Duration = time.Since(start)
	e.log.Info().
		Int("monthly_keys", res.MonthlyKeys).
		Int("monthly_rows", res.MonthlyRows).
		Int("yearly_rows", res.YearlyRows).
		Float64("total_neg_hours", res.Total.NegHours).
		Dur("duration", res.Duration).
		Msg("rollup rebuilt")

	return res, nil
}

func (e *Engine) rebuildMonthly(ctx context.Context, scope []contracts.MonthKey, res *Result) error {
	if len(scope) == 0 {
		daily, err := e.store.DailyMetrics(ctx, contracts.DailyFilter{})
		if err != nil {
			return fmt.Errorf("read daily rows: %w", err)
		}
		monthly := Monthly(daily)
		if err := e.store.ReplaceMonthly(ctx, nil, monthly); err != nil {
			return fmt.Errorf("replace monthly rows: %w", err)
		}
		res.MonthlyKeys = len(monthly)
		res.MonthlyRows = len(monthly)
		return nil
	}

	keys := UniqueKeys(scope)

	var daily []contracts.DailyMetric
	for _, k := range keys {
		rows, err := e.store.DailyMetrics(ctx, contracts.DailyFilter{ZoneID: k.ZoneID, Month: k.Month})
		if err != nil {
			return fmt.Errorf("read daily rows for %s: %w", k, err)
		}
		daily = append(daily, rows...)
	}

	monthly := Monthly(daily)
	if err := e.store.ReplaceMonthly(ctx, keys, monthly); err != nil {
		return fmt.Errorf("replace monthly rows: %w", err)
	}
	res.MonthlyKeys = len(keys)
	res.MonthlyRows = len(monthly)
	return nil
}

// UniqueKeys returns scope without duplicates, sorted by (zone, month)
func UniqueKeys(scope []contracts.MonthKey) []contracts.MonthKey {
	seen := make(map[contracts.MonthKey]bool, len(scope))
	out := make([]contracts.MonthKey, 0, len(scope))
	for _, k := range scope {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ZoneID != out[j].ZoneID {
			return out[i].ZoneID < out[j].ZoneID
		}
		return out[i].Month < out[j].Month
	})
	return out
}
