package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: 저장소 인터페이스 정의는 여기서만

// ObservationStore reads parsed upstream observations. Bounds are [from, to).
type ObservationStore interface {
	Zones(ctx context.Context) ([]string, error)
	Periods(ctx context.Context) ([]UnitKey, error)
	PriceObservations(ctx context.Context, zone string, from, to time.Time) ([]PriceObservation, error)
	GenerationObservations(ctx context.Context, zone, productionType string, from, to time.Time) ([]GenerationObservation, error)
}

// MetricStore persists every aggregation level
type MetricStore interface {
	// ReplaceDaily deletes the zone's rows for days and inserts rows in one transaction
	ReplaceDaily(ctx context.Context, zone string, days []time.Time, rows []DailyMetric) error
	// DeleteDailyInWindow deletes rows of every zone whose (month, day) falls in w
	DeleteDailyInWindow(ctx context.Context, w Window) (int64, error)
	DailyMetrics(ctx context.Context, filter DailyFilter) ([]DailyMetric, error)
	// UnitCompleted reports whether any daily row of the unit has a non-zero capture price
	UnitCompleted(ctx context.Context, unit UnitKey) (bool, error)

	// ReplaceMonthly deletes keys and inserts rows in one transaction. Nil keys replaces the table.
	ReplaceMonthly(ctx context.Context, keys []MonthKey, rows []MonthlyMetric) error
	// MonthlyMetrics returns rows for zones, or all rows when zones is empty
	MonthlyMetrics(ctx context.Context, zones []string) ([]MonthlyMetric, error)

	ReplaceYearly(ctx context.Context, rows []YearlyMetric) error
	YearlyMetrics(ctx context.Context) ([]YearlyMetric, error)

	ReplaceTotal(ctx context.Context, row TotalMetric) error
	// Total returns ErrNotFound before the first rollup
	Total(ctx context.Context) (TotalMetric, error)
}
