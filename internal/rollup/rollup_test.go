package rollup

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/solarcapture/internal/contracts"
	"github.com/wonny/solarcapture/internal/store/memory"
)

func day(zone string, month, d int, m contracts.Metrics) contracts.DailyMetric {
	return contracts.DailyMetric{ZoneID: zone, Year: 2024, Month: month, Day: d, Metrics: m}
}

func TestMonthly(t *testing.T) {
	daily := []contracts.DailyMetric{
		day("FR", 4, 1, contracts.Metrics{NegHours: 2.25, AvgMarketPrice: 10, CapturePrice: 8, CapturePriceFloor0: 9, CaptureRate: 80, SolarAtNegPricePct: 10}),
		day("FR", 4, 2, contracts.Metrics{NegHours: 1, AvgMarketPrice: 20, CapturePrice: 0, CapturePriceFloor0: 0, CaptureRate: 0, SolarAtNegPricePct: 0}),
		day("FR", 4, 3, contracts.Metrics{NegHours: 0, AvgMarketPrice: 30, CapturePrice: 12, CapturePriceFloor0: 13, CaptureRate: 40, SolarAtNegPricePct: 30}),
		day("BE", 4, 1, contracts.Metrics{AvgMarketPrice: 5}),
	}

	got := Monthly(daily)
	require.Len(t, got, 2)

	assert.Equal(t, contracts.MonthlyMetric{ZoneID: "BE", Month: 4, Metrics: contracts.Metrics{AvgMarketPrice: 5}}, got[0])

	fr := got[1]
	assert.Equal(t, 3.25, fr.NegHours)
	assert.Equal(t, 20.0, fr.AvgMarketPrice)
	assert.Equal(t, 10.0, fr.CapturePrice)
	assert.Equal(t, 11.0, fr.CapturePriceFloor0)
	assert.Equal(t, 60.0, fr.CaptureRate)
	assert.Equal(t, 20.0, fr.SolarAtNegPricePct)
}

func TestMonthly_NegHoursConsistency(t *testing.T) {
	var daily []contracts.DailyMetric
	want := map[contracts.MonthKey]float64{}
	for m := 1; m <= 3; m++ {
		for d := 1; d <= 28; d++ {
			v := float64((m*d)%7) * 0.25
			daily = append(daily, day("DE-LU", m, d, contracts.Metrics{NegHours: v}))
			want[contracts.MonthKey{ZoneID: "DE-LU", Month: m}] += v
		}
	}

	for _, row := range Monthly(daily) {
		assert.InDelta(t, want[row.Key()], row.NegHours, 0.01)
	}
}

func TestMonthly_DaysWithoutRowsAreIgnored(t *testing.T) {
	sparse := Monthly([]contracts.DailyMetric{
		day("NL", 6, 1, contracts.Metrics{AvgMarketPrice: 40, CapturePrice: 30}),
		day("NL", 6, 30, contracts.Metrics{AvgMarketPrice: 60, CapturePrice: 50}),
	})
	require.Len(t, sparse, 1)
	assert.Equal(t, 50.0, sparse[0].AvgMarketPrice)
	assert.Equal(t, 40.0, sparse[0].CapturePrice)

	withZeroRow := Monthly([]contracts.DailyMetric{
		day("NL", 6, 1, contracts.Metrics{AvgMarketPrice: 40, CapturePrice: 30}),
		day("NL", 6, 15, contracts.Metrics{}),
		day("NL", 6, 30, contracts.Metrics{AvgMarketPrice: 60, CapturePrice: 50}),
	})
	require.Len(t, withZeroRow, 1)
	assert.InDelta(t, 33.33, withZeroRow[0].AvgMarketPrice, 0.01)
	assert.Equal(t, 40.0, withZeroRow[0].CapturePrice)
}

func TestYearlyAndTotal(t *testing.T) {
	monthly := []contracts.MonthlyMetric{
		{ZoneID: "FR", Month: 1, Metrics: contracts.Metrics{NegHours: 10, AvgMarketPrice: 50, CapturePrice: 40, CaptureRate: 80}},
		{ZoneID: "FR", Month: 2, Metrics: contracts.Metrics{NegHours: 5, AvgMarketPrice: 30, CapturePrice: 0, CaptureRate: 0}},
		{ZoneID: "BE", Month: 1, Metrics: contracts.Metrics{NegHours: 1, AvgMarketPrice: 70, CapturePrice: 35, CaptureRate: 50}},
	}

	yearly := Yearly(monthly)
	require.Len(t, yearly, 2)
	assert.Equal(t, "BE", yearly[0].ZoneID)
	assert.Equal(t, 1.0, yearly[0].NegHours)

	fr := yearly[1]
	assert.Equal(t, 15.0, fr.NegHours)
	assert.Equal(t, 40.0, fr.AvgMarketPrice)
	// yearly means are plain: the zero month counts
	assert.Equal(t, 20.0, fr.CapturePrice)
	assert.Equal(t, 40.0, fr.CaptureRate)

	total := Total(yearly)
	assert.Equal(t, 16.0, total.NegHours)
	assert.Equal(t, 55.0, total.AvgMarketPrice)
	assert.Equal(t, 27.5, total.CapturePrice)
	assert.Equal(t, 45.0, total.CaptureRate)
}

func TestTotal_Empty(t *testing.T) {
	assert.Equal(t, contracts.TotalMetric{}, Total(nil))
}

func TestUniqueKeys(t *testing.T) {
	keys := UniqueKeys([]contracts.MonthKey{{ZoneID: "FR", Month: 2}, {ZoneID: "BE", Month: 1}, {ZoneID: "FR", Month: 2}, {ZoneID: "FR", Month: 1}})
	assert.Equal(t, []contracts.MonthKey{{ZoneID: "BE", Month: 1}, {ZoneID: "FR", Month: 1}, {ZoneID: "FR", Month: 2}}, keys)
}

func TestEngine_RebuildScoped(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	engine := NewEngine(store, zerolog.Nop())

	store.PutDaily(
		day("FR", 1, 1, contracts.Metrics{NegHours: 1, AvgMarketPrice: 10}),
		day("FR", 2, 1, contracts.Metrics{NegHours: 2, AvgMarketPrice: 20}),
		day("BE", 1, 1, contracts.Metrics{NegHours: 4, AvgMarketPrice: 40}),
	)

	res, err := engine.Rebuild(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.MonthlyRows)
	assert.Equal(t, 2, res.YearlyRows)
	assert.Equal(t, 7.0, res.Total.NegHours)

	// change one day, rebuild only its month
	store.PutDaily(day("FR", 2, 1, contracts.Metrics{NegHours: 5, AvgMarketPrice: 20}))
	store.PutDaily(day("BE", 1, 2, contracts.Metrics{NegHours: 100}))

	res, err = engine.Rebuild(ctx, []contracts.MonthKey{{ZoneID: "FR", Month: 2}, {ZoneID: "FR", Month: 2}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.MonthlyKeys)

	monthly, err := store.MonthlyMetrics(ctx, []string{"FR"})
	require.NoError(t, err)
	require.Len(t, monthly, 2)
	assert.Equal(t, 5.0, monthly[1].NegHours)

	// BE month 1 was out of scope and keeps its old value
	be, err := store.MonthlyMetrics(ctx, []string{"BE"})
	require.NoError(t, err)
	assert.Equal(t, 4.0, be[0].NegHours)

	total, err := store.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10.0, total.NegHours)
}

func TestEngine_ScopedKeyWithoutDailyRowsIsRemoved(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	engine := NewEngine(store, zerolog.Nop())

	require.NoError(t, store.ReplaceMonthly(ctx, nil, []contracts.MonthlyMetric{{ZoneID: "FR", Month: 3, Metrics: contracts.Metrics{NegHours: 1}}}))

	_, err := engine.Rebuild(ctx, []contracts.MonthKey{{ZoneID: "FR", Month: 3}})
	require.NoError(t, err)

	monthly, err := store.MonthlyMetrics(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, monthly)
}

func TestEngine_StageFailureIsReturned(t *testing.T) {
	store := memory.New()
	store.FailNext("ReplaceYearly", 1, errors.New("disk full"))

	_, err := NewEngine(store, zerolog.Nop()).Rebuild(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replace yearly rows")
}

func TestEngine_Idempotent(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	engine := NewEngine(store, zerolog.Nop())

	store.PutDaily(
		day("FR", 1, 1, contracts.Metrics{NegHours: 1.25, AvgMarketPrice: 10.33, CapturePrice: 7.77}),
		day("FR", 1, 2, contracts.Metrics{NegHours: 0.5, AvgMarketPrice: 11.11, CapturePrice: 6.66}),
	)

	_, err := engine.Rebuild(ctx, nil)
	require.NoError(t, err)
	first, _ := store.MonthlyMetrics(ctx, nil)
	firstTotal, _ := store.Total(ctx)

	_, err = engine.Rebuild(ctx, nil)
	require.NoError(t, err)
	second, _ := store.MonthlyMetrics(ctx, nil)
	secondTotal, _ := store.Total(ctx)

	assert.Equal(t, first, second)
	assert.Equal(t, firstTotal, secondTotal)
}
