package daily

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/solarcapture/internal/contracts"
	"github.com/wonny/solarcapture/internal/store/memory"
)

var d1 = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func hourly(zone string, ts time.Time, p float64) contracts.PriceObservation {
	return contracts.PriceObservation{ZoneID: zone, Timestamp: ts, Resolution: contracts.Hourly, Price: p, ContractType: contracts.ContractDayAhead}
}

func solar(zone string, ts time.Time, mw float64) contracts.GenerationObservation {
	return contracts.GenerationObservation{ZoneID: zone, Timestamp: ts, Resolution: contracts.Hourly, ProductionType: contracts.ProductionSolar, OutputMW: mw}
}

func window(t *testing.T, start time.Time, days int) contracts.Window {
	t.Helper()
	w, err := contracts.NewWindow(start, start.AddDate(0, 0, days))
	require.NoError(t, err)
	return w
}

func TestAggregate_GroupsByZoneAndDay(t *testing.T) {
	prices := []contracts.PriceObservation{
		hourly("FR", d1.Add(10*time.Hour), 10),
		hourly("FR", d1.Add(11*time.Hour), -20),
		hourly("FR", d1.Add(34*time.Hour), 50), // day 2
		hourly("BE", d1.Add(12*time.Hour), 40),
		hourly("BE", d1.Add(-time.Hour), 99), // before window
	}
	gen := []contracts.GenerationObservation{
		solar("FR", d1.Add(10*time.Hour), 100),
		solar("FR", d1.Add(11*time.Hour), 50),
	}

	rows := Aggregate(prices, gen, window(t, d1, 2))
	require.Len(t, rows, 3)

	assert.Equal(t, "BE", rows[0].ZoneID)
	assert.Equal(t, contracts.Metrics{AvgMarketPrice: 40}, rows[0].Metrics)

	fr1 := rows[1]
	assert.Equal(t, contracts.DayKey{ZoneID: "FR", Month: 7, Day: 1}, fr1.Key())
	assert.Equal(t, 2024, fr1.Year)
	assert.Equal(t, 1.0, fr1.NegHours)
	assert.Equal(t, 0.0, fr1.CapturePrice)
	assert.Equal(t, 6.67, fr1.CapturePriceFloor0)

	// prices but no solar overlap: zero capture fields, row present
	fr2 := rows[2]
	assert.Equal(t, 2, fr2.Day)
	assert.Equal(t, 50.0, fr2.AvgMarketPrice)
	assert.Zero(t, fr2.CapturePrice)
}

func TestAggregate_GenerationOnlyDayIsZeroRow(t *testing.T) {
	gen := []contracts.GenerationObservation{solar("NL", d1.Add(9*time.Hour), 10)}

	rows := Aggregate(nil, gen, window(t, d1, 1))
	require.Len(t, rows, 1)
	assert.Equal(t, contracts.Metrics{}, rows[0].Metrics)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, Aggregate(nil, nil, window(t, d1, 1)))
}

func TestAggregateZone_Idempotent(t *testing.T) {
	store := memory.New()
	store.AddPrices(
		hourly("FR", d1.Add(10*time.Hour), 10),
		hourly("FR", d1.Add(11*time.Hour), -20),
	)
	store.AddGeneration(
		solar("FR", d1.Add(10*time.Hour), 100),
		solar("FR", d1.Add(11*time.Hour), 50),
	)

	agg := NewAggregator(store, store, zerolog.Nop())
	ctx := context.Background()
	w := window(t, d1, 3)

	first, err := agg.AggregateZone(ctx, "FR", w)
	require.NoError(t, err)
	stored1, err := store.DailyMetrics(ctx, contracts.DailyFilter{})
	require.NoError(t, err)

	second, err := agg.AggregateZone(ctx, "FR", w)
	require.NoError(t, err)
	stored2, err := store.DailyMetrics(ctx, contracts.DailyFilter{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, stored1, stored2)
	assert.Len(t, stored2, 1)
}

func TestAggregateZone_ReplacesStaleDays(t *testing.T) {
	store := memory.New()
	store.PutDaily(contracts.DailyMetric{ZoneID: "FR", Year: 2024, Month: 7, Day: 2, Metrics: contracts.Metrics{NegHours: 9}})
	store.AddPrices(hourly("FR", d1.Add(3*time.Hour), 5))

	agg := NewAggregator(store, store, zerolog.Nop())
	_, err := agg.AggregateZone(context.Background(), "FR", window(t, d1, 2))
	require.NoError(t, err)

	rows, err := store.DailyMetrics(context.Background(), contracts.DailyFilter{ZoneID: "FR"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Day)
}

func TestLatest_PrefersNewestYear(t *testing.T) {
	rows := Latest([]contracts.DailyMetric{
		{ZoneID: "FR", Year: 2024, Month: 4, Day: 5, Metrics: contracts.Metrics{NegHours: 2}},
		{ZoneID: "FR", Year: 2023, Month: 4, Day: 5, Metrics: contracts.Metrics{NegHours: 7}},
		{ZoneID: "FR", Year: 2023, Month: 4, Day: 6, Metrics: contracts.Metrics{NegHours: 1}},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, 2023, rows[0].Year)
	assert.Equal(t, 6, rows[0].Day)
	assert.Equal(t, 2024, rows[1].Year)
	assert.Equal(t, 2.0, rows[1].NegHours)
}

func TestAggregateZoneSpan_ReplacesAllDays(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	store.PutDaily(contracts.DailyMetric{ZoneID: "FR", Year: 2022, Month: 7, Day: 15, Metrics: contracts.Metrics{NegHours: 9}})
	store.AddPrices(hourly("FR", d1.AddDate(-1, 0, 0).Add(10*time.Hour), -1))
	store.AddPrices(hourly("FR", d1.Add(10*time.Hour), 5))

	windows := []contracts.Window{
		window(t, d1.AddDate(-1, 0, 0), 31),
		window(t, d1, 31),
	}
	rows, err := NewAggregator(store, store, zerolog.Nop()).AggregateZoneSpan(ctx, "FR", windows)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2024, rows[0].Year)

	stored, err := store.DailyMetrics(ctx, contracts.DailyFilter{ZoneID: "FR"})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 5.0, stored[0].AvgMarketPrice)
}
