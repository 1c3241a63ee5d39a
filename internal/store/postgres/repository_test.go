package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/solarcapture/internal/contracts"
	"github.com/wonny/solarcapture/pkg/config"
	"github.com/wonny/solarcapture/pkg/database"
)

// openTestDB connects to DATABASE_URL, migrates and empties every table
func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))
	_, err = db.Pool.Exec(ctx, `TRUNCATE energy_prices, generation_per_type, summary_daily, summary_monthly, summary_yearly, summary_total`)
	require.NoError(t, err)

	return db
}

func TestObservationRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewObservationRepository(db.Pool)

	base := time.Date(2024, 4, 30, 23, 0, 0, 0, time.UTC)
	corrected := "2"

	n, err := repo.SavePrices(ctx, []contracts.PriceObservation{
		{ZoneID: "FR", Timestamp: base, Resolution: contracts.Hourly, Price: -3, ContractType: contracts.ContractDayAhead},
		{ZoneID: "FR", Timestamp: base.Add(time.Hour), Resolution: contracts.QuarterHourly, Price: 4, ContractType: contracts.ContractDayAhead, RevisionSequence: &corrected},
		{ZoneID: "BE", Timestamp: base.Add(time.Hour), Resolution: contracts.Hourly, Price: 5, ContractType: contracts.ContractDayAhead},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = repo.SaveGeneration(ctx, []contracts.GenerationObservation{
		{ZoneID: "NL", Timestamp: base, Resolution: contracts.Hourly, ProductionType: contracts.ProductionSolar, OutputMW: 10},
		{ZoneID: "FR", Timestamp: base, Resolution: contracts.Hourly, ProductionType: contracts.ProductionSolar, OutputMW: 20},
	})
	require.NoError(t, err)

	zones, err := repo.Zones(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BE", "FR", "NL"}, zones)

	periods, err := repo.Periods(ctx)
	require.NoError(t, err)
	assert.Equal(t, []contracts.UnitKey{{ZoneID: "FR", Year: 2024, Month: 4}, {ZoneID: "BE", Year: 2024, Month: 5}, {ZoneID: "FR", Year: 2024, Month: 5}}, periods)

	prices, err := repo.PriceObservations(ctx, "FR", base, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Nil(t, prices[0].RevisionSequence)
	require.NotNil(t, prices[1].RevisionSequence)
	assert.Equal(t, "2", *prices[1].RevisionSequence)
	assert.Equal(t, contracts.QuarterHourly, prices[1].Resolution)

	gen, err := repo.GenerationObservations(ctx, "FR", contracts.ProductionSolar, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, gen, 1)
	assert.Equal(t, 20.0, gen[0].OutputMW)
	assert.Equal(t, base, gen[0].Timestamp)
}

func TestMetricRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewMetricRepository(db.Pool)

	_, err := repo.Total(ctx)
	assert.ErrorIs(t, err, contracts.ErrNotFound)

	d1 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	rows := []contracts.DailyMetric{
		{ZoneID: "FR", Year: 2024, Month: 6, Day: 1, Metrics: contracts.Metrics{NegHours: 1.25, AvgMarketPrice: 10.5, CapturePrice: 8.12}},
		{ZoneID: "FR", Year: 2024, Month: 6, Day: 2, Metrics: contracts.Metrics{NegHours: 0.5}},
	}
	require.NoError(t, repo.ReplaceDaily(ctx, "FR", []time.Time{d1, d2}, rows))
	require.NoError(t, repo.ReplaceDaily(ctx, "FR", []time.Time{d1, d2}, rows))

	got, err := repo.DailyMetrics(ctx, contracts.DailyFilter{ZoneID: "FR", Month: 6})
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	done, err := repo.UnitCompleted(ctx, contracts.UnitKey{ZoneID: "FR", Year: 2024, Month: 6})
	require.NoError(t, err)
	assert.True(t, done)

	w, err := contracts.NewWindow(d2, d2.AddDate(0, 0, 1))
	require.NoError(t, err)
	n, err := repo.DeleteDailyInWindow(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	monthly := []contracts.MonthlyMetric{
		{ZoneID: "FR", Month: 6, Metrics: contracts.Metrics{NegHours: 1.25}},
		{ZoneID: "BE", Month: 6, Metrics: contracts.Metrics{NegHours: 2}},
	}
	require.NoError(t, repo.ReplaceMonthly(ctx, nil, monthly))
	require.NoError(t, repo.ReplaceMonthly(ctx, []contracts.MonthKey{{ZoneID: "BE", Month: 6}}, nil))

	gotMonthly, err := repo.MonthlyMetrics(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, monthly[:1], gotMonthly)

	yearly := []contracts.YearlyMetric{{ZoneID: "FR", Metrics: contracts.Metrics{NegHours: 1.25, CaptureRate: 77.3}}}
	require.NoError(t, repo.ReplaceYearly(ctx, yearly))
	gotYearly, err := repo.YearlyMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, yearly, gotYearly)

	total := contracts.TotalMetric{Metrics: contracts.Metrics{NegHours: 1.25, AvgMarketPrice: 3}}
	require.NoError(t, repo.ReplaceTotal(ctx, total))
	require.NoError(t, repo.ReplaceTotal(ctx, total))
	gotTotal, err := repo.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, total, gotTotal)
}
