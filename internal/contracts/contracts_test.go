package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResolution(t *testing.T) {
	tests := []struct {
		code    string
		want    Resolution
		hours   float64
		wantErr bool
	}{
		{"PT60M", Hourly, 1.0, false},
		{"PT15M", QuarterHourly, 0.25, false},
		{"PT30M", "", 0, true},
		{"", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := ParseResolution(tt.code)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidResolution)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.hours, got.Hours())
		})
	}

	assert.Equal(t, 15*time.Minute, QuarterHourly.Duration())
	assert.Less(t, Hourly.Rank(), QuarterHourly.Rank())
}

func TestGenerationObservation_IsSolar(t *testing.T) {
	assert.True(t, GenerationObservation{ProductionType: "Solar", OutputMW: 1}.IsSolar())
	assert.False(t, GenerationObservation{ProductionType: "Solar", OutputMW: 0}.IsSolar())
	assert.False(t, GenerationObservation{ProductionType: "Wind Onshore", OutputMW: 10}.IsSolar())
}

func TestNewWindow(t *testing.T) {
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	_, err := NewWindow(start, start)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = NewWindow(start, start.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidWindow)

	cet := time.FixedZone("CET", 3600)
	w, err := NewWindow(time.Date(2024, 4, 1, 1, 0, 0, 0, cet), time.Date(2024, 4, 2, 1, 0, 0, 0, cet))
	require.NoError(t, err)
	assert.Equal(t, start, w.Start)
	assert.Equal(t, time.UTC, w.Start.Location())
}

func TestTrailingWindow(t *testing.T) {
	now := time.Date(2024, 3, 2, 14, 30, 0, 0, time.UTC)

	w, err := TrailingWindow(now, 5)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), w.End)
	assert.Len(t, w.Days(), 6)
	assert.Equal(t, []YearMonth{{2024, 2}, {2024, 3}}, w.Months())

	_, err = TrailingWindow(now, 0)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestWindow_Contains(t *testing.T) {
	w := Window{
		Start: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, w.Contains(w.Start))
	assert.True(t, w.Contains(w.End.Add(-15*time.Minute)))
	assert.False(t, w.Contains(w.End))
	assert.False(t, w.Contains(w.Start.Add(-time.Nanosecond)))
}

func TestYearMonth_Window(t *testing.T) {
	w := YearMonth{Year: 2024, Month: 12}.Window()
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), w.End)
	assert.Len(t, w.Days(), 31)
}

func TestDailyFilter_Matches(t *testing.T) {
	row := DailyMetric{ZoneID: "FR", Year: 2024, Month: 4, Day: 3}

	assert.True(t, DailyFilter{}.Matches(row))
	assert.True(t, DailyFilter{ZoneID: "FR", Month: 4}.Matches(row))
	assert.False(t, DailyFilter{ZoneID: "DE-LU"}.Matches(row))
	assert.False(t, DailyFilter{Year: 2023}.Matches(row))
	assert.False(t, DailyFilter{Month: 5}.Matches(row))
}

func TestKeys(t *testing.T) {
	row := DailyMetric{ZoneID: "FR", Year: 2024, Month: 4, Day: 3}
	assert.Equal(t, DayKey{"FR", 4, 3}, row.Key())
	assert.Equal(t, MonthKey{"FR", 4}, row.MonthKey())
	assert.Equal(t, "FR/04", row.MonthKey().String())
	assert.Equal(t, "FR/2024-04", UnitKey{"FR", 2024, 4}.String())
}

func TestRunSummary(t *testing.T) {
	s := &RunSummary{Succeeded: 3, Skipped: 2, Failed: 1}
	assert.True(t, s.HasFailures())
	assert.Equal(t, 6, s.Total())
}
