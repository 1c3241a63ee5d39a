package contracts

import "fmt"

// Metrics is the set of six values carried at every aggregation level
// ⭐ SSOT: 모든 집계 단계가 같은 지표 집합을 사용
type Metrics struct {
	NegHours           float64 `json:"neg_hours"`
	AvgMarketPrice     float64 `json:"avg_market_price"`
	CapturePrice       float64 `json:"capture_price"`
	CapturePriceFloor0 float64 `json:"capture_price_floor0"`
	CaptureRate        float64 `json:"capture_rate"`           // percent
	SolarAtNegPricePct float64 `json:"solar_at_neg_price_pct"` // percent
}

// DailyMetric is keyed by (zone, month, day). Year records which calendar
// year the row was computed from.
type DailyMetric struct {
	ZoneID string `json:"country"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Day    int    `json:"day"`
	Metrics
}

// Key returns the storage key of the row
func (d DailyMetric) Key() DayKey {
	return DayKey{ZoneID: d.ZoneID, Month: d.Month, Day: d.Day}
}

// MonthKey returns the monthly bucket the row rolls up into
func (d DailyMetric) MonthKey() MonthKey {
	return MonthKey{ZoneID: d.ZoneID, Month: d.Month}
}

// MonthlyMetric is keyed by (zone, month)
type MonthlyMetric struct {
	ZoneID string `json:"country"`
	Month  int    `json:"month"`
	Metrics
}

// Key returns the storage key of the row
func (m MonthlyMetric) Key() MonthKey {
	return MonthKey{ZoneID: m.ZoneID, Month: m.Month}
}

// YearlyMetric is keyed by zone. NegHours is the yearly total.
type YearlyMetric struct {
	ZoneID string `json:"country"`
	Metrics
}

// TotalMetric is the single cross-zone row
type TotalMetric struct {
	Metrics
}

// DayKey identifies a daily row
type DayKey struct {
	ZoneID string
	Month  int
	Day    int
}

// MonthKey identifies a monthly row
type MonthKey struct {
	ZoneID string
	Month  int
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%s/%02d", k.ZoneID, k.Month)
}

// DailyFilter narrows DailyMetrics reads. Zero values match everything.
type DailyFilter struct {
	ZoneID string
	Year   int
	Month  int
}

// Matches reports whether the row passes the filter
func (f DailyFilter) Matches(d DailyMetric) bool {
	if f.ZoneID != "" && f.ZoneID != d.ZoneID {
		return false
	}
	if f.Year != 0 && f.Year != d.Year {
		return false
	}
	if f.Month != 0 && f.Month != d.Month {
		return false
	}
	return true
}
