package contracts

import (
	"fmt"
	"time"
)

// Resolution is the granularity of an observation interval
// ⭐ SSOT: 해상도 코드와 구간 길이는 여기서만 정의
type Resolution string

const (
	Hourly        Resolution = "PT60M"
	QuarterHourly Resolution = "PT15M"
)

// ParseResolution accepts the ISO-8601 duration codes used upstream
func ParseResolution(code string) (Resolution, error) {
	switch Resolution(code) {
	case Hourly, QuarterHourly:
		return Resolution(code), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidResolution, code)
}

// Hours returns the interval length in hours (1.0 or 0.25)
func (r Resolution) Hours() float64 {
	switch r {
	case Hourly:
		return 1.0
	case QuarterHourly:
		return 0.25
	}
	return 0
}

// Duration returns the interval length
func (r Resolution) Duration() time.Duration {
	return time.Duration(r.Hours() * float64(time.Hour))
}

// Rank orders resolutions coarsest first. Hourly wins deduplication.
func (r Resolution) Rank() int {
	switch r {
	case Hourly:
		return 0
	case QuarterHourly:
		return 1
	}
	return 2
}

const (
	// ContractDayAhead is the only contract type the engine aggregates
	ContractDayAhead = "Day-ahead"

	// ProductionSolar is the generation technology capture metrics are built on
	ProductionSolar = "Solar"
)

// PriceObservation is one day-ahead price interval for a bidding zone
type PriceObservation struct {
	ZoneID           string     `json:"zone_id"`
	Timestamp        time.Time  `json:"timestamp"` // interval start, UTC
	Resolution       Resolution `json:"resolution"`
	Price            float64    `json:"price"` // currency per MWh, may be negative
	RevisionSequence *string    `json:"revision_sequence,omitempty"`
	ContractType     string     `json:"contract_type"`
}

// GenerationObservation is actual output of one production type over one interval
type GenerationObservation struct {
	ZoneID         string     `json:"zone_id"`
	Timestamp      time.Time  `json:"timestamp"`
	Resolution     Resolution `json:"resolution"`
	ProductionType string     `json:"production_type"`
	OutputMW       float64    `json:"output_mw"`
}

// IsSolar reports whether the observation is usable solar output
func (g GenerationObservation) IsSolar() bool {
	return g.ProductionType == ProductionSolar && g.OutputMW > 0
}
