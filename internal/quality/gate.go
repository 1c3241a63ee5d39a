// Package quality measures how completely the observation tables cover a window.
package quality

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/solarcapture/internal/contracts"
	"github.com/wonny/solarcapture/internal/dedup"
)

// Coverage keys
const (
	KeyPrice = "price"
	KeySolar = "solar"
)

// Gate checks price and solar coverage per zone
type Gate struct {
	observations contracts.ObservationStore
	config       Config
}

// Config holds quality gate thresholds (fractions of window hours)
type Config struct {
	MinPriceCoverage float64 `yaml:"min_price_coverage"` // 1.0
	MinSolarCoverage float64 `yaml:"min_solar_coverage"` // 0.9
}

// DefaultConfig requires full price coverage and 90% solar coverage
func DefaultConfig() Config {
	return Config{MinPriceCoverage: 1.0, MinSolarCoverage: 0.9}
}

// Snapshot is the coverage of one zone over one window
type Snapshot struct {
	ZoneID        string             `json:"zone_id"`
	Window        contracts.Window   `json:"window"`
	ExpectedHours float64            `json:"expected_hours"`
	Coverage      map[string]float64 `json:"coverage"`
	Dedup         dedup.Stats        `json:"dedup"`
	Score         float64            `json:"score"`
	Passed        bool               `json:"passed"`
}

// NewGate creates a new Gate instance
func NewGate(observations contracts.ObservationStore, config Config) *Gate {
	return &Gate{
		observations: observations,
		config:       config,
	}
}

// CheckAll checks every zone that has observations
func (g *Gate) CheckAll(ctx context.Context, w contracts.Window) ([]Snapshot, error) {
	zones, err := g.observations.Zones(ctx)
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}

	snapshots := make([]Snapshot, 0, len(zones))
	for _, zone := range zones {
		s, err := g.Check(ctx, zone, w)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *s)
	}
	return snapshots, nil
}

// Check measures one zone over w
func (g *Gate) Check(ctx context.Context, zone string, w contracts.Window) (*Snapshot, error) {
	snapshot := &Snapshot{
		ZoneID:        zone,
		Window:        w,
		ExpectedHours: w.End.Sub(w.Start).Hours(),
		Coverage:      make(map[string]float64),
	}

	// 1. Prices, after the revision filter and resolution dedup
	prices, err := g.observations.PriceObservations(ctx, zone, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("load prices for %s: %w", zone, err)
	}
	kept, stats := dedup.DeduplicateWithStats(prices)
	kept = dedup.Restrict(kept, w.Start, w.End)
	snapshot.Dedup = stats
	snapshot.Coverage[KeyPrice] = priceCoverage(kept, snapshot.ExpectedHours)

	// 2. Solar generation, counted per distinct hour
	gen, err := g.observations.GenerationObservations(ctx, zone, contracts.ProductionSolar, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("load generation for %s: %w", zone, err)
	}
	snapshot.Coverage[KeySolar] = solarCoverage(gen, w, snapshot.ExpectedHours)

	// 3. Score and verdict
	snapshot.Score = calculateScore(snapshot.Coverage)
	snapshot.Passed = snapshot.Coverage[KeyPrice] >= g.config.MinPriceCoverage &&
		snapshot.Coverage[KeySolar] >= g.config.MinSolarCoverage

	return snapshot, nil
}

// priceCoverage sums the hours each kept observation spans
func priceCoverage(prices []contracts.PriceObservation, expected float64) float64 {
	if expected <= 0 {
		return 0
	}
	var hours float64
	for _, p := range prices {
		hours += p.Resolution.Hours()
	}
	return capRatio(hours / expected)
}

func solarCoverage(gen []contracts.GenerationObservation, w contracts.Window, expected float64) float64 {
	if expected <= 0 {
		return 0
	}
	seen := make(map[time.Time]bool)
	for _, o := range gen {
		if w.Contains(o.Timestamp) {
			seen[o.Timestamp.UTC().Truncate(time.Hour)] = true
		}
	}
	return capRatio(float64(len(seen)) / expected)
}

func capRatio(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

// calculateScore calculates overall quality score using weighted average
func calculateScore(coverage map[string]float64) float64 {
	weights := map[string]float64{
		KeyPrice: 0.6,
		KeySolar: 0.4,
	}

	score := 0.0
	for key, weight := range weights {
		if cov, exists := coverage[key]; exists {
			score += cov * weight
		}
	}
	return score
}
