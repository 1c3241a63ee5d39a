// Package daily turns deduplicated observations into one DailyMetric per
// (zone, UTC calendar day).
package daily

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/solarcapture/internal/calc"
	"github.com/wonny/solarcapture/internal/contracts"
	"github.com/wonny/solarcapture/internal/dedup"
)

// Aggregator 일별 지표 집계기
type Aggregator struct {
	observations contracts.ObservationStore
	metrics      contracts.MetricStore
	log          zerolog.Logger
}

// NewAggregator creates an aggregator reading observations and writing daily rows
func NewAggregator(observations contracts.ObservationStore, metrics contracts.MetricStore, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		observations: observations,
		metrics:      metrics,
		log:          log.With().Str("component", "daily.aggregator").Logger(),
	}
}

type bucketKey struct {
	zone string
	day  time.Time
}

type bucket struct {
	prices []contracts.PriceObservation
	gen    []contracts.GenerationObservation
}

// Aggregate computes daily rows for observations inside w. Every (zone, day)
// with any observation yields a row; days without solar overlap carry zero
// capture fields. Rows are sorted by (zone, year, month, day).
func Aggregate(prices []contracts.PriceObservation, gen []contracts.GenerationObservation, w contracts.Window) []contracts.DailyMetric {
	deduped := dedup.Deduplicate(dedup.Restrict(prices, w.Start, w.End))

	buckets := make(map[bucketKey]*bucket)
	get := func(zone string, ts time.Time) *bucket {
		k := bucketKey{zone: zone, day: contracts.StartOfDay(ts)}
		b, ok := buckets[k]
		if !ok {
			b = &bucket{}
			buckets[k] = b
		}
		return b
	}

	for _, p := range deduped {
		b := get(p.ZoneID, p.Timestamp)
		b.prices = append(b.prices, p)
	}
	for _, g := range gen {
		if !w.Contains(g.Timestamp) {
			continue
		}
		b := get(g.ZoneID, g.Timestamp)
		b.gen = append(b.gen, g)
	}

	rows := make([]contracts.DailyMetric, 0, len(buckets))
	for k, b := range buckets {
		rows = append(rows, contracts.DailyMetric{
			ZoneID:  k.zone,
			Year:    k.day.Year(),
			Month:   int(k.day.Month()),
			Day:     k.day.Day(),
			Metrics: calc.Compute(b.prices, b.gen),
		})
	}

	SortRows(rows)
	return rows
}

// SortRows orders daily rows by (zone, year, month, day)
func SortRows(rows []contracts.DailyMetric) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ZoneID != b.ZoneID {
			return a.ZoneID < b.ZoneID
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.Day < b.Day
	})
}

// Latest keeps one row per (zone, month, day), preferring the most recent
// year. Rows are returned sorted.
func Latest(rows []contracts.DailyMetric) []contracts.DailyMetric {
	byKey := make(map[contracts.DayKey]contracts.DailyMetric, len(rows))
	for _, r := range rows {
		if prev, ok := byKey[r.Key()]; ok && prev.Year > r.Year {
			continue
		}
		byKey[r.Key()] = r
	}

	out := make([]contracts.DailyMetric, 0, len(byKey))
	for _, r := range byKey {
		out = append(out, r)
	}
	SortRows(out)
	return out
}

// AggregateZone loads one zone's observations for w, aggregates them and
// replaces the zone's daily rows for every day of w in one transaction.
// Repeated runs over the same inputs write identical rows.
func (a *Aggregator) AggregateZone(ctx context.Context, zone string, w contracts.Window) ([]contracts.DailyMetric, error) {
	return a.AggregateZoneSpan(ctx, zone, []contracts.Window{w})
}

// AggregateZoneSpan aggregates several windows that share daily keys, such as
// the same calendar month of different years, and replaces their days in one
// write. Where two windows produce the same (month, day) the later year wins.
func (a *Aggregator) AggregateZoneSpan(ctx context.Context, zone string, windows []contracts.Window) ([]contracts.DailyMetric, error) {
	var (
		all     []contracts.DailyMetric
		days    []time.Time
		nPrices int
		nGen    int
	)
	for _, w := range windows {
		prices, err := a.observations.PriceObservations(ctx, zone, w.Start, w.End)
		if err != nil {
			return nil, fmt.Errorf("load prices for %s: %w", zone, err)
		}

		gen, err := a.observations.GenerationObservations(ctx, zone, contracts.ProductionSolar, w.Start, w.End)
		if err != nil {
			return nil, fmt.Errorf("load generation for %s: %w", zone, err)
		}

		all = append(all, Aggregate(prices, gen, w)...)
		days = append(days, w.Days()...)
		nPrices += len(prices)
		nGen += len(gen)
	}

	rows := Latest(all)

	if err := a.metrics.ReplaceDaily(ctx, zone, days, rows); err != nil {
		return nil, fmt.Errorf("replace daily rows for %s: %w", zone, err)
	}

	a.log.Debug().
		Str("zone", zone).
		Int("windows", len(windows)).
		Int("prices", nPrices).
		Int("generation", nGen).
		Int("rows", len(rows)).
		Msg("zone aggregated")

	return rows, nil
}
