// Package dedup selects the canonical price observation per (zone, instant).
//
// Upstream publishes the same day-ahead auction at hourly and quarter-hourly
// resolution and re-issues corrected documents under a revision sequence.
// Only one resolution may contribute per instant; hourly wins.
package dedup

import (
	"sort"
	"time"

	"github.com/wonny/solarcapture/internal/contracts"
)

// correctionSequences are revision sequences that duplicate an earlier publication
var correctionSequences = map[string]bool{
	"2": true,
	"3": true,
}

// Stats summarises one deduplication pass
type Stats struct {
	Input                int `json:"input"`
	Eligible             int `json:"eligible"`
	DroppedQuarterHourly int `json:"dropped_quarter_hourly"`
	Output               int `json:"output"`
}

// Eligible reports whether an observation passes the revision filter
func Eligible(o contracts.PriceObservation) bool {
	if o.ContractType != contracts.ContractDayAhead {
		return false
	}
	if o.RevisionSequence != nil && correctionSequences[*o.RevisionSequence] {
		return false
	}
	return true
}

// FilterEligible keeps only observations passing the revision filter
func FilterEligible(obs []contracts.PriceObservation) []contracts.PriceObservation {
	out := make([]contracts.PriceObservation, 0, len(obs))
	for _, o := range obs {
		if Eligible(o) {
			out = append(out, o)
		}
	}
	return out
}

type instant struct {
	zone string
	ts   int64
}

func instantOf(o contracts.PriceObservation) instant {
	return instant{zone: o.ZoneID, ts: o.Timestamp.UnixNano()}
}

// Deduplicate returns at most one resolution per (zone, instant).
// An hourly observation wins over every quarter-hourly observation inside
// the hour it covers, so the same physical hour is never counted at both
// granularities. Output is sorted by (zone, timestamp).
func Deduplicate(obs []contracts.PriceObservation) []contracts.PriceObservation {
	out, _ := DeduplicateWithStats(obs)
	return out
}

// DeduplicateWithStats applies the revision filter and deduplication
func DeduplicateWithStats(obs []contracts.PriceObservation) ([]contracts.PriceObservation, Stats) {
	stats := Stats{Input: len(obs)}

	eligible := FilterEligible(obs)
	stats.Eligible = len(eligible)

	hourly := make(map[instant]bool)
	for _, o := range eligible {
		if o.Resolution == contracts.Hourly {
			hourly[instantOf(o)] = true
		}
	}

	out := make([]contracts.PriceObservation, 0, len(eligible))
	for _, o := range eligible {
		if o.Resolution != contracts.Hourly && coveredByHourly(hourly, o) {
			stats.DroppedQuarterHourly++
			continue
		}
		o.Timestamp = o.Timestamp.UTC()
		out = append(out, o)
	}

	sortObservations(out)
	stats.Output = len(out)
	return out, stats
}

// coveredByHourly reports whether an hourly observation starts at o's
// instant or in the hour before it
func coveredByHourly(hourly map[instant]bool, o contracts.PriceObservation) bool {
	if len(hourly) == 0 {
		return false
	}
	k := instantOf(o)
	for back := time.Duration(0); back < time.Hour; back += contracts.QuarterHourly.Duration() {
		if hourly[instant{zone: k.zone, ts: k.ts - int64(back)}] {
			return true
		}
	}
	return false
}

func sortObservations(obs []contracts.PriceObservation) {
	sort.SliceStable(obs, func(i, j int) bool {
		a, b := obs[i], obs[j]
		if a.ZoneID != b.ZoneID {
			return a.ZoneID < b.ZoneID
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.Resolution.Rank() < b.Resolution.Rank()
	})
}

// Restrict keeps observations with timestamp in [from, to)
func Restrict(obs []contracts.PriceObservation, from, to time.Time) []contracts.PriceObservation {
	out := make([]contracts.PriceObservation, 0, len(obs))
	for _, o := range obs {
		if !o.Timestamp.Before(from) && o.Timestamp.Before(to) {
			out = append(out, o)
		}
	}
	return out
}
