// Package memory is an in-process implementation of the observation and
// metric stores, used by tests and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/solarcapture/internal/contracts"
)

// Store holds observations and metric rows in maps guarded by one mutex
type Store struct {
	mu sync.RWMutex

	prices     []contracts.PriceObservation
	generation []contracts.GenerationObservation

	daily   map[contracts.DayKey]contracts.DailyMetric
	monthly map[contracts.MonthKey]contracts.MonthlyMetric
	yearly  map[string]contracts.YearlyMetric
	total   *contracts.TotalMetric

	faults map[string]*fault
	calls  map[string]int
}

type fault struct {
	remaining int
	err       error
}

var (
	_ contracts.ObservationStore = (*Store)(nil)
	_ contracts.MetricStore      = (*Store)(nil)
)

// New creates an empty store
func New() *Store {
	return &Store{
		daily:   make(map[contracts.DayKey]contracts.DailyMetric),
		monthly: make(map[contracts.MonthKey]contracts.MonthlyMetric),
		yearly:  make(map[string]contracts.YearlyMetric),
		faults:  make(map[string]*fault),
		calls:   make(map[string]int),
	}
}

// AddPrices appends price observations
func (s *Store) AddPrices(obs ...contracts.PriceObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices = append(s.prices, obs...)
}

// AddGeneration appends generation observations
func (s *Store) AddGeneration(obs ...contracts.GenerationObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation = append(s.generation, obs...)
}

// PutDaily writes daily rows directly, bypassing aggregation
func (s *Store) PutDaily(rows ...contracts.DailyMetric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.daily[r.Key()] = r
	}
}

// FailNext makes the next n calls of op return err. op is the method name.
func (s *Store) FailNext(op string, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = &fault{remaining: n, err: err}
}

// Calls returns how many times op was invoked
func (s *Store) Calls(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

// enter records the call and returns an injected fault. Caller holds mu.
func (s *Store) enter(op string) error {
	s.calls[op]++
	f, ok := s.faults[op]
	if !ok || f.remaining == 0 {
		return nil
	}
	f.remaining--
	return f.err
}

// Zones lists every zone with observations
func (s *Store) Zones(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Zones"); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, p := range s.prices {
		seen[p.ZoneID] = true
	}
	for _, g := range s.generation {
		seen[g.ZoneID] = true
	}

	zones := make([]string, 0, len(seen))
	for z := range seen {
		zones = append(zones, z)
	}
	sort.Strings(zones)
	return zones, nil
}

// Periods lists every (zone, year, month) with price observations
func (s *Store) Periods(ctx context.Context) ([]contracts.UnitKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Periods"); err != nil {
		return nil, err
	}

	seen := make(map[contracts.UnitKey]bool)
	for _, p := range s.prices {
		ts := p.Timestamp.UTC()
		seen[contracts.UnitKey{ZoneID: p.ZoneID, Year: ts.Year(), Month: int(ts.Month())}] = true
	}

	units := make([]contracts.UnitKey, 0, len(seen))
	for u := range seen {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool {
		a, b := units[i], units[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.ZoneID < b.ZoneID
	})
	return units, nil
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

// PriceObservations returns the zone's prices in [from, to)
func (s *Store) PriceObservations(ctx context.Context, zone string, from, to time.Time) ([]contracts.PriceObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("PriceObservations"); err != nil {
		return nil, err
	}

	var out []contracts.PriceObservation
	for _, p := range s.prices {
		if p.ZoneID == zone && within(p.Timestamp, from, to) {
			out = append(out, p)
		}
	}
	return out, nil
}

// GenerationObservations returns the zone's output of productionType in [from, to)
func (s *Store) GenerationObservations(ctx context.Context, zone, productionType string, from, to time.Time) ([]contracts.GenerationObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GenerationObservations"); err != nil {
		return nil, err
	}

	var out []contracts.GenerationObservation
	for _, g := range s.generation {
		if g.ZoneID == zone && g.ProductionType == productionType && within(g.Timestamp, from, to) {
			out = append(out, g)
		}
	}
	return out, nil
}

// ReplaceDaily deletes the zone's rows for days and inserts rows
func (s *Store) ReplaceDaily(ctx context.Context, zone string, days []time.Time, rows []contracts.DailyMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ReplaceDaily"); err != nil {
		return err
	}

	for _, d := range days {
		delete(s.daily, contracts.DayKey{ZoneID: zone, Month: int(d.Month()), Day: d.Day()})
	}
	for _, r := range rows {
		s.daily[r.Key()] = r
	}
	return nil
}

// DeleteDailyInWindow deletes rows of every zone whose (month, day) falls in w
func (s *Store) DeleteDailyInWindow(ctx context.Context, w contracts.Window) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteDailyInWindow"); err != nil {
		return 0, err
	}

	inWindow := make(map[[2]int]bool)
	for _, d := range w.Days() {
		inWindow[[2]int{int(d.Month()), d.Day()}] = true
	}

	var n int64
	for k := range s.daily {
		if inWindow[[2]int{k.Month, k.Day}] {
			delete(s.daily, k)
			n++
		}
	}
	return n, nil
}

// DailyMetrics returns rows matching filter sorted by (zone, year, month, day)
func (s *Store) DailyMetrics(ctx context.Context, filter contracts.DailyFilter) ([]contracts.DailyMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DailyMetrics"); err != nil {
		return nil, err
	}

	out := make([]contracts.DailyMetric, 0)
	for _, r := range s.daily {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
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
	return out, nil
}

// UnitCompleted reports whether any daily row of the unit has a non-zero capture price
func (s *Store) UnitCompleted(ctx context.Context, unit contracts.UnitKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UnitCompleted"); err != nil {
		return false, err
	}

	for _, r := range s.daily {
		if r.ZoneID == unit.ZoneID && r.Year == unit.Year && r.Month == unit.Month && r.CapturePrice != 0 {
			return true, nil
		}
	}
	return false, nil
}

// ReplaceMonthly deletes keys and inserts rows. Nil keys clears the table first.
func (s *Store) ReplaceMonthly(ctx context.Context, keys []contracts.MonthKey, rows []contracts.MonthlyMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ReplaceMonthly"); err != nil {
		return err
	}

	if keys == nil {
		s.monthly = make(map[contracts.MonthKey]contracts.MonthlyMetric)
	}
	for _, k := range keys {
		delete(s.monthly, k)
	}
	for _, r := range rows {
		s.monthly[r.Key()] = r
	}
	return nil
}

// MonthlyMetrics returns rows for zones, or all rows when zones is empty
func (s *Store) MonthlyMetrics(ctx context.Context, zones []string) ([]contracts.MonthlyMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("MonthlyMetrics"); err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(zones))
	for _, z := range zones {
		want[z] = true
	}

	out := make([]contracts.MonthlyMetric, 0)
	for _, r := range s.monthly {
		if len(want) == 0 || want[r.ZoneID] {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ZoneID != out[j].ZoneID {
			return out[i].ZoneID < out[j].ZoneID
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

// ReplaceYearly replaces the yearly table
func (s *Store) ReplaceYearly(ctx context.Context, rows []contracts.YearlyMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ReplaceYearly"); err != nil {
		return err
	}

	s.yearly = make(map[string]contracts.YearlyMetric, len(rows))
	for _, r := range rows {
		s.yearly[r.ZoneID] = r
	}
	return nil
}

// YearlyMetrics returns every yearly row sorted by zone
func (s *Store) YearlyMetrics(ctx context.Context) ([]contracts.YearlyMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("YearlyMetrics"); err != nil {
		return nil, err
	}

	out := make([]contracts.YearlyMetric, 0, len(s.yearly))
	for _, r := range s.yearly {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ZoneID < out[j].ZoneID })
	return out, nil
}

// ReplaceTotal replaces the single total row
func (s *Store) ReplaceTotal(ctx context.Context, row contracts.TotalMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ReplaceTotal"); err != nil {
		return err
	}

	s.total = &row
	return nil
}

// Total returns the total row or ErrNotFound
func (s *Store) Total(ctx context.Context) (contracts.TotalMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Total"); err != nil {
		return contracts.TotalMetric{}, err
	}

	if s.total == nil {
		return contracts.TotalMetric{}, contracts.ErrNotFound
	}
	return *s.total, nil
}
