package rollup

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/wonny/solarcapture/internal/calc"
	"github.com/wonny/solarcapture/internal/contracts"
)

// accumulator collects one bucket's inputs
type accumulator struct {
	negHours decimal.Decimal
	avg      mean
	capture  mean
	floor0   mean
	rate     mean
	solarNeg mean
}

type mean struct {
	sum decimal.Decimal
	n   int64
}

func (m *mean) add(v float64) {
	m.sum = m.sum.Add(decimal.NewFromFloat(v))
	m.n++
}

// addNonZero treats 0 as "no value"
func (m *mean) addNonZero(v float64) {
	if v != 0 {
		m.add(v)
	}
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return calc.Round(m.sum.Div(decimal.NewFromInt(m.n)).InexactFloat64())
}

func (a *accumulator) addPlain(m contracts.Metrics) {
	a.negHours = a.negHours.Add(decimal.NewFromFloat(m.NegHours))
	a.avg.add(m.AvgMarketPrice)
	a.capture.add(m.CapturePrice)
	a.floor0.add(m.CapturePriceFloor0)
	a.rate.add(m.CaptureRate)
	a.solarNeg.add(m.SolarAtNegPricePct)
}

func (a *accumulator) metrics() contracts.Metrics {
	return contracts.Metrics{
		NegHours:           calc.Round(a.negHours.InexactFloat64()),
		AvgMarketPrice:     a.avg.value(),
		CapturePrice:       a.capture.value(),
		CapturePriceFloor0: a.floor0.value(),
		CaptureRate:        a.rate.value(),
		SolarAtNegPricePct: a.solarNeg.value(),
	}
}

// Monthly groups daily rows by (zone, month). Negative hours are summed and
// the average market price is the mean of every day. Capture-family fields
// average only days that carry a value; a day with 0 has no solar overlap.
func Monthly(daily []contracts.DailyMetric) []contracts.MonthlyMetric {
	groups := make(map[contracts.MonthKey]*accumulator)
	for _, d := range daily {
		k := d.MonthKey()
		acc, ok := groups[k]
		if !ok {
			acc = &accumulator{}
			groups[k] = acc
		}
		acc.negHours = acc.negHours.Add(decimal.NewFromFloat(d.NegHours))
		acc.avg.add(d.AvgMarketPrice)
		acc.capture.addNonZero(d.CapturePrice)
		acc.floor0.addNonZero(d.CapturePriceFloor0)
		acc.rate.addNonZero(d.CaptureRate)
		acc.solarNeg.addNonZero(d.SolarAtNegPricePct)
	}

	out := make([]contracts.MonthlyMetric, 0, len(groups))
	for k, acc := range groups {
		out = append(out, contracts.MonthlyMetric{ZoneID: k.ZoneID, Month: k.Month, Metrics: acc.metrics()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ZoneID != out[j].ZoneID {
			return out[i].ZoneID < out[j].ZoneID
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// Yearly groups monthly rows by zone: summed negative hours, plain means
func Yearly(monthly []contracts.MonthlyMetric) []contracts.YearlyMetric {
	groups := make(map[string]*accumulator)
	for _, m := range monthly {
		acc, ok := groups[m.ZoneID]
		if !ok {
			acc = &accumulator{}
			groups[m.ZoneID] = acc
		}
		acc.addPlain(m.Metrics)
	}

	out := make([]contracts.YearlyMetric, 0, len(groups))
	for zone, acc := range groups {
		out = append(out, contracts.YearlyMetric{ZoneID: zone, Metrics: acc.metrics()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ZoneID < out[j].ZoneID })
	return out
}

// Total collapses yearly rows into one: summed negative hours, plain means.
// No input yields the zero row.
func Total(yearly []contracts.YearlyMetric) contracts.TotalMetric {
	acc := &accumulator{}
	for _, y := range yearly {
		acc.addPlain(y.Metrics)
	}
	return contracts.TotalMetric{Metrics: acc.metrics()}
}
