// Package calc implements the metric formulas over one deduplicated bucket.
// All functions are pure; ratios with a zero denominator are 0.
package calc

import (
	"github.com/shopspring/decimal"

	"github.com/wonny/solarcapture/internal/contracts"
)

// Places is the number of decimals every stored metric is rounded to
const Places = 2

var hundred = decimal.NewFromInt(100)

// Interval is one deduplicated price instant with matched solar generation
type Interval struct {
	Price float64
	Hours float64
	MWh   float64
}

// NegativeHours sums interval durations with a negative price
func NegativeHours(prices []contracts.PriceObservation) float64 {
	total := decimal.Zero
	for _, p := range prices {
		if p.Price < 0 {
			total = total.Add(decimal.NewFromFloat(p.Resolution.Hours()))
		}
	}
	return total.InexactFloat64()
}

// AveragePrice is the unweighted mean price, 0 for an empty bucket
func AveragePrice(prices []contracts.PriceObservation) float64 {
	if len(prices) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, p := range prices {
		sum = sum.Add(decimal.NewFromFloat(p.Price))
	}
	return sum.Div(decimal.NewFromInt(int64(len(prices)))).InexactFloat64()
}

type instant struct {
	zone string
	ts   int64
}

// JoinSolar matches solar generation to prices on exact (zone, timestamp).
// Generation without a surviving price instant is ignored. Energy uses the
// duration of the matched price interval.
func JoinSolar(prices []contracts.PriceObservation, gen []contracts.GenerationObservation) []Interval {
	byInstant := make(map[instant]contracts.PriceObservation, len(prices))
	for _, p := range prices {
		byInstant[instant{zone: p.ZoneID, ts: p.Timestamp.UnixNano()}] = p
	}

	var out []Interval
	for _, g := range gen {
		if !g.IsSolar() {
			continue
		}
		p, ok := byInstant[instant{zone: g.ZoneID, ts: g.Timestamp.UnixNano()}]
		if !ok {
			continue
		}
		hours := p.Resolution.Hours()
		out = append(out, Interval{
			Price: p.Price,
			Hours: hours,
			MWh:   g.OutputMW * hours,
		})
	}
	return out
}

// weighted returns Σ(mwh × f(price)) / Σ mwh, 0 when no energy
func weighted(intervals []Interval, f func(float64) float64) decimal.Decimal {
	num, den := decimal.Zero, decimal.Zero
	for _, iv := range intervals {
		mwh := decimal.NewFromFloat(iv.MWh)
		num = num.Add(mwh.Mul(decimal.NewFromFloat(f(iv.Price))))
		den = den.Add(mwh)
	}
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}

// CapturePrice is the generation-weighted average price
func CapturePrice(intervals []Interval) float64 {
	return weighted(intervals, func(p float64) float64 { return p }).InexactFloat64()
}

// CapturePriceFloor0 is CapturePrice with negative prices counted as 0
func CapturePriceFloor0(intervals []Interval) float64 {
	return weighted(intervals, func(p float64) float64 {
		if p < 0 {
			return 0
		}
		return p
	}).InexactFloat64()
}

// SolarAtNegPricePct is the share of matched solar energy produced at negative prices
func SolarAtNegPricePct(intervals []Interval) float64 {
	neg, all := decimal.Zero, decimal.Zero
	for _, iv := range intervals {
		mwh := decimal.NewFromFloat(iv.MWh)
		all = all.Add(mwh)
		if iv.Price < 0 {
			neg = neg.Add(mwh)
		}
	}
	if all.IsZero() {
		return 0
	}
	return neg.Mul(hundred).Div(all).InexactFloat64()
}

// CaptureRate is 100 × capture / avg, 0 when avg is 0
func CaptureRate(capture, avg float64) float64 {
	a := decimal.NewFromFloat(avg)
	if a.IsZero() {
		return 0
	}
	return decimal.NewFromFloat(capture).Mul(hundred).Div(a).InexactFloat64()
}

// Round rounds half away from zero to Places decimals
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(Places).InexactFloat64()
}

// Compute derives all six metrics for one bucket of deduplicated prices.
// Capture rate is derived from the already rounded capture and average price.
func Compute(prices []contracts.PriceObservation, gen []contracts.GenerationObservation) contracts.Metrics {
	intervals := JoinSolar(prices, gen)

	m := contracts.Metrics{
		NegHours:           Round(NegativeHours(prices)),
		AvgMarketPrice:     Round(AveragePrice(prices)),
		CapturePrice:       Round(CapturePrice(intervals)),
		CapturePriceFloor0: Round(CapturePriceFloor0(intervals)),
		SolarAtNegPricePct: Round(SolarAtNegPricePct(intervals)),
	}
	m.CaptureRate = Round(CaptureRate(m.CapturePrice, m.AvgMarketPrice))
	return m
}
