package contracts

import (
	"fmt"
	"time"
)

// Window is a half-open UTC time range [Start, End)
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow validates and normalises the bounds to UTC
func NewWindow(start, end time.Time) (Window, error) {
	w := Window{Start: start.UTC(), End: end.UTC()}
	if !w.End.After(w.Start) {
		return Window{}, fmt.Errorf("%w: end %s is not after start %s",
			ErrInvalidWindow, w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
	}
	return w, nil
}

// TrailingWindow covers the last days calendar days plus today:
// [midnight(now) - days, midnight(now) + 1 day)
func TrailingWindow(now time.Time, days int) (Window, error) {
	if days < 1 {
		return Window{}, fmt.Errorf("%w: %d days", ErrInvalidWindow, days)
	}
	today := StartOfDay(now)
	return NewWindow(today.AddDate(0, 0, -days), today.AddDate(0, 0, 1))
}

// StartOfDay truncates t to UTC midnight
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t lies in [Start, End)
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Days lists the UTC calendar days the window touches, in order
func (w Window) Days() []time.Time {
	var days []time.Time
	for d := StartOfDay(w.Start); d.Before(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Months lists the distinct (year, month) pairs the window touches
func (w Window) Months() []YearMonth {
	var months []YearMonth
	seen := make(map[YearMonth]bool)
	for _, d := range w.Days() {
		ym := YearMonth{Year: d.Year(), Month: int(d.Month())}
		if !seen[ym] {
			seen[ym] = true
			months = append(months, ym)
		}
	}
	return months
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// YearMonth is a calendar month
type YearMonth struct {
	Year  int
	Month int
}

// Window returns the month as [first day, first day of next month)
func (ym YearMonth) Window() Window {
	start := time.Date(ym.Year, time.Month(ym.Month), 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}
