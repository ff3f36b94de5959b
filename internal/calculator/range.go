package calculator

import (
	"math"
	"time"

	"PeakHour/internal/model"
)

// extremes locates the bars holding the highest high and the lowest low of a
// period. Ties resolve to the earliest timestamp.
type extremes struct {
	high, low     float64
	highAt, lowAt time.Time
	seen          bool
}

func (e *extremes) add(bar model.OHLCV) {
	if !e.seen {
		e.high, e.highAt = bar.High, bar.Time
		e.low, e.lowAt = bar.Low, bar.Time
		e.seen = true
		return
	}
	if bar.High > e.high || (bar.High == e.high && bar.Time.Before(e.highAt)) {
		e.high, e.highAt = bar.High, bar.Time
	}
	if bar.Low < e.low || (bar.Low == e.low && bar.Time.Before(e.lowAt)) {
		e.low, e.lowAt = bar.Low, bar.Time
	}
}

// validBar reports whether a bar carries usable extreme prices.
func validBar(bar model.OHLCV) bool {
	return !math.IsNaN(bar.High) && !math.IsNaN(bar.Low) &&
		!math.IsInf(bar.High, 0) && !math.IsInf(bar.Low, 0)
}

// inRange filters bars to [start, end] inclusive, converting timestamps into loc.
func inRange(bars []model.OHLCV, start, end time.Time, loc *time.Location) []model.OHLCV {
	out := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		t := b.Time.In(loc)
		if t.Before(start) || t.After(end) {
			continue
		}
		b.Time = t
		out = append(out, b)
	}
	return out
}

// civilDate truncates t to midnight of its calendar date in t's location.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// dateKey groups bars by calendar date.
type dateKey struct {
	year  int
	month time.Month
	day   int
}

func keyOf(t time.Time) dateKey {
	y, m, d := t.Date()
	return dateKey{y, m, d}
}

// WeekdayIndex maps a weekday to 0=Monday..6=Sunday.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
