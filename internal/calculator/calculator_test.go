package calculator

import (
	"math"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PeakHour/internal/model"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := LoadReference("America/New_York")
	require.NoError(t, err)
	return loc
}

func bar(at time.Time, high, low float64) model.OHLCV {
	return model.OHLCV{Time: at.UTC(), Open: low, High: high, Low: low, Close: high, Volume: 100}
}

// hourlySeries generates deterministic hourly bars starting at from.
func hourlySeries(from time.Time, hours int) []model.OHLCV {
	bars := make([]model.OHLCV, hours)
	for i := 0; i < hours; i++ {
		p := 100 + 10*math.Sin(float64(i)*0.7) + float64(i%5)
		bars[i] = bar(from.Add(time.Duration(i)*time.Hour), p+1, p-1)
	}
	return bars
}

func TestComputeDaily_EmptySeries(t *testing.T) {
	loc := newYork(t)
	_, err := ComputeDaily(nil, 5, time.Now(), loc)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestComputeDaily_OutsideWindow(t *testing.T) {
	loc := newYork(t)
	now := time.Date(2024, 3, 13, 20, 0, 0, 0, loc)
	bars := hourlySeries(time.Date(2024, 1, 1, 0, 0, 0, 0, loc), 48)

	_, err := ComputeDaily(bars, 5, now, loc)
	assert.ErrorIs(t, err, ErrInsufficientWindow)
}

func TestComputeDaily_TieGoesToEarliestBar(t *testing.T) {
	loc := newYork(t)
	now := time.Date(2024, 3, 13, 20, 0, 0, 0, loc)
	day := func(h int) time.Time { return time.Date(2024, 3, 12, h, 0, 0, 0, loc) }

	// Deliberately out of order: the later tie comes first in the slice.
	bars := []model.OHLCV{
		bar(day(14), 10, 6),
		bar(day(9), 10, 5),
		bar(day(11), 9, 5),
	}
	res, err := ComputeDaily(bars, 3, now, loc)
	require.NoError(t, err)

	assert.Equal(t, 1, res.PeriodsProcessed)
	assert.Equal(t, 1, res.HighCounts[9])
	assert.Equal(t, 1, res.LowCounts[9])
	assert.Equal(t, 0, res.HighCounts[14])
}

func TestComputeDaily_ConvertsIntoReferenceZone(t *testing.T) {
	loc := newYork(t)
	now := time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC)

	// 03:00 UTC on July 9 is 23:00 July 8 in New York (EDT).
	bars := []model.OHLCV{
		{Time: time.Date(2024, 7, 9, 3, 0, 0, 0, time.UTC), High: 5, Low: 1},
		{Time: time.Date(2024, 7, 9, 14, 0, 0, 0, time.UTC), High: 7, Low: 2},
	}
	res, err := ComputeDaily(bars, 3, now, loc)
	require.NoError(t, err)

	assert.Equal(t, 2, res.PeriodsProcessed)
	assert.Equal(t, 1, res.HighCounts[23])
	assert.Equal(t, 1, res.HighCounts[10])
}

func TestComputeDaily_WindowIsInclusive(t *testing.T) {
	loc := newYork(t)
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, loc)
	bars := []model.OHLCV{
		bar(now.AddDate(0, 0, -2), 5, 1),
		bar(now, 6, 2),
		bar(now.AddDate(0, 0, -2).Add(-time.Second), 9, 0),
	}
	res, err := ComputeDaily(bars, 2, now, loc)
	require.NoError(t, err)
	assert.Equal(t, 2, res.PeriodsProcessed)
	assert.Equal(t, 2, res.HighCounts[12])
}

func TestComputeDaily_CountsMatchPeriods(t *testing.T) {
	loc := newYork(t)
	now := time.Date(2024, 3, 20, 15, 30, 0, 0, loc)
	bars := hourlySeries(now.AddDate(0, 0, -40), 40*24)

	res, err := ComputeDaily(bars, 30, now, loc)
	require.NoError(t, err)

	assert.Len(t, res.HighCounts, 24)
	assert.Equal(t, res.PeriodsProcessed, res.HighCounts.Total())
	assert.Equal(t, res.PeriodsProcessed, res.LowCounts.Total())
	assert.Equal(t, model.ModeDaily, res.Mode)
}

func TestWeekWindow(t *testing.T) {
	loc := newYork(t)
	tests := []struct {
		name      string
		now       time.Time
		weeks     int
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "wednesday",
			now:       time.Date(2024, 3, 13, 10, 0, 0, 0, loc),
			weeks:     1,
			wantStart: time.Date(2024, 3, 4, 0, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, 3, 10, 23, 59, 59, 999999999, loc),
		},
		{
			name:      "sunday closes its own week",
			now:       time.Date(2024, 3, 10, 9, 0, 0, 0, loc),
			weeks:     1,
			wantStart: time.Date(2024, 3, 4, 0, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, 3, 10, 23, 59, 59, 999999999, loc),
		},
		{
			name:      "monday",
			now:       time.Date(2024, 3, 11, 0, 30, 0, 0, loc),
			weeks:     3,
			wantStart: time.Date(2024, 2, 19, 0, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, 3, 10, 23, 59, 59, 999999999, loc),
		},
		{
			name:      "utc instant converted first",
			now:       time.Date(2024, 3, 11, 2, 0, 0, 0, time.UTC), // Sunday evening in New York
			weeks:     1,
			wantStart: time.Date(2024, 3, 4, 0, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, 3, 10, 23, 59, 59, 999999999, loc),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := WeekWindow(tt.now, tt.weeks, loc)
			assert.True(t, start.Equal(tt.wantStart), "start %s, want %s", start, tt.wantStart)
			assert.True(t, end.Equal(tt.wantEnd), "end %s, want %s", end, tt.wantEnd)
			assert.Equal(t, time.Monday, start.Weekday())
			assert.Equal(t, time.Sunday, end.Weekday())
		})
	}
}

func TestComputeWeekly_ExcludesPartialWeek(t *testing.T) {
	loc := newYork(t)
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, loc) // Wednesday

	bars := []model.OHLCV{
		bar(time.Date(2024, 3, 5, 10, 0, 0, 0, loc), 20, 10), // Tuesday, last complete week
		bar(time.Date(2024, 3, 7, 10, 0, 0, 0, loc), 20, 8),  // Thursday, tie on high
		bar(time.Date(2024, 3, 12, 10, 0, 0, 0, loc), 99, 1), // current week, ignored
	}
	res, err := ComputeWeekly(bars, 1, now, loc)
	require.NoError(t, err)

	assert.Equal(t, 1, res.PeriodsProcessed)
	assert.Equal(t, model.SlotCounts{0, 1, 0, 0, 0, 0, 0}, res.HighCounts)
	assert.Equal(t, model.SlotCounts{0, 0, 0, 1, 0, 0, 0}, res.LowCounts)
}

func TestComputeWeekly_OnlyCurrentWeekData(t *testing.T) {
	loc := newYork(t)
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, loc)
	bars := []model.OHLCV{bar(time.Date(2024, 3, 11, 10, 0, 0, 0, loc), 5, 1)}

	_, err := ComputeWeekly(bars, 2, now, loc)
	assert.ErrorIs(t, err, ErrInsufficientWindow)

	_, err = ComputeWeekly(nil, 2, now, loc)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestComputeWeekly_NoCompletePeriods(t *testing.T) {
	loc := newYork(t)
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, loc)
	bars := []model.OHLCV{bar(time.Date(2024, 3, 6, 10, 0, 0, 0, loc), math.NaN(), math.NaN())}

	_, err := ComputeWeekly(bars, 1, now, loc)
	assert.ErrorIs(t, err, ErrNoCompletePeriods)
}

func TestComputeWeekly_CountsMatchPeriods(t *testing.T) {
	loc := newYork(t)
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, loc)
	bars := hourlySeries(time.Date(2024, 1, 1, 0, 0, 0, 0, loc), 80*24)

	res, err := ComputeWeekly(bars, 4, now, loc)
	require.NoError(t, err)

	assert.Equal(t, 4, res.PeriodsProcessed)
	assert.Len(t, res.HighCounts, 7)
	assert.Equal(t, 4, res.HighCounts.Total())
	assert.Equal(t, 4, res.LowCounts.Total())
}

func TestWeekdayIndex(t *testing.T) {
	assert.Equal(t, 0, WeekdayIndex(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 6, WeekdayIndex(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
}
