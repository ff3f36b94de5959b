package calculator

import (
	"time"

	"PeakHour/internal/model"
)

// WeekWindow returns the inclusive bounds of the last `weeks` complete
// Monday-Sunday weeks relative to now. A Sunday `now` closes its own week.
func WeekWindow(now time.Time, weeks int, loc *time.Location) (start, end time.Time) {
	today := civilDate(now.In(loc))
	lastSunday := today.AddDate(0, 0, -((WeekdayIndex(today) + 1) % 7))
	firstMonday := lastSunday.AddDate(0, 0, -(7*(weeks-1) + 6))

	y, m, d := lastSunday.Date()
	end = time.Date(y, m, d, 23, 59, 59, 999999999, loc)
	return firstMonday, end
}

// ComputeWeekly buckets each complete week's high and low into a weekday slot
// (0=Monday..6=Sunday). The caller must pass weeks > 0.
func ComputeWeekly(bars []model.OHLCV, weeks int, now time.Time, loc *time.Location) (*model.StatsResult, error) {
	if len(bars) == 0 {
		return nil, ErrNoData
	}

	start, end := WeekWindow(now, weeks, loc)
	filtered := inRange(bars, start, end, loc)
	if len(filtered) == 0 {
		return nil, ErrInsufficientWindow
	}

	byWeek := make(map[dateKey]*extremes)
	for _, b := range filtered {
		if !validBar(b) {
			continue
		}
		day := civilDate(b.Time)
		key := keyOf(day.AddDate(0, 0, -WeekdayIndex(day)))
		ext, ok := byWeek[key]
		if !ok {
			ext = &extremes{}
			byWeek[key] = ext
		}
		ext.add(b)
	}
	if len(byWeek) == 0 {
		return nil, ErrNoCompletePeriods
	}

	res := &model.StatsResult{
		Mode:             model.ModeWeekly,
		HighCounts:       model.NewSlotCounts(model.WeekdaySlots),
		LowCounts:        model.NewSlotCounts(model.WeekdaySlots),
		PeriodsProcessed: len(byWeek),
	}
	for _, ext := range byWeek {
		res.HighCounts[WeekdayIndex(ext.highAt)]++
		res.LowCounts[WeekdayIndex(ext.lowAt)]++
	}
	return res, nil
}
