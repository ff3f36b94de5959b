package calculator

import (
	"time"

	"PeakHour/internal/model"
)

// ComputeDaily buckets each calendar day's high and low into an hour-of-day slot.
// Only bars within [now-days, now] in the reference timezone are considered.
// The caller must pass days > 0.
func ComputeDaily(bars []model.OHLCV, days int, now time.Time, loc *time.Location) (*model.StatsResult, error) {
	if len(bars) == 0 {
		return nil, ErrNoData
	}

	end := now.In(loc)
	start := end.AddDate(0, 0, -days)

	filtered := make([]model.OHLCV, 0, len(bars))
	for _, b := range inRange(bars, start, end, loc) {
		if validBar(b) {
			filtered = append(filtered, b)
		}
	}
	if len(filtered) == 0 {
		return nil, ErrInsufficientWindow
	}

	byDate := make(map[dateKey]*extremes)
	for _, b := range filtered {
		key := keyOf(b.Time)
		ext, ok := byDate[key]
		if !ok {
			ext = &extremes{}
			byDate[key] = ext
		}
		ext.add(b)
	}

	res := &model.StatsResult{
		Mode:             model.ModeDaily,
		HighCounts:       model.NewSlotCounts(model.HourSlots),
		LowCounts:        model.NewSlotCounts(model.HourSlots),
		PeriodsProcessed: len(byDate),
	}
	for _, ext := range byDate {
		res.HighCounts[ext.highAt.Hour()]++
		res.LowCounts[ext.lowAt.Hour()]++
	}
	return res, nil
}
