package calculator

import "errors"

var (
	// ErrNoData is returned when the input series is empty.
	ErrNoData = errors.New("no candle data")
	// ErrInsufficientWindow is returned when no candle falls inside the requested window.
	ErrInsufficientWindow = errors.New("no candles inside the requested window")
	// ErrNoCompletePeriods is returned by the weekly bucketizer when candles survive the
	// window filter but none of them can be assigned to a complete week.
	ErrNoCompletePeriods = errors.New("no complete weeks inside the requested window")
)
