package collector

import (
	"context"

	"PeakHour/internal/model"
)

// CandleSource fetches the most recent `bars` candles of a series in ascending time order.
type CandleSource interface {
	Fetch(ctx context.Context, key model.SeriesKey, bars int) ([]model.OHLCV, error)
	Name() string
}
