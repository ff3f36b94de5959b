package cache

import (
	"context"

	"PeakHour/internal/model"
)

// NoopCache is used when the SQLite cache is disabled or failed to open.
type NoopCache struct{}

func NewNoopCache() *NoopCache { return &NoopCache{} }

func (n *NoopCache) Save(_ context.Context, _ model.SeriesKey, _ []model.OHLCV) (int, error) {
	return 0, nil
}

func (n *NoopCache) Load(_ context.Context, _ model.SeriesKey, _ int) ([]model.OHLCV, error) {
	return nil, nil
}

func (n *NoopCache) RecordRequest(_ context.Context, _ *RequestRecord) error { return nil }
func (n *NoopCache) Close() error                                          { return nil }
