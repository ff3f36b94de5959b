package cache

import (
	"context"
	"time"

	"PeakHour/internal/model"
)

// RequestRecord is one answered (or failed) stats request.
type RequestRecord struct {
	ID        string    `db:"id"`
	UserID    int64     `db:"user_id"`
	Asset     string    `db:"asset"`
	Mode      string    `db:"mode"`
	N         int       `db:"n"`
	Periods   int       `db:"periods"`
	Outcome   string    `db:"outcome"`
	CreatedAt time.Time `db:"-"`
}

// CandleCache stores candles keyed by (symbol, exchange, interval, timestamp).
type CandleCache interface {
	// Save stores bars, ignoring ones already cached. It returns the number of new rows.
	Save(ctx context.Context, key model.SeriesKey, bars []model.OHLCV) (int, error)
	// Load returns up to n most recent bars in ascending time order.
	Load(ctx context.Context, key model.SeriesKey, n int) ([]model.OHLCV, error)
	RecordRequest(ctx context.Context, rec *RequestRecord) error
	Close() error
}
