package collector

import (
	"context"
	"fmt"

	"PeakHour/internal/model"
)

// Collector resolves assets and sizes candle requests per stats mode.
type Collector struct {
	Source   CandleSource
	Assets   []model.Asset
	Interval string
}

// NewCollector creates a new Collector.
func NewCollector(source CandleSource, assets []model.Asset, interval string) *Collector {
	return &Collector{Source: source, Assets: assets, Interval: interval}
}

// Exchange returns the venue configured for symbol.
func (c *Collector) Exchange(symbol string) (string, bool) {
	for _, a := range c.Assets {
		if a.Symbol == symbol {
			return a.Exchange, true
		}
	}
	return "", false
}

// BarsFor returns how many hourly bars cover n periods of the given mode.
func BarsFor(mode model.Mode, n int) int {
	if mode == model.ModeWeekly {
		return (n + 2) * 7 * 24
	}
	return n*24 + 5
}

// Series fetches enough history of symbol to compute n periods.
func (c *Collector) Series(ctx context.Context, symbol string, mode model.Mode, n int) ([]model.OHLCV, error) {
	exchange, ok := c.Exchange(symbol)
	if !ok {
		return nil, fmt.Errorf("unknown asset %q", symbol)
	}
	key := model.SeriesKey{Symbol: symbol, Exchange: exchange, Interval: c.Interval}
	return c.Source.Fetch(ctx, key, BarsFor(mode, n))
}
