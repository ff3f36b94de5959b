package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Asset is a selectable symbol and the venue it is quoted on.
type Asset struct {
	Symbol   string `yaml:"symbol"`
	Exchange string `yaml:"exchange"`
}

// SeriesKey identifies a candle series. Together with a bar timestamp it is
// the natural key of a cached candle.
type SeriesKey struct {
	Symbol   string
	Exchange string
	Interval string
}
