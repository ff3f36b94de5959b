package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"PeakHour/internal/cache"
	"PeakHour/internal/logger"
	"PeakHour/internal/model"
)

// CachedSource consults the candle cache before going upstream and stores
// the closed bars the upstream returns.
type CachedSource struct {
	Upstream CandleSource
	Cache    cache.CandleCache
	// MaxAge is how old the newest cached bar may be for the cache to count
	// as current. Zero means two series intervals: the last closed bar opened
	// between one and two intervals ago.
	MaxAge time.Duration
	Now    func() time.Time
	Log    *logger.Logger
}

// NewCachedSource wraps upstream with a cache-first lookup.
func NewCachedSource(upstream CandleSource, c cache.CandleCache, log *logger.Logger) *CachedSource {
	return &CachedSource{Upstream: upstream, Cache: c, Now: time.Now, Log: log}
}

func (s *CachedSource) Name() string { return "cached-" + s.Upstream.Name() }

// intervalDuration parses series intervals such as "1h", "30m" or "1d".
func intervalDuration(interval string) time.Duration {
	if days, ok := strings.CutSuffix(interval, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil && n > 0 {
			return time.Duration(n) * 24 * time.Hour
		}
	}
	if d, err := time.ParseDuration(interval); err == nil && d > 0 {
		return d
	}
	return time.Hour
}

func (s *CachedSource) maxAge(key model.SeriesKey) time.Duration {
	if s.MaxAge > 0 {
		return s.MaxAge
	}
	return 2 * intervalDuration(key.Interval)
}

// current reports whether cached holds at least bars candles ending with the
// latest closed bar.
func (s *CachedSource) current(key model.SeriesKey, cached []model.OHLCV, bars int, now time.Time) bool {
	if len(cached) == 0 || len(cached) < bars {
		return false
	}
	return now.Sub(cached[len(cached)-1].Time) < s.maxAge(key)
}

// closedBars drops bars still forming at now. A forming bar's high and low
// are not final and the cache never overwrites a stored bar.
func closedBars(bars []model.OHLCV, step time.Duration, now time.Time) []model.OHLCV {
	end := len(bars)
	for end > 0 && bars[end-1].Time.Add(step).After(now) {
		end--
	}
	return bars[:end]
}

func (s *CachedSource) Fetch(ctx context.Context, key model.SeriesKey, bars int) ([]model.OHLCV, error) {
	now := s.Now()
	cached, err := s.Cache.Load(ctx, key, bars)
	if err != nil {
		s.Log.WarnContext(ctx, "cache load failed", logger.NewField("symbol", key.Symbol), logger.NewField("error", err.Error()))
		cached = nil
	}
	if s.current(key, cached, bars, now) {
		s.Log.InfoContext(ctx, "full series found in cache, skipping upstream",
			logger.NewField("symbol", key.Symbol), logger.NewField("bars", len(cached)))
		return cached, nil
	}

	s.Log.InfoContext(ctx, "fetching upstream",
		logger.NewField("source", s.Upstream.Name()),
		logger.NewField("symbol", key.Symbol),
		logger.NewField("exchange", key.Exchange),
		logger.NewField("bars", bars),
		logger.NewField("cached", len(cached)))
	fresh, err := s.Upstream.Fetch(ctx, key, bars)
	if err != nil {
		if len(cached) > 0 {
			s.Log.WarnContext(ctx, "upstream failed, serving cached series",
				logger.NewField("symbol", key.Symbol), logger.NewField("bars", len(cached)), logger.NewField("error", err.Error()))
			return cached, nil
		}
		return nil, fmt.Errorf("fetch %s from %s: %w", key.Symbol, s.Upstream.Name(), err)
	}
	if len(fresh) == 0 {
		s.Log.WarnContext(ctx, "no data returned upstream", logger.NewField("symbol", key.Symbol))
		return cached, nil
	}

	closed := closedBars(fresh, intervalDuration(key.Interval), now)
	if n, err := s.Cache.Save(ctx, key, closed); err != nil {
		s.Log.ErrorContext(ctx, fmt.Errorf("save to cache: %w", err), logger.NewField("symbol", key.Symbol))
	} else {
		s.Log.InfoContext(ctx, "cache updated", logger.NewField("symbol", key.Symbol), logger.NewField("new_rows", n))
	}
	return fresh, nil
}
