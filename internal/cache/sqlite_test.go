package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PeakHour/internal/logger"
	"PeakHour/internal/model"
)

func openTestCache(t *testing.T) *SQLiteCache {
	t.Helper()
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "data", "cache.db"), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func hourlyBars(from time.Time, n int) []model.OHLCV {
	bars := make([]model.OHLCV, n)
	for i := range bars {
		p := float64(100 + i)
		bars[i] = model.OHLCV{Time: from.Add(time.Duration(i) * time.Hour), Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 10}
	}
	return bars
}

func TestSQLiteCache_SaveIgnoresDuplicates(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	key := model.SeriesKey{Symbol: "NQ1!", Exchange: "CME_MINI", Interval: "1h"}
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	n, err := c.Save(ctx, key, hourlyBars(from, 10))
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = c.Save(ctx, key, hourlyBars(from.Add(5*time.Hour), 10))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestSQLiteCache_LoadMostRecentAscending(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	key := model.SeriesKey{Symbol: "ES1!", Exchange: "CME_MINI", Interval: "1h"}
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := c.Save(ctx, key, hourlyBars(from, 48))
	require.NoError(t, err)

	bars, err := c.Load(ctx, key, 5)
	require.NoError(t, err)
	require.Len(t, bars, 5)
	assert.True(t, bars[0].Time.Equal(from.Add(43*time.Hour)))
	assert.True(t, bars[4].Time.Equal(from.Add(47*time.Hour)))
	assert.Equal(t, 148.0, bars[4].High)

	other, err := c.Load(ctx, model.SeriesKey{Symbol: "ES1!", Exchange: "CME", Interval: "1h"}, 5)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSQLiteCache_RecordRequest(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	err := c.RecordRequest(ctx, &RequestRecord{
		ID: uuid.NewString(), UserID: 1, Asset: "BTCUSDT", Mode: "daily", N: 30, Periods: 30, Outcome: "ok",
	})
	require.NoError(t, err)

	n, err := c.CountRequests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteCache_ReopenKeepsHistory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := NewSQLiteCache(path, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.RecordRequest(ctx, &RequestRecord{ID: uuid.NewString(), UserID: 2, Asset: "HK50", Mode: "weekly", N: 4, Outcome: "no_complete_periods"}))
	require.NoError(t, c.Close())

	reopened, err := NewSQLiteCache(path, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	n, err := reopened.CountRequests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
