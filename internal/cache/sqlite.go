package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"PeakHour/internal/logger"
	"PeakHour/internal/model"
)

// SQLiteCache persists candles and request history to a SQLite database.
type SQLiteCache struct {
	db  *sqlx.DB
	mu  sync.Mutex
	log *logger.Logger
}

type klineRow struct {
	Symbol   string  `db:"symbol"`
	Exchange string  `db:"exchange"`
	Interval string  `db:"interval"`
	TS       int64   `db:"ts"`
	Open     float64 `db:"open"`
	High     float64 `db:"high"`
	Low      float64 `db:"low"`
	Close    float64 `db:"close"`
	Volume   float64 `db:"volume"`
}

// NewSQLiteCache opens (or creates) the SQLite database and runs migrations.
func NewSQLiteCache(dbPath string, log *logger.Logger) (*SQLiteCache, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	log = log.WithFields(logger.NewField("component", "cache"))
	c := &SQLiteCache{db: db, log: log}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	requests, err := c.CountRequests(context.Background())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("count request history: %w", err)
	}
	log.Info("sqlite cache opened", logger.NewField("path", dbPath), logger.NewField("requests", requests))
	return c, nil
}

func (c *SQLiteCache) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS klines (
			symbol   TEXT    NOT NULL,
			exchange TEXT    NOT NULL,
			interval TEXT    NOT NULL,
			ts       INTEGER NOT NULL,
			open     REAL,
			high     REAL,
			low      REAL,
			close    REAL,
			volume   REAL,
			PRIMARY KEY (symbol, exchange, interval, ts)
		)`,

		`CREATE TABLE IF NOT EXISTS request_history (
			id         TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			user_id    INTEGER,
			asset      TEXT,
			mode       TEXT,
			n          INTEGER,
			periods    INTEGER,
			outcome    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_request_ts ON request_history(created_at)`,
	}

	for _, s := range stmts {
		if _, err := c.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (c *SQLiteCache) Save(ctx context.Context, key model.SeriesKey, bars []model.OHLCV) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `INSERT OR IGNORE INTO klines
		(symbol, exchange, interval, ts, open, high, low, close, volume)
		VALUES (:symbol, :exchange, :interval, :ts, :open, :high, :low, :close, :volume)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, b := range bars {
		res, err := stmt.ExecContext(ctx, klineRow{
			Symbol: key.Symbol, Exchange: key.Exchange, Interval: key.Interval,
			TS:   b.Time.Unix(),
			Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume,
		})
		if err != nil {
			return 0, fmt.Errorf("insert kline: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	if skipped := len(bars) - inserted; skipped > 0 {
		c.log.Debug("duplicate klines ignored",
			logger.NewField("symbol", key.Symbol), logger.NewField("skipped", skipped))
	}
	return inserted, nil
}

func (c *SQLiteCache) Load(ctx context.Context, key model.SeriesKey, n int) ([]model.OHLCV, error) {
	var rows []klineRow
	err := c.db.SelectContext(ctx, &rows, `SELECT symbol, exchange, interval, ts, open, high, low, close, volume
		FROM klines
		WHERE symbol = ? AND exchange = ? AND interval = ?
		ORDER BY ts DESC
		LIMIT ?`, key.Symbol, key.Exchange, key.Interval, n)
	if err != nil {
		return nil, fmt.Errorf("select klines: %w", err)
	}

	bars := make([]model.OHLCV, len(rows))
	for i, r := range rows {
		bars[len(rows)-1-i] = model.OHLCV{
			Time: time.Unix(r.TS, 0).UTC(),
			Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume,
		}
	}
	return bars, nil
}

func (c *SQLiteCache) RecordRequest(ctx context.Context, rec *RequestRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := c.db.ExecContext(ctx, `INSERT INTO request_history
		(id, created_at, user_id, asset, mode, n, periods, outcome)
		VALUES (?,?,?,?,?,?,?,?)`,
		rec.ID, createdAt.Unix(), rec.UserID, rec.Asset, rec.Mode, rec.N, rec.Periods, rec.Outcome,
	)
	return err
}

// CountRequests returns the number of recorded requests.
func (c *SQLiteCache) CountRequests(ctx context.Context) (int, error) {
	var n int
	err := c.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM request_history`)
	return n, err
}

func (c *SQLiteCache) Close() error {
	c.log.Info("closing sqlite cache")
	return c.db.Close()
}
