package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"PeakHour/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	} `yaml:"telegram"`
	DataSource struct {
		BaseURL  string        `yaml:"base_url" env:"DATA_SOURCE_BASE_URL"`
		APIKey   string        `yaml:"api_key" env:"DATA_SOURCE_API_KEY"`
		Interval string        `yaml:"interval" env:"DATA_SOURCE_INTERVAL"`
		Timeout  time.Duration `yaml:"timeout" env:"DATA_SOURCE_TIMEOUT"`
	} `yaml:"data_source"`
	Assets   []model.Asset `yaml:"assets"`
	Timezone string        `yaml:"timezone" env:"TIMEZONE"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	} `yaml:"database"`
	Redis struct {
		Addr       string        `yaml:"addr" env:"REDIS_ADDR"`
		Password   string        `yaml:"password" env:"REDIS_PASSWORD"`
		DB         int           `yaml:"db" env:"REDIS_DB"`
		SessionTTL time.Duration `yaml:"session_ttl" env:"REDIS_SESSION_TTL"`
	} `yaml:"redis"`
	Schedule struct {
		WarmupCron  string `yaml:"warmup_cron" env:"CRON_WARMUP"`
		EvictCron   string `yaml:"evict_cron" env:"CRON_EVICT"`
		WarmupWeeks int    `yaml:"warmup_weeks" env:"WARMUP_WEEKS"`
	} `yaml:"schedule"`
	Log struct {
		Level   string `yaml:"level" env:"LOG_LEVEL"`
		Console bool   `yaml:"console" env:"LOG_CONSOLE"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy" env:"HTTPS_PROXY"`
}

// DefaultAssets is the asset menu used when none is configured.
var DefaultAssets = []model.Asset{
	{Symbol: "NQ1!", Exchange: "CME_MINI"},
	{Symbol: "ES1!", Exchange: "CME_MINI"},
	{Symbol: "YM1!", Exchange: "CME_MINI"},
	{Symbol: "XAUUSD", Exchange: "FX_IDC"},
	{Symbol: "HK50", Exchange: "PEPPERSTONE"},
	{Symbol: "BTCUSDT", Exchange: "BINANCE"},
}

// Load reads config from a YAML file, then applies .env and environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// A missing .env file is fine.
	_ = godotenv.Load()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DataSource.Interval == "" {
		cfg.DataSource.Interval = "1h"
	}
	if cfg.DataSource.Timeout == 0 {
		cfg.DataSource.Timeout = 60 * time.Second
	}
	if len(cfg.Assets) == 0 {
		cfg.Assets = append([]model.Asset(nil), DefaultAssets...)
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "America/New_York"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/historical_data.db"
	}
	if cfg.Redis.SessionTTL == 0 {
		cfg.Redis.SessionTTL = 30 * time.Minute
	}
	if cfg.Schedule.WarmupCron == "" {
		cfg.Schedule.WarmupCron = "0 5 * * * *"
	}
	if cfg.Schedule.EvictCron == "" {
		cfg.Schedule.EvictCron = "0 */10 * * * *"
	}
	if cfg.Schedule.WarmupWeeks == 0 {
		cfg.Schedule.WarmupWeeks = 12
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if len(c.Assets) == 0 {
		return fmt.Errorf("at least one asset is required")
	}
	seen := make(map[string]bool, len(c.Assets))
	for _, a := range c.Assets {
		if a.Symbol == "" || a.Exchange == "" {
			return fmt.Errorf("asset entries need both symbol and exchange")
		}
		if seen[a.Symbol] {
			return fmt.Errorf("duplicate asset %q", a.Symbol)
		}
		seen[a.Symbol] = true
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if c.Schedule.WarmupWeeks < 0 {
		return fmt.Errorf("schedule.warmup_weeks must not be negative")
	}
	return nil
}
