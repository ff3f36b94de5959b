package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"

	"PeakHour/internal/bot"
	"PeakHour/internal/cache"
	"PeakHour/internal/calculator"
	"PeakHour/internal/collector"
	"PeakHour/internal/config"
	"PeakHour/internal/logger"
	"PeakHour/internal/notifier"
	"PeakHour/internal/scheduler"
	"PeakHour/internal/session"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(logger.Level(cfg.Log.Level), cfg.Log.Console)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error(err)
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	log.Info("PeakHour starting")
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	loc, err := calculator.LoadReference(cfg.Timezone)
	if err != nil {
		return err
	}

	// Candle cache
	var store cache.CandleCache
	sc, err := cache.NewSQLiteCache(cfg.Database.SQLitePath, log)
	if err != nil {
		log.Warn("init sqlite cache failed, using noop", logger.NewField("error", err.Error()))
		store = cache.NewNoopCache()
	} else {
		store = sc
	}
	defer store.Close()

	// Upstream candle source
	var upstream collector.CandleSource
	if cfg.DataSource.BaseURL != "" {
		upstream = collector.NewRESTSource(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	} else {
		upstream = collector.NewYahooSource(cfg.Proxy)
	}
	source := collector.NewCachedSource(upstream, store, log)
	log.Info("data source ready", logger.NewField("source", source.Name()))
	col := collector.NewCollector(source, cfg.Assets, cfg.DataSource.Interval)

	// Conversation state
	var sessions session.Store
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, cfg.Redis.SessionTTL)
		log.Info("using redis session store", logger.NewField("addr", cfg.Redis.Addr))
	} else {
		sessions = session.NewMemoryStore()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, col, cfg.Assets, cfg.Schedule.WarmupWeeks, sessions, cfg.Redis.SessionTTL, log)
	if err := sched.RegisterAll(cfg.Schedule.WarmupCron, cfg.Schedule.EvictCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, warming cache now")
		go sched.RunWarmupNow()
	}

	tg := notifier.NewTelegramClient(cfg.Telegram.BotToken, cfg.Proxy, log)
	handlers := bot.NewHandlers(tg, sessions, col, store, cfg.Assets, loc, cfg.DataSource.Timeout, log)

	go tg.StartPolling(ctx, handlers.HandleUpdate)
	log.Info("PeakHour is running", logger.NewField("timezone", loc.String()), logger.NewField("assets", len(cfg.Assets)))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping")
	cancel()
	return nil
}
