package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"PeakHour/internal/logger"
	"PeakHour/internal/model"
	"PeakHour/internal/session"
)

// Warmer pulls a series through the cached candle source.
type Warmer interface {
	Series(ctx context.Context, symbol string, mode model.Mode, n int) ([]model.OHLCV, error)
}

// Scheduler manages the background cron tasks.
type Scheduler struct {
	Cron        *cron.Cron
	Warmer      Warmer
	Assets      []model.Asset
	WarmupWeeks int
	Sessions    session.Store
	SessionIdle time.Duration
	Ctx         context.Context
	Log         *logger.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, w Warmer, assets []model.Asset, warmupWeeks int,
	sessions session.Store, sessionIdle time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds()),
		Warmer:      w,
		Assets:      assets,
		WarmupWeeks: warmupWeeks,
		Sessions:    sessions,
		SessionIdle: sessionIdle,
		Ctx:         ctx,
		Log:         log,
	}
}

// RegisterAll registers the cache warm-up and session eviction tasks.
func (s *Scheduler) RegisterAll(warmupCron, evictCron string) error {
	if s.WarmupWeeks > 0 {
		if _, err := s.Cron.AddFunc(warmupCron, s.warmupTask); err != nil {
			return fmt.Errorf("register warmup task: %w", err)
		}
	}
	if _, err := s.Cron.AddFunc(evictCron, s.evictTask); err != nil {
		return fmt.Errorf("register evict task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info("scheduler started", logger.NewField("entries", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info("scheduler stopped")
}

// RunWarmupNow executes the warm-up task immediately.
func (s *Scheduler) RunWarmupNow() {
	s.warmupTask()
}

func (s *Scheduler) warmupTask() {
	s.Log.Info("running cache warm-up", logger.NewField("assets", len(s.Assets)))
	warmed := 0
	for _, a := range s.Assets {
		if s.Ctx.Err() != nil {
			return
		}
		bars, err := s.Warmer.Series(s.Ctx, a.Symbol, model.ModeWeekly, s.WarmupWeeks)
		if err != nil {
			s.Log.Warn("warm-up fetch failed", logger.NewField("symbol", a.Symbol), logger.NewField("error", err.Error()))
			continue
		}
		warmed++
		s.Log.Debug("warmed", logger.NewField("symbol", a.Symbol), logger.NewField("bars", len(bars)))
	}
	s.Log.Info("cache warm-up done", logger.NewField("warmed", warmed))
}

func (s *Scheduler) evictTask() {
	removed, err := s.Sessions.Evict(s.Ctx, time.Now().Add(-s.SessionIdle))
	if err != nil {
		s.Log.Error(fmt.Errorf("evict sessions: %w", err))
		return
	}
	if removed > 0 {
		s.Log.Info("idle sessions evicted", logger.NewField("removed", removed))
	}
}
