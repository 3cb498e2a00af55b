// Package scheduler re-warms the active location's snapshot in the
// background so consumers rarely hit a cold cache.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"skycast.app/config"
	"skycast.app/service"
)

// Scheduler periodically forces a snapshot refresh for the current location.
// A zero interval disables it; failed refreshes are logged and retried only
// at the next tick.
type Scheduler struct {
	weatherService *service.WeatherDataService
	interval       time.Duration
	cron           *gocron.Scheduler
}

// NewScheduler creates a refresh scheduler from configuration.
func NewScheduler(weatherService *service.WeatherDataService, cfg *config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		weatherService: weatherService,
		interval:       time.Duration(cfg.RefreshInterval) * time.Minute,
	}
}

// Start begins the background refresh loop.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		slog.Info("background refresh disabled")
		return nil
	}

	s.cron = gocron.NewScheduler(time.UTC)
	if _, err := s.cron.Every(s.interval).Do(s.refresh); err != nil {
		return err
	}
	s.cron.StartAsync()

	slog.Info("background refresh started", "interval", s.interval)
	return nil
}

// Stop halts the refresh loop.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.weatherService.Refresh(ctx); err != nil {
		slog.Warn("background refresh failed", "error", err)
	}
}
