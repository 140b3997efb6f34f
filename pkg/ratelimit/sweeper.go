package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper evicts idle limiter keys from a State on a cron schedule.
type Sweeper struct {
	state    *State
	schedule string
	cron     *cron.Cron
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

func NewSweeper(state *State, schedule string) *Sweeper {
	return &Sweeper{
		state:    state,
		schedule: schedule,
		cron:     cron.New(),
		now:      time.Now,
		logger:   slog.Default().With("component", "rate-limit.sweeper"),
	}
}

// Start schedules the sweep and stops it when ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce() }); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.done = make(chan struct{})
	done := s.done
	s.logger.Info("rate limit sweeper started", "schedule", s.schedule)

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-done:
		}
	}()

	return nil
}

// RunOnce performs a single sweep and returns the number of evicted keys.
func (s *Sweeper) RunOnce() int {
	removed := s.state.Sweep(s.now())
	if removed > 0 {
		s.logger.Debug("swept idle rate limit keys", "removed", removed, "remaining", s.state.Len())
	}
	return removed
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		close(s.done)
		s.running = false
		s.logger.Info("rate limit sweeper stopped")
	}
}

func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
