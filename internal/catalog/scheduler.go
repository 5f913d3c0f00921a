package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultRefreshInterval is the weekly feed refresh cadence.
const DefaultRefreshInterval = 7 * 24 * time.Hour

// Refresher is the part of Service the Scheduler drives.
type Refresher interface {
	Refresh(ctx context.Context) error
	Stats() Stats
}

// Due reports whether a snapshot updated at last needs a refresh at now.
// A zero last time is always due.
func Due(now, last time.Time, every time.Duration) bool {
	if last.IsZero() {
		return true
	}
	return !now.Before(last.Add(every))
}

// Scheduler refreshes the catalog once the installed snapshot is older than the
// refresh interval. It wakes every check interval, so a failed refresh is retried
// on the next tick.
type Scheduler struct {
	svc   Refresher
	every time.Duration
	check time.Duration
	now   func() time.Time
}

// NewScheduler creates a Scheduler. Zero durations take the defaults: weekly
// refresh, hourly check.
func NewScheduler(svc Refresher, every, check time.Duration) *Scheduler {
	if every <= 0 {
		every = DefaultRefreshInterval
	}
	if check <= 0 {
		check = time.Hour
	}
	return &Scheduler{svc: svc, every: every, check: check, now: time.Now}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	zap.L().Info("scheduler: started",
		zap.Duration("every", s.every),
		zap.Duration("check", s.check),
	)
	ticker := time.NewTicker(s.check)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("scheduler: stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	last := s.svc.Stats().LastUpdated
	if !Due(s.now(), last, s.every) {
		return
	}
	zap.L().Info("scheduler: refresh due", zap.Time("last_updated", last))
	if err := s.svc.Refresh(ctx); err != nil {
		zap.L().Error("scheduler: refresh failed", zap.Error(err))
	}
}
