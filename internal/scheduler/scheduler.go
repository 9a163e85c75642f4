// Package scheduler drives the periodic score recompute.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/logger"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/scoring"
)

// Recomputer is the slice of the scoring engine the scheduler needs.
type Recomputer interface {
	RecomputeAll(ctx context.Context, now time.Time) (*scoring.RecomputeReport, error)
}

// Scheduler ticks at a fixed interval and triggers a full recompute pass.
// A tick that arrives while the previous pass is still running is skipped;
// passes never overlap.
type Scheduler struct {
	interval time.Duration
	engine   Recomputer
	logger   logger.Logger
	running  atomic.Bool
}

func New(interval time.Duration, engine Recomputer, log logger.Logger) *Scheduler {
	return &Scheduler{
		interval: interval,
		engine:   engine,
		logger:   log.With(map[string]interface{}{"component": "scheduler"}),
	}
}

// Run blocks until ctx is cancelled. The first pass fires after one full
// interval, not at startup.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("recompute scheduler started", map[string]interface{}{
		"interval": s.interval.String(),
	})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("recompute scheduler stopped", nil)
			return
		case now := <-ticker.C:
			s.runOnce(ctx, now)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, now time.Time) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous recompute still running, skipping tick", nil)
		return
	}
	defer s.running.Store(false)

	report, err := s.engine.RecomputeAll(ctx, now)
	if err != nil {
		s.logger.Error("recompute pass failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(report.Failures) > 0 {
		s.logger.Warn("recompute pass finished with failures", map[string]interface{}{
			"failures": len(report.Failures),
		})
	}
}

// TriggerNow runs one pass immediately, honoring the same no-overlap guard.
func (s *Scheduler) TriggerNow(ctx context.Context) {
	s.runOnce(ctx, time.Now())
}
