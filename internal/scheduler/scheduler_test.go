package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/logger"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/scoring"
)

type slowRecomputer struct {
	calls    int32
	duration time.Duration
}

func (s *slowRecomputer) RecomputeAll(ctx context.Context, now time.Time) (*scoring.RecomputeReport, error) {
	atomic.AddInt32(&s.calls, 1)
	select {
	case <-time.After(s.duration):
	case <-ctx.Done():
	}
	return &scoring.RecomputeReport{}, nil
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	engine := &slowRecomputer{}
	s := New(20*time.Millisecond, engine, logger.NewTestLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	calls := atomic.LoadInt32(&engine.calls)
	assert.GreaterOrEqual(t, calls, int32(3))
	assert.LessOrEqual(t, calls, int32(5))
}

func TestRunOnce_SkipsWhileRunning(t *testing.T) {
	engine := &slowRecomputer{duration: 200 * time.Millisecond}
	s := New(time.Hour, engine, logger.NewTestLogger(t))

	go s.TriggerNow(context.Background())
	time.Sleep(20 * time.Millisecond)
	s.TriggerNow(context.Background())

	assert.Equal(t, int32(1), atomic.LoadInt32(&engine.calls), "overlapping pass must be skipped")
}
