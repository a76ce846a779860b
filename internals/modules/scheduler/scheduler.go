package scheduler

import (
	"context"
	"time"

	"healthwatch/internals/modules/engine"

	"github.com/rs/zerolog"
)

type CycleRunner interface {
	RunCycle(ctx context.Context) engine.CycleSummary
}

// Scheduler runs check cycles back to back on a fixed interval. The first
// cycle starts immediately; an overrunning cycle makes the next one start
// right after it.
type Scheduler struct {
	runner   CycleRunner
	interval time.Duration
	logger   *zerolog.Logger
}

func NewScheduler(runner CycleRunner, interval time.Duration, logger *zerolog.Logger) *Scheduler {
	l := logger.With().Str("component", "scheduler").Logger()
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   &l,
	}
}

// Run blocks until ctx is cancelled. A cycle in flight when that happens is
// allowed to finish, since cycles run on a context detached from ctx, and no
// further cycle starts.
func (s *Scheduler) Run(ctx context.Context) int {
	if s.interval <= 0 {
		panic("scheduler interval must be > 0")
	}
	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")

	cycleCtx := context.WithoutCancel(ctx)
	timer := time.NewTimer(0)
	cycles := 0
	defer func() {
		timer.Stop()
		s.logger.Info().Int("cycles", cycles).Msg("scheduler stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return cycles

		case <-timer.C:
			// both cases can be ready after an overrun; shutdown wins
			if ctx.Err() != nil {
				return cycles
			}

			started := time.Now()
			s.runner.RunCycle(cycleCtx)
			cycles++

			elapsed := time.Since(started)
			if elapsed > s.interval {
				s.logger.Warn().
					Dur("took", elapsed).
					Dur("interval", s.interval).
					Msg("check cycle overran the interval")
			}
			timer.Reset(max(0, s.interval-elapsed))
		}
	}
}
