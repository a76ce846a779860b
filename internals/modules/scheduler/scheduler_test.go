package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"healthwatch/internals/modules/engine"
	"healthwatch/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	mu       sync.Mutex
	calls    int
	at       []time.Time
	delay    time.Duration
	inFlight atomic.Int32
	overlap  atomic.Bool
	ctxErrs  []error
}

func (r *countingRunner) RunCycle(ctx context.Context) engine.CycleSummary {
	if r.inFlight.Add(1) > 1 {
		r.overlap.Store(true)
	}
	defer r.inFlight.Add(-1)

	time.Sleep(r.delay)

	r.mu.Lock()
	r.calls++
	r.at = append(r.at, time.Now())
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	r.mu.Unlock()
	return engine.CycleSummary{}
}

func (r *countingRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestRunStartsFirstCycleImmediately(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, time.Hour, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runner.Calls() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.Equal(t, 1, <-done)
}

func TestRunRepeatsOnInterval(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, 30*time.Millisecond, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runner.Calls() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	runner.mu.Lock()
	defer runner.mu.Unlock()
	for i := 1; i < len(runner.at); i++ {
		assert.GreaterOrEqual(t, runner.at[i].Sub(runner.at[i-1]), 25*time.Millisecond)
	}
}

func TestRunLetsInFlightCycleFinish(t *testing.T) {
	runner := &countingRunner{delay: 50 * time.Millisecond}
	s := NewScheduler(runner, time.Hour, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runner.inFlight.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	cycles := <-done

	assert.Equal(t, 1, cycles)
	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.ctxErrs, 1)
	assert.NoError(t, runner.ctxErrs[0], "cycle context is detached from shutdown")
}

func TestRunOverrunningCyclesNeverOverlap(t *testing.T) {
	runner := &countingRunner{delay: 20 * time.Millisecond}
	s := NewScheduler(runner, 5*time.Millisecond, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runner.Calls() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.False(t, runner.overlap.Load())
}

func TestRunPanicsOnInvalidInterval(t *testing.T) {
	s := NewScheduler(&countingRunner{}, 0, logger.Nop())
	assert.Panics(t, func() { s.Run(context.Background()) })
}

// cancellingRunner requests shutdown from inside its first cycle and then
// overruns the interval, so the next tick is already due when it returns.
type cancellingRunner struct {
	cancel context.CancelFunc
	delay  time.Duration
	calls  atomic.Int32
}

func (r *cancellingRunner) RunCycle(context.Context) engine.CycleSummary {
	r.calls.Add(1)
	r.cancel()
	time.Sleep(r.delay)
	return engine.CycleSummary{}
}

func TestRunStartsNoCycleAfterShutdownDuringOverrun(t *testing.T) {
	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		runner := &cancellingRunner{cancel: cancel, delay: 5 * time.Millisecond}
		s := NewScheduler(runner, time.Millisecond, logger.Nop())

		cycles := s.Run(ctx)
		cancel()

		require.Equal(t, 1, cycles, "iteration %d", i)
		require.EqualValues(t, 1, runner.calls.Load(), "iteration %d", i)
	}
}
