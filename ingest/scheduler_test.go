package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCycle struct {
	calls int
	run   func(calls int) error
}

func (c *stubCycle) Run(ctx context.Context) error {
	c.calls++
	return c.run(c.calls)
}

func fastScheduler(cycle Cycle) *Scheduler {
	s := NewScheduler(cycle, testLogger())
	s.period = time.Millisecond
	s.minSleep = time.Microsecond
	return s
}

func TestRunOnceExecutesExactlyOneCycle(t *testing.T) {
	cycleErr := errors.New("cycle failed")
	cycle := &stubCycle{run: func(int) error { return cycleErr }}
	s := fastScheduler(cycle)

	assert.ErrorIs(t, s.RunOnce(context.Background()), cycleErr)
	assert.Equal(t, 1, cycle.calls)

	ok := &stubCycle{run: func(int) error { return nil }}
	require.NoError(t, fastScheduler(ok).RunOnce(context.Background()))
	assert.Equal(t, 1, ok.calls)
}

func TestRunForeverStopsAtFailureThreshold(t *testing.T) {
	cycle := &stubCycle{run: func(int) error { return errors.New("store down") }}
	s := fastScheduler(cycle)

	err := s.RunForever(context.Background())
	assert.ErrorIs(t, err, ErrTooManyFailures)
	assert.Equal(t, defaultMaxFailures, cycle.calls)
}

func TestRunForeverResetsCounterOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Two bursts of four failures separated by a success never reach the
	// threshold of five consecutive ones.
	cycle := &stubCycle{run: func(calls int) error {
		if calls%5 == 0 {
			if calls == 10 {
				cancel()
			}
			return nil
		}
		return errors.New("store down")
	}}

	err := fastScheduler(cycle).RunForever(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, cycle.calls)
}

func TestRunForeverStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cycle := &stubCycle{run: func(int) error { return nil }}
	require.NoError(t, fastScheduler(cycle).RunForever(ctx))
	assert.Zero(t, cycle.calls, "a cancelled scheduler must not start a cycle")
}

func TestRunCycleRecoversPanics(t *testing.T) {
	cycle := &stubCycle{run: func(int) error { panic("boom") }}
	s := fastScheduler(cycle)

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestSleepFor(t *testing.T) {
	s := NewScheduler(nil, testLogger())

	assert.Equal(t, 15*time.Second, s.sleepFor(45*time.Second))
	assert.Equal(t, time.Second, s.sleepFor(75*time.Second))
	assert.Equal(t, time.Second, s.sleepFor(time.Minute-500*time.Millisecond))
	assert.Equal(t, time.Minute, s.sleepFor(0))
}
