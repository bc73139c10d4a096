package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// defaultPeriod is the target cadence between cycle starts.
	defaultPeriod = time.Minute
	// defaultMinSleep keeps an overrunning cycle from busy-spinning.
	defaultMinSleep = time.Second
	// defaultMaxFailures is the consecutive-failure shutdown threshold.
	defaultMaxFailures = 5
)

// ErrTooManyFailures is returned by RunForever when the consecutive
// failure threshold is reached. This is an intentional shutdown, not a
// crash.
var ErrTooManyFailures = errors.New("too many consecutive failures")

// Cycle is one full ingestion pass.
type Cycle interface {
	Run(ctx context.Context) error
}

// Scheduler runs a Cycle once or forever on a fixed cadence, counting
// consecutive failures. Stopping is cooperative: cancellation is only
// observed between cycles, never mid-cycle.
type Scheduler struct {
	cycle Cycle
	log   *logrus.Logger

	period      time.Duration
	minSleep    time.Duration
	maxFailures int
}

func NewScheduler(cycle Cycle, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cycle:       cycle,
		log:         log,
		period:      defaultPeriod,
		minSleep:    defaultMinSleep,
		maxFailures: defaultMaxFailures,
	}
}

// RunOnce executes exactly one cycle and reports its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runCycle(ctx)
}

// RunForever loops until the context is cancelled (returns nil) or
// maxFailures consecutive cycles fail (returns ErrTooManyFailures).
func (s *Scheduler) RunForever(ctx context.Context) error {
	failures := 0

	for {
		if ctx.Err() != nil {
			return nil
		}

		start := time.Now()
		err := s.runCycle(ctx)
		elapsed := time.Since(start)

		if err != nil {
			failures++
			s.log.WithError(err).WithField("consecutive_failures", failures).Error("cycle failed")
			if failures >= s.maxFailures {
				s.log.Errorf("%d consecutive failures, shutting down", failures)
				return ErrTooManyFailures
			}
		} else {
			failures = 0
		}

		sleep := s.sleepFor(elapsed)
		s.log.WithFields(logrus.Fields{
			"elapsed": elapsed.Round(100 * time.Millisecond).String(),
			"sleep":   sleep.Round(100 * time.Millisecond).String(),
		}).Info("cycle finished")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(sleep):
		}
	}
}

// runCycle converts a panicking cycle into a counted failure.
func (s *Scheduler) runCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panicked: %v", r)
		}
	}()
	return s.cycle.Run(ctx)
}

// sleepFor is max(period - elapsed, minSleep), never negative.
func (s *Scheduler) sleepFor(elapsed time.Duration) time.Duration {
	sleep := s.period - elapsed
	if sleep < s.minSleep {
		return s.minSleep
	}
	return sleep
}
