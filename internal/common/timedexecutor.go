package common

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Give the timed executor a task and a period.
// Once running, the task executes every period until the context is
// cancelled or the requested number of runs is reached. A run never
// overlaps the previous one: if a run takes longer than the period,
// the next one starts right after it
type TimedExecutor struct {
	Name      string
	stopwatch Stopwatch
	task      func(ctx context.Context) error
	before    func(ctx context.Context) error
	count     int
	observer  func(name string, elapsed time.Duration, err error)
}

// Create a timed executor provided a name, a period and a task
func NewTimedExecutor(name string, period time.Duration, task func(ctx context.Context) error) *TimedExecutor {
	return &TimedExecutor{Name: name, stopwatch: NewStopwatch(period), task: task}
}

// Only run the task this number of times. Zero means forever
func (te *TimedExecutor) Count(count int) *TimedExecutor {
	te.count = count
	return te
}

// Wait for this function before the first run. If it fails, the
// executor never runs the task
func (te *TimedExecutor) Before(before func(ctx context.Context) error) *TimedExecutor {
	te.before = before
	return te
}

// Called after every run with its duration and result
func (te *TimedExecutor) Observe(observer func(name string, elapsed time.Duration, err error)) *TimedExecutor {
	te.observer = observer
	return te
}

// Run blocks until the context is done or the count is reached.
// Task errors are logged and do not stop the executor
func (te *TimedExecutor) Run(ctx context.Context) error {

	if te.before != nil {
		if err := te.before(ctx); err != nil {
			log.Warn().Err(err).Str("task", te.Name).Msg("Task will not start")
			return err
		}
	}

	log.Info().Str("task", te.Name).Dur("period", te.stopwatch.Timeout).Msg("Starting task")
	for runs := 1; ; runs++ {
		te.stopwatch.Start()
		err := te.task(ctx)
		elapsed := te.stopwatch.Elapsed()
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("task", te.Name).Msg("Task run failed")
		}
		if te.observer != nil {
			te.observer(te.Name, elapsed, err)
		}
		if te.count > 0 && runs >= te.count {
			log.Debug().Str("task", te.Name).Int("runs", runs).Msg("Task finished")
			return nil
		}

		// Wait for what is left of the period
		stopped, late := te.stopwatch.Stopped()
		wait := time.Duration(0)
		if stopped {
			if late > 0 {
				log.Debug().Str("task", te.Name).Dur("late", late).Msg("Task run took longer than its period")
			}
		} else {
			wait = -late
		}
		if err := Sleep(ctx, wait); err != nil {
			log.Info().Str("task", te.Name).Msg("Stopping task")
			return err
		}
	}
}

// Sleep for the duration or until the context is done. Negative
// durations return immediately
func Sleep(ctx context.Context, duration time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if duration <= 0 {
		return nil
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
