package common

import (
	"time"
)

// This stopwatch keeps track of time. You can set a timeout for it,
// make it start counting time, and ask it if the timeout has been reached
type Stopwatch struct {
	Timeout   time.Duration
	startTime time.Time
	Running   bool
}

func NewStopwatch(timeout time.Duration) Stopwatch {
	return Stopwatch{timeout, time.Time{}, false}
}

func (s *Stopwatch) Start() {
	s.Running = true
	s.startTime = time.Now()
}

func (s *Stopwatch) Stop() {
	s.Running = false
}

// Time since the stopwatch was started
func (s *Stopwatch) Elapsed() time.Duration {
	return time.Since(s.startTime)
}

// Return the time elapsed since this stopwatch
// stopped (reached its timeout).
// Note that if the number is negative, the timeout still
// has not been reached
func (s *Stopwatch) TimeStopped() time.Duration {
	return time.Since(s.startTime.Add(s.Timeout))
}

// A stopwatch that never started counts as stopped
func (s *Stopwatch) Stopped() (bool, time.Duration) {
	if !s.Running {
		return true, 0
	}
	stopped := s.TimeStopped()
	return stopped >= 0, stopped
}
