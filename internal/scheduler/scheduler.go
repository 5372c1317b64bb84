// Package scheduler provides the clock and one-shot timer abstraction used by
// slide tracking and the completion lifecycle.
package scheduler

import (
	"sync"
	"time"
)

// CancelFunc stops a scheduled task. It is safe to call more than once and
// after the task has already run.
type CancelFunc func()

// Clock returns the current time
type Clock interface {
	Now() time.Time
}

// Scheduler runs fn once after delay unless cancelled first
type Scheduler interface {
	ScheduleOnce(delay time.Duration, fn func()) CancelFunc
}

// Real is the wall-clock implementation
type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}

func (Real) ScheduleOnce(delay time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(delay, fn)
	var once sync.Once
	return func() {
		once.Do(func() { t.Stop() })
	}
}
