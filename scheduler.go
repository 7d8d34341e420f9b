package queueprocessor

import (
	"time"

	"github.com/joeycumines/go-eventloop"
)

type (
	// Scheduler arranges for fn to be called after delay, on the loop. It must
	// not call fn synchronously.
	Scheduler interface {
		ScheduleAfter(delay time.Duration, fn func()) error
	}

	// SchedulerFunc implements [Scheduler].
	SchedulerFunc func(delay time.Duration, fn func()) error
)

var _ Scheduler = SchedulerFunc(nil)

// ScheduleAfter calls x.
func (x SchedulerFunc) ScheduleAfter(delay time.Duration, fn func()) error {
	return x(delay, fn)
}

// TimeoutScheduler returns the default [Scheduler], which uses
// [eventloop.JS.SetTimeout]. Delays are rounded up to whole milliseconds.
func TimeoutScheduler(js *eventloop.JS) Scheduler {
	return SchedulerFunc(func(delay time.Duration, fn func()) error {
		_, err := js.SetTimeout(fn, delayMillis(delay))
		return err
	})
}

func delayMillis(delay time.Duration) int {
	if delay <= 0 {
		return 0
	}
	return int((delay + time.Millisecond - 1) / time.Millisecond)
}
