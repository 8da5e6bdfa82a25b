// Package clock supplies the tick source the countdown engine runs on.
//
// Production code drives everything from a Loop: a single goroutine that
// executes posted functions and scheduled ticks in order. Tests use Fake,
// which fires schedules only when Advance is called.
package clock

import "time"

// Schedule is an active repeating callback.
type Schedule interface {
	// Cancel stops the schedule. Called from the goroutine that runs the
	// callbacks, it guarantees the callback never runs again.
	Cancel()
}

// Scheduler creates repeating callbacks.
type Scheduler interface {
	// Every runs fn every d until the returned Schedule is cancelled. A
	// non-positive d yields a schedule that never fires.
	Every(d time.Duration, fn func()) Schedule
}

type noopSchedule struct{}

func (noopSchedule) Cancel() {}
