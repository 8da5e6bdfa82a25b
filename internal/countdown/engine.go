// Package countdown contains the countdown engine: a small stateful clock
// that counts elapsed time toward a target duration and publishes every
// change to its observers.
//
// The engine is not safe for concurrent use. All calls, and all callbacks of
// its Scheduler, must happen on one goroutine; in the server that is the
// clock.Loop goroutine.
package countdown

import (
	"time"

	"github.com/superwave/timer/server/internal/clock"
	"github.com/superwave/timer/server/internal/events"
	"github.com/superwave/timer/server/internal/platform/logger"
	"github.com/superwave/timer/server/internal/platform/metrics"
)

// DefaultInterval is the tick period of a new engine.
const DefaultInterval = time.Second

// Engine counts elapsed time in steps of its interval until the configured
// duration is reached.
type Engine struct {
	scheduler clock.Scheduler
	logger    *logger.Logger
	metrics   *metrics.Collector

	interval time.Duration
	duration time.Duration
	elapsed  time.Duration
	paused   bool
	schedule clock.Schedule

	tick           *events.Dispatcher[time.Duration]
	runningChanged *events.Dispatcher[bool]
	completed      *events.Signal
}

// New creates an idle engine. Without options the interval is
// DefaultInterval and no duration is set.
func New(scheduler clock.Scheduler, opts ...Option) *Engine {
	e := &Engine{
		scheduler:      scheduler,
		logger:         logger.Nop(),
		interval:       DefaultInterval,
		tick:           events.NewDispatcher[time.Duration](),
		runningChanged: events.NewDispatcher[bool](),
		completed:      events.NewSignal(),
	}
	e.apply(opts)

	return e
}

// SetLogger replaces the engine logger.
func (e *Engine) SetLogger(l *logger.Logger) *Engine {
	e.logger = l.With("countdown")
	return e
}

// SetMetrics attaches a metrics collector.
func (e *Engine) SetMetrics(c *metrics.Collector) *Engine {
	e.metrics = c
	return e
}

// Start merges opts into the configuration and starts counting. Elapsed time
// is reset unless the engine was paused by Stop. Without a duration, or with a
// non-positive interval, Start emits tick(0) and running-changed(false) and
// schedules nothing. Start on a running engine does nothing.
func (e *Engine) Start(opts ...Option) {
	if e.Running() {
		e.logger.Debug("start ignored; already running")
		return
	}

	e.apply(opts)

	if !e.paused {
		e.elapsed = 0
	}
	e.paused = false

	e.startInterval()
}

func (e *Engine) startInterval() {
	if e.duration <= 0 || e.interval <= 0 {
		if e.interval <= 0 {
			e.logger.Zerolog().Warn().Dur("interval", e.interval).Msg("non-positive interval; countdown not scheduled")
		}

		e.tick.Dispatch(0)
		e.runningChanged.Dispatch(false)
		return
	}

	var s clock.Schedule
	s = e.scheduler.Every(e.interval, func() { e.onInterval(s) })
	e.schedule = s

	e.metrics.RecordRunStarted()
	e.logger.Zerolog().Debug().
		Dur("duration", e.duration).
		Dur("interval", e.interval).
		Dur("elapsed", e.elapsed).
		Msg("countdown started")

	e.runningChanged.Dispatch(true)
}

// onInterval processes a single tick of schedule s.
func (e *Engine) onInterval(s clock.Schedule) {
	if e.schedule != s {
		return
	}

	e.elapsed += e.interval
	e.metrics.RecordTick()
	e.tick.Dispatch(e.elapsed)

	// an observer may have stopped or restarted the countdown
	if e.schedule != s {
		return
	}

	if e.duration > 0 && e.elapsed >= e.duration {
		e.cancel()
		e.paused = false

		e.metrics.RecordRunCompleted()
		e.logger.Zerolog().Debug().Dur("elapsed", e.elapsed).Msg("countdown completed")

		e.runningChanged.Dispatch(false)
		e.completed.Dispatch()
	}
}

func (e *Engine) cancel() {
	if e.schedule == nil {
		return
	}
	e.schedule.Cancel()
	e.schedule = nil
}

// Stop cancels the schedule and keeps the elapsed time for a later Start.
// It always emits running-changed(false).
func (e *Engine) Stop() {
	if e.schedule != nil {
		e.cancel()
		e.paused = true

		e.metrics.RecordRunStopped()
		e.logger.Zerolog().Debug().Dur("elapsed", e.elapsed).Msg("countdown paused")
	}

	e.runningChanged.Dispatch(false)
}

// Clear cancels the schedule, resets elapsed time and emits
// running-changed(false) followed by tick(0).
func (e *Engine) Clear() {
	e.cancel()
	e.elapsed = 0
	e.paused = false

	e.metrics.RecordClear()

	e.runningChanged.Dispatch(false)
	e.tick.Dispatch(0)
}

// Extend adds d to the configured duration. It does nothing when no duration
// is set or d is not positive.
func (e *Engine) Extend(d time.Duration) {
	if e.duration <= 0 || d <= 0 {
		return
	}

	e.duration += d
	e.metrics.RecordExtension()
}

// SetDuration replaces the target duration.
func (e *Engine) SetDuration(d time.Duration) {
	e.duration = clampDuration(d)
}

// ResetElapsed sets elapsed time to zero and emits tick(0).
func (e *Engine) ResetElapsed() {
	e.elapsed = 0
	e.tick.Dispatch(0)
}

// Running reports whether a tick schedule is active.
func (e *Engine) Running() bool {
	return e.schedule != nil
}

// Paused reports whether the engine was stopped with its elapsed time kept.
func (e *Engine) Paused() bool {
	return e.paused
}

// Elapsed returns the accumulated time since the last reset.
func (e *Engine) Elapsed() time.Duration {
	return e.elapsed
}

// Duration returns the target duration; zero means none.
func (e *Engine) Duration() time.Duration {
	return e.duration
}

// Interval returns the tick period.
func (e *Engine) Interval() time.Duration {
	return e.interval
}

// Remaining returns duration minus elapsed, never below zero, or zero when no
// duration is set.
func (e *Engine) Remaining() time.Duration {
	if e.duration <= 0 {
		return 0
	}
	if r := e.duration - e.elapsed; r > 0 {
		return r
	}
	return 0
}

// OnTick publishes the elapsed time after every change to it.
func (e *Engine) OnTick() events.Subscriber[time.Duration] {
	return e.tick
}

// OnRunningChanged publishes the running state.
func (e *Engine) OnRunningChanged() events.Subscriber[bool] {
	return e.runningChanged
}

// OnCompleted fires when elapsed time reaches the duration.
func (e *Engine) OnCompleted() events.Notifier {
	return e.completed
}
