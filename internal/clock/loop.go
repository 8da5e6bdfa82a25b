package clock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// ErrLoopStopped is returned when work is submitted to a loop that has exited.
var ErrLoopStopped = errors.New("loop stopped")

// Loop executes posted functions one at a time on a single goroutine.
type Loop struct {
	queue    chan func()
	done     chan struct{}
	doneOnce sync.Once
}

// NewLoop creates a loop whose queue holds up to buffer pending functions.
func NewLoop(buffer int) *Loop {
	if buffer < 1 {
		buffer = 1
	}

	return &Loop{
		queue: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Run processes queued functions until ctx is cancelled. Call in a goroutine.
func (l *Loop) Run(ctx context.Context) {
	defer l.doneOnce.Do(func() { close(l.done) })

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.queue:
			fn()
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Post queues fn without waiting for it. It reports false if the loop has
// exited.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to return. It must not be called
// from the loop goroutine.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}

	finished := make(chan struct{})

	select {
	case l.queue <- func() {
		defer close(finished)
		fn()
	}:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "enqueue on loop")
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopStopped
		}
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "wait for loop")
	}
}

// Every implements Scheduler. Ticks come from a time.Ticker and are posted to
// the loop; a tick that reaches the loop after Cancel is dropped.
func (l *Loop) Every(d time.Duration, fn func()) Schedule {
	if d <= 0 {
		return noopSchedule{}
	}

	s := &loopSchedule{stop: make(chan struct{})}

	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-l.done:
				return
			case <-ticker.C:
				l.Post(func() {
					if s.cancelled.Load() {
						return
					}
					fn()
				})
			}
		}
	}()

	return s
}

type loopSchedule struct {
	cancelled atomic.Bool
	stop      chan struct{}
	once      sync.Once
}

func (s *loopSchedule) Cancel() {
	s.cancelled.Store(true)
	s.once.Do(func() { close(s.stop) })
}
