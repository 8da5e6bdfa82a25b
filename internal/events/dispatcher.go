// Package events provides the observer registries the countdown engine
// publishes through, and the append-only journal of timer events.
package events

import "sync"

// Subscription is the handle returned by Subscribe. Its identity is what
// Unsubscribe removes.
type Subscription struct {
	active bool
	remove func(*Subscription)
}

// Unsubscribe detaches the handle from the dispatcher it came from.
// Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.remove == nil {
		return
	}
	s.remove(s)
}

// Subscriber is the read side of a Dispatcher, handed to observers.
type Subscriber[T any] interface {
	Subscribe(fn func(T)) *Subscription
	Unsubscribe(sub *Subscription)
}

type entry[T any] struct {
	sub *Subscription
	fn  func(T)
}

// Dispatcher delivers values to its subscribers, in subscription order,
// synchronously on the caller's goroutine.
type Dispatcher[T any] struct {
	mu      sync.Mutex
	entries []entry[T]
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher[T any]() *Dispatcher[T] {
	return &Dispatcher[T]{}
}

// Subscribe registers fn and returns its handle.
func (d *Dispatcher[T]) Subscribe(fn func(T)) *Subscription {
	sub := &Subscription{active: true}
	sub.remove = func(s *Subscription) { d.Unsubscribe(s) }

	d.mu.Lock()
	d.entries = append(d.entries, entry[T]{sub: sub, fn: fn})
	d.mu.Unlock()

	return sub
}

// Unsubscribe removes sub. Unknown or nil handles are ignored.
func (d *Dispatcher[T]) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for i, e := range d.entries {
		if e.sub == sub {
			e.sub.active = false
			d.entries = append(d.entries[:i:i], d.entries[i+1:]...)
			return
		}
	}
}

// Dispatch calls every subscriber with v. Iteration runs over a snapshot, and
// a subscription removed during the emission is skipped if not yet reached.
func (d *Dispatcher[T]) Dispatch(v T) {
	d.mu.Lock()
	snapshot := make([]entry[T], len(d.entries))
	copy(snapshot, d.entries)
	d.mu.Unlock()

	for _, e := range snapshot {
		if !d.isActive(e.sub) {
			continue
		}
		e.fn(v)
	}
}

// Len returns the number of live subscriptions.
func (d *Dispatcher[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.entries)
}

func (d *Dispatcher[T]) isActive(sub *Subscription) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return sub.active
}

// Signal is a Dispatcher without payload.
type Signal struct {
	d Dispatcher[struct{}]
}

// NewSignal creates an empty signal.
func NewSignal() *Signal {
	return &Signal{}
}

// Subscribe registers fn and returns its handle.
func (s *Signal) Subscribe(fn func()) *Subscription {
	return s.d.Subscribe(func(struct{}) { fn() })
}

// Unsubscribe removes sub. Unknown or nil handles are ignored.
func (s *Signal) Unsubscribe(sub *Subscription) {
	s.d.Unsubscribe(sub)
}

// Dispatch notifies every subscriber.
func (s *Signal) Dispatch() {
	s.d.Dispatch(struct{}{})
}

// Len returns the number of live subscriptions.
func (s *Signal) Len() int {
	return s.d.Len()
}

// Notifier is the read side of a Signal.
type Notifier interface {
	Subscribe(fn func()) *Subscription
	Unsubscribe(sub *Subscription)
}
