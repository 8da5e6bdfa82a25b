package clock

import (
	"sync"
	"time"
)

// Fake is a manually advanced Scheduler. Callbacks run synchronously inside
// Advance, on the caller's goroutine.
type Fake struct {
	mu        sync.Mutex
	now       time.Duration
	seq       int
	schedules []*fakeSchedule
}

// NewFake creates a fake scheduler at virtual time zero.
func NewFake() *Fake {
	return &Fake{}
}

type fakeSchedule struct {
	f         *Fake
	interval  time.Duration
	next      time.Duration
	seq       int
	fn        func()
	cancelled bool
}

func (s *fakeSchedule) Cancel() {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()

	s.cancelled = true
	for i, c := range s.f.schedules {
		if c == s {
			s.f.schedules = append(s.f.schedules[:i:i], s.f.schedules[i+1:]...)
			break
		}
	}
}

// Every implements Scheduler.
func (f *Fake) Every(d time.Duration, fn func()) Schedule {
	if d <= 0 {
		return noopSchedule{}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	s := &fakeSchedule{
		f:        f,
		interval: d,
		next:     f.now + d,
		seq:      f.seq,
		fn:       fn,
	}
	f.schedules = append(f.schedules, s)

	return s
}

// Advance moves virtual time forward by d, firing every schedule that comes
// due, earliest first.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now + d
	f.mu.Unlock()

	for {
		s := f.nextDue(target)
		if s == nil {
			break
		}
		s.fn()
	}

	f.mu.Lock()
	if f.now < target {
		f.now = target
	}
	f.mu.Unlock()
}

func (f *Fake) nextDue(target time.Duration) *fakeSchedule {
	f.mu.Lock()
	defer f.mu.Unlock()

	var due *fakeSchedule
	for _, s := range f.schedules {
		if s.cancelled || s.next > target {
			continue
		}
		if due == nil || s.next < due.next || (s.next == due.next && s.seq < due.seq) {
			due = s
		}
	}

	if due != nil {
		f.now = due.next
		due.next += due.interval
	}

	return due
}

// Now returns the virtual time elapsed since the fake was created.
func (f *Fake) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Active returns the number of schedules not yet cancelled.
func (f *Fake) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.schedules)
}
