package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a timer event.
type EventType string

const (
	EventTypeStart          EventType = "START"
	EventTypeStop           EventType = "STOP"
	EventTypeClear          EventType = "CLEAR"
	EventTypeExtend         EventType = "EXTEND"
	EventTypeSetDuration    EventType = "SET_DURATION"
	EventTypeRunningChanged EventType = "RUNNING_CHANGED"
	EventTypeCompleted      EventType = "COMPLETED"
)

// TimerEvent is an immutable record of a command or transition of a timer.
type TimerEvent struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	TimerID    string    `json:"timer_id"`
	ActorID    string    `json:"actor_id"`
	ElapsedMs  int64     `json:"elapsed_ms"`
	DurationMs int64     `json:"duration_ms"`
	Running    bool      `json:"running"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event TimerEvent) error
}

// Journal is the in-memory append-only log of timer events.
type Journal struct {
	mu        sync.RWMutex
	events    []TimerEvent
	persister EventPersister
	onError   func(TimerEvent, error)
	wg        sync.WaitGroup
}

// NewJournal creates a journal with an optional persister.
func NewJournal(persister EventPersister) *Journal {
	return &Journal{
		events:    make([]TimerEvent, 0),
		persister: persister,
	}
}

// OnPersistError sets a callback for failed writes to the persister.
func (j *Journal) OnPersistError(fn func(TimerEvent, error)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.onError = fn
}

// Append adds an event, filling ID and Timestamp when empty, and returns the
// stored copy.
func (j *Journal) Append(event TimerEvent) TimerEvent {
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, event)

	if j.persister != nil {
		onError := j.onError
		j.wg.Add(1)
		go func(e TimerEvent) {
			defer j.wg.Done()
			if err := j.persister.Append(e); err != nil && onError != nil {
				onError(e, err)
			}
		}(event)
	}

	return event
}

// Flush waits for pending persister writes.
func (j *Journal) Flush() {
	j.wg.Wait()
}

// ByType returns all events of the given type.
func (j *Journal) ByType(t EventType) []TimerEvent {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var result []TimerEvent
	for _, e := range j.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// Since returns events appended after the first n.
func (j *Journal) Since(n int) []TimerEvent {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if n < 0 {
		n = 0
	}
	if n >= len(j.events) {
		return nil
	}

	result := make([]TimerEvent, len(j.events)-n)
	copy(result, j.events[n:])
	return result
}

// Replay returns a copy of the full history.
func (j *Journal) Replay() []TimerEvent {
	return j.Since(0)
}

// Len returns the number of events in the journal.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.events)
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
