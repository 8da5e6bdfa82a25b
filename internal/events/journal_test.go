package events

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPersister struct {
	mu     sync.Mutex
	events []TimerEvent
	err    error
}

func (p *memPersister) Append(e TimerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func TestJournalAppendFillsIdentity(t *testing.T) {
	j := NewJournal(nil)

	e := j.Append(TimerEvent{Type: EventTypeStart, TimerID: "main"})

	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, 1, j.Len())
	assert.Equal(t, []TimerEvent{e}, j.Replay())
}

func TestJournalQueries(t *testing.T) {
	j := NewJournal(nil)
	j.Append(TimerEvent{Type: EventTypeStart})
	j.Append(TimerEvent{Type: EventTypeRunningChanged, Running: true})
	j.Append(TimerEvent{Type: EventTypeCompleted})
	j.Append(TimerEvent{Type: EventTypeRunningChanged})

	assert.Len(t, j.ByType(EventTypeRunningChanged), 2)
	assert.Len(t, j.Since(1), 3)
	assert.Nil(t, j.Since(4))
	assert.Len(t, j.Since(-3), 4)
}

func TestJournalPersists(t *testing.T) {
	p := &memPersister{}
	j := NewJournal(p)

	j.Append(TimerEvent{Type: EventTypeStart})
	j.Append(TimerEvent{Type: EventTypeStop})
	j.Flush()

	p.mu.Lock()
	defer p.mu.Unlock()
	require.Len(t, p.events, 2)
}

func TestJournalReportsPersistErrors(t *testing.T) {
	p := &memPersister{err: errors.New("disk full")}
	j := NewJournal(p)

	var mu sync.Mutex
	var failed []TimerEvent
	j.OnPersistError(func(e TimerEvent, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, e)
	})

	j.Append(TimerEvent{Type: EventTypeClear})
	j.Flush()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, failed, 1)
	assert.Equal(t, 1, j.Len())
}
