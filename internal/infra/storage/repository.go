// Package storage provides the persistence layer for the timer journal.
// Stored events are an audit history; the countdown state is never rebuilt
// from them.
package storage

import (
	"context"

	"github.com/superwave/timer/server/internal/events"
)

// EventRepository defines the interface for journal persistence.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event events.TimerEvent) error

	// GetByTimerID retrieves all events of a timer, oldest first.
	GetByTimerID(ctx context.Context, timerID string) ([]events.TimerEvent, error)

	// GetByType retrieves all events of a timer with the given type.
	GetByType(ctx context.Context, timerID string, eventType events.EventType) ([]events.TimerEvent, error)

	// Recent retrieves up to limit events of a timer, newest first.
	Recent(ctx context.Context, timerID string, limit int) ([]events.TimerEvent, error)
}
