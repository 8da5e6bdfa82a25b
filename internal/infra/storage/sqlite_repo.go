package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/superwave/timer/server/internal/events"
)

const selectEvents = `SELECT id, timer_id, timestamp_ns, event_type, actor_id, elapsed_ms, duration_ms, running FROM timer_events`

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event events.TimerEvent) error {
	query := `
		INSERT INTO timer_events (id, timer_id, timestamp_ns, event_type, actor_id, elapsed_ms, duration_ms, running)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.TimerID, event.Timestamp.UnixNano(), string(event.Type), event.ActorID,
		event.ElapsedMs, event.DurationMs, event.Running,
	)
	if err != nil {
		return errors.Wrap(err, "failed to append event")
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]events.TimerEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query events")
	}
	defer rows.Close()

	list := make([]events.TimerEvent, 0)
	for rows.Next() {
		var (
			e         events.TimerEvent
			ts        int64
			eventType string
		)
		err := rows.Scan(
			&e.ID, &e.TimerID, &ts, &eventType, &e.ActorID,
			&e.ElapsedMs, &e.DurationMs, &e.Running,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan event")
		}
		e.Timestamp = time.Unix(0, ts)
		e.Type = events.EventType(eventType)
		list = append(list, e)
	}
	return list, rows.Err()
}

func (r *SQLiteEventRepository) GetByTimerID(ctx context.Context, timerID string) ([]events.TimerEvent, error) {
	query := selectEvents + ` WHERE timer_id = ? ORDER BY timestamp_ns ASC, seq ASC`
	return r.getMany(ctx, query, timerID)
}

func (r *SQLiteEventRepository) GetByType(ctx context.Context, timerID string, eventType events.EventType) ([]events.TimerEvent, error) {
	query := selectEvents + ` WHERE timer_id = ? AND event_type = ? ORDER BY timestamp_ns ASC, seq ASC`
	return r.getMany(ctx, query, timerID, string(eventType))
}

func (r *SQLiteEventRepository) Recent(ctx context.Context, timerID string, limit int) ([]events.TimerEvent, error) {
	if limit <= 0 {
		return []events.TimerEvent{}, nil
	}

	query := selectEvents + ` WHERE timer_id = ? ORDER BY timestamp_ns DESC, seq DESC LIMIT ?`
	return r.getMany(ctx, query, timerID, limit)
}
