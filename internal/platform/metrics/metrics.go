// Package metrics provides observability for the timer server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers runtime counters. A nil *Collector ignores all records.
type Collector struct {
	// Engine metrics
	TickCount     int64
	RunsStarted   int64
	RunsCompleted int64
	RunsStopped   int64
	Clears        int64
	Extensions    int64
	LastTickTime  time.Time

	// Journal metrics
	EventsWritten    int64
	EventWriteLatSum int64 // nanoseconds
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64
	CommandsRejected    int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// NewCollector creates a collector with the uptime clock started.
func NewCollector() *Collector {
	return &Collector{StartTime: time.Now()}
}

// RecordTick records one engine tick.
func (c *Collector) RecordTick() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.TickCount, 1)

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordRunStarted records a countdown that began scheduling.
func (c *Collector) RecordRunStarted() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.RunsStarted, 1)
}

// RecordRunCompleted records a countdown that reached its duration.
func (c *Collector) RecordRunCompleted() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.RunsCompleted, 1)
}

// RecordRunStopped records a countdown paused by Stop.
func (c *Collector) RecordRunStopped() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.RunsStopped, 1)
}

// RecordClear records a Clear call.
func (c *Collector) RecordClear() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.Clears, 1)
}

// RecordExtension records an accepted duration extension.
func (c *Collector) RecordExtension() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.Extensions, 1)
}

// RecordEventWrite records a journal write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.EventWriteLatMax) {
		atomic.StoreInt64(&c.EventWriteLatMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if c == nil {
		return
	}
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordCommandRejected records a client command dropped by validation or rate limiting.
func (c *Collector) RecordCommandRejected() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.CommandsRejected, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	lastTick := c.LastTickTime
	c.mu.RUnlock()

	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	var eventAvg float64
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6 // ms
	}

	last := ""
	if !lastTick.IsZero() {
		last = lastTick.Format(time.RFC3339)
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"engine": map[string]interface{}{
			"ticks":          atomic.LoadInt64(&c.TickCount),
			"runs_started":   atomic.LoadInt64(&c.RunsStarted),
			"runs_completed": atomic.LoadInt64(&c.RunsCompleted),
			"runs_stopped":   atomic.LoadInt64(&c.RunsStopped),
			"clears":         atomic.LoadInt64(&c.Clears),
			"extensions":     atomic.LoadInt64(&c.Extensions),
			"last_tick":      last,
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
			"commands_rejected":  atomic.LoadInt64(&c.CommandsRejected),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		_ = json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus text format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		counter := func(name, help string, v int64) {
			fmt.Fprintf(w, "# HELP %s %s\n", name, help)
			fmt.Fprintf(w, "# TYPE %s counter\n", name)
			fmt.Fprintf(w, "%s %d\n\n", name, v)
		}

		counter("superwave_ticks_total", "Total engine ticks", atomic.LoadInt64(&c.TickCount))
		counter("superwave_runs_started_total", "Countdowns started", atomic.LoadInt64(&c.RunsStarted))
		counter("superwave_runs_completed_total", "Countdowns completed", atomic.LoadInt64(&c.RunsCompleted))
		counter("superwave_runs_stopped_total", "Countdowns paused", atomic.LoadInt64(&c.RunsStopped))
		counter("superwave_events_written_total", "Journal events written", atomic.LoadInt64(&c.EventsWritten))
		counter("superwave_event_write_errors_total", "Journal write errors", atomic.LoadInt64(&c.EventWriteErrors))

		fmt.Fprintf(w, "# HELP superwave_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE superwave_ws_connections gauge\n")
		fmt.Fprintf(w, "superwave_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP superwave_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE superwave_ws_messages_total counter\n")
		fmt.Fprintf(w, "superwave_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "superwave_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
