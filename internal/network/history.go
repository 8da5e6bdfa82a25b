package network

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/superwave/timer/server/internal/events"
	"github.com/superwave/timer/server/internal/infra/storage"
	"github.com/superwave/timer/server/internal/platform/logger"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// HistoryHandler serves the journal of timer commands and transitions.
type HistoryHandler struct {
	timerID string
	repo    storage.EventRepository
	journal *events.Journal
	logger  *logger.Logger
}

// NewHistoryHandler creates a history handler. Without a repository the
// in-memory journal of this process is served.
func NewHistoryHandler(timerID string, repo storage.EventRepository, journal *events.Journal, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		timerID: timerID,
		repo:    repo,
		journal: journal,
		logger:  log.With("history"),
	}
}

// HistoryEntry is one journal record as presented to readers.
type HistoryEntry struct {
	ID         string `json:"id"`
	Timestamp  string `json:"timestamp"`
	Ago        string `json:"ago"`
	Type       string `json:"type"`
	Actor      string `json:"actor,omitempty"`
	ElapsedMs  int64  `json:"elapsed_ms"`
	DurationMs int64  `json:"duration_ms"`
	Running    bool   `json:"running"`
	Summary    string `json:"summary"`
}

// HistoryResponse is the API response for history.
type HistoryResponse struct {
	TimerID     string         `json:"timer_id"`
	TotalEvents int            `json:"total_events"`
	FilteredBy  string         `json:"filtered_by,omitempty"`
	GeneratedAt string         `json:"generated_at"`
	Events      []HistoryEntry `json:"events"`
}

// HandleHistory returns recent events, newest first.
// GET /api/history?limit=N&type=START
func (hh *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		hh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			hh.jsonError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}
	eventType := events.EventType(r.URL.Query().Get("type"))

	list, err := hh.load(r, eventType, limit)
	if err != nil {
		hh.logger.Err(err, "failed to load history")
		hh.jsonError(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	entries := make([]HistoryEntry, 0, len(list))
	for _, e := range list {
		entries = append(entries, convertToHistoryEntry(e, now))
	}

	resp := HistoryResponse{
		TimerID:     hh.timerID,
		TotalEvents: len(entries),
		GeneratedAt: now.Format(time.RFC3339),
		Events:      entries,
	}
	if eventType != "" {
		resp.FilteredBy = string(eventType)
	}

	writeJSON(w, http.StatusOK, resp)
}

// load returns up to limit events, newest first.
func (hh *HistoryHandler) load(r *http.Request, eventType events.EventType, limit int) ([]events.TimerEvent, error) {
	if hh.repo != nil {
		if eventType != "" {
			list, err := hh.repo.GetByType(r.Context(), hh.timerID, eventType)
			if err != nil {
				return nil, err
			}
			return newestFirst(list, limit), nil
		}
		return hh.repo.Recent(r.Context(), hh.timerID, limit)
	}

	var list []events.TimerEvent
	if eventType != "" {
		list = hh.journal.ByType(eventType)
	} else {
		list = hh.journal.Replay()
	}

	return newestFirst(list, limit), nil
}

// HandleStats returns counts per event type of the in-memory journal.
// GET /api/history/stats
func (hh *HistoryHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		hh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]int{
		"total_events": 0,
	}
	for _, e := range hh.journal.Replay() {
		stats["total_events"]++
		stats[string(e.Type)]++
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"stats":        stats,
	})
}

// RegisterRoutes sets up the history API routes.
func (hh *HistoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/history", hh.HandleHistory)
	mux.HandleFunc("/api/history/stats", hh.HandleStats)
}

func newestFirst(list []events.TimerEvent, limit int) []events.TimerEvent {
	out := make([]events.TimerEvent, 0, limit)
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i])
	}
	return out
}

func convertToHistoryEntry(e events.TimerEvent, now time.Time) HistoryEntry {
	return HistoryEntry{
		ID:         e.ID,
		Timestamp:  e.Timestamp.Format(time.RFC3339),
		Ago:        humanize.RelTime(e.Timestamp, now, "ago", "from now"),
		Type:       string(e.Type),
		Actor:      e.ActorID,
		ElapsedMs:  e.ElapsedMs,
		DurationMs: e.DurationMs,
		Running:    e.Running,
		Summary:    summarizeEvent(e),
	}
}

// summarizeEvent creates a human-readable summary.
func summarizeEvent(e events.TimerEvent) string {
	duration := time.Duration(e.DurationMs) * time.Millisecond
	elapsed := time.Duration(e.ElapsedMs) * time.Millisecond

	switch e.Type {
	case events.EventTypeStart:
		return "Countdown of " + duration.String() + " started."
	case events.EventTypeStop:
		return "Countdown paused at " + elapsed.String() + "."
	case events.EventTypeClear:
		return "Countdown cleared."
	case events.EventTypeExtend:
		return "Duration extended to " + duration.String() + "."
	case events.EventTypeSetDuration:
		return "Duration set to " + duration.String() + "."
	case events.EventTypeRunningChanged:
		if e.Running {
			return "Countdown running."
		}
		return "Countdown idle."
	case events.EventTypeCompleted:
		return "Countdown of " + duration.String() + " completed."
	default:
		return "Timer event."
	}
}

// jsonError sends an error response.
func (hh *HistoryHandler) jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
