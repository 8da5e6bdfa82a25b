package network

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/superwave/timer/server/internal/clock"
	"github.com/superwave/timer/server/internal/panel"
	"github.com/superwave/timer/server/internal/platform/logger"
)

const actorHeader = "X-Actor"

// API exposes the panel controls over REST.
type API struct {
	handler CommandHandler
	logger  *logger.Logger
}

func NewAPI(handler CommandHandler, log *logger.Logger) *API {
	return &API{
		handler: handler,
		logger:  log.With("api"),
	}
}

// KeypadRequest is the body of POST /api/timer/keypad.
type KeypadRequest struct {
	Digits string `json:"digits"`
}

// HandleState returns the current panel state.
// GET /api/timer
func (a *API) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state, err := a.handler.State(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}

	a.jsonSuccess(w, state)
}

func (a *API) command(t CommandType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		a.execute(w, r, Command{Type: t})
	}
}

// HandleKeypad sets the duration from a four digit entry.
// POST /api/timer/keypad
func (a *API) HandleKeypad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req KeypadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	a.execute(w, r, Command{Type: CmdKeypad, Digits: req.Digits})
}

func (a *API) execute(w http.ResponseWriter, r *http.Request, cmd Command) {
	cmd.Actor = r.Header.Get(actorHeader)
	if cmd.Actor == "" {
		cmd.Actor = "rest:" + r.RemoteAddr
	}

	state, err := a.handler.Execute(r.Context(), cmd)
	if err != nil {
		a.fail(w, err)
		return
	}

	a.logger.Event(string(cmd.Type), cmd.Actor, "rest command")
	a.jsonSuccess(w, state)
}

// RegisterRoutes sets up the timer API routes.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/timer", a.HandleState)
	mux.HandleFunc("/api/timer/start", a.command(CmdStart))
	mux.HandleFunc("/api/timer/stop", a.command(CmdStopOrReset))
	mux.HandleFunc("/api/timer/clear", a.command(CmdClear))
	mux.HandleFunc("/api/timer/extend", a.command(CmdAddThirty))
	mux.HandleFunc("/api/timer/keypad", a.HandleKeypad)
}

// fail maps command errors to HTTP statuses.
func (a *API) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, panel.ErrInvalidDigits), errors.Is(err, ErrUnknownCommand):
		status = http.StatusBadRequest
	case errors.Is(err, panel.ErrDurationCeiling), errors.Is(err, panel.ErrInputDisabled):
		status = http.StatusConflict
	case errors.Is(err, clock.ErrLoopStopped):
		status = http.StatusServiceUnavailable
	default:
		a.logger.Err(err, "command failed")
	}

	a.jsonError(w, err.Error(), status)
}

// jsonError sends an error response.
func (a *API) jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func (a *API) jsonSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, data)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
