// Package panel owns the control panel state of the timer widget: the clock
// and keypad entry, the displayed digits, the stop/reset button and the +30
// seconds control. It drives an injected countdown engine.
//
// Like the engine, a Panel must only be used from the engine's goroutine.
package panel

import (
	"time"

	"github.com/pkg/errors"

	"github.com/superwave/timer/server/internal/countdown"
	"github.com/superwave/timer/server/internal/events"
	"github.com/superwave/timer/server/internal/platform/logger"
)

const (
	// ExtendStep is the amount added by the +30 control.
	ExtendStep = 30 * time.Second
	// ceilingMargin keeps +30 away from MaxDuration so odd entries such as
	// 99:59 still fit the display.
	ceilingMargin = 40 * time.Second

	keypadDigits = 4

	LabelStop  = "stop"
	LabelReset = "reset"
)

var (
	// ErrDurationCeiling is returned when +30 would leave the displayable range.
	ErrDurationCeiling = errors.New("duration would exceed the display ceiling")
	// ErrInputDisabled is returned for clock or keypad input while running.
	ErrInputDisabled = errors.New("input is disabled while the timer runs")
)

// State is a snapshot of everything a panel view renders.
type State struct {
	Digits        string `json:"digits"`
	DurationMs    int64  `json:"duration_ms"`
	ElapsedMs     int64  `json:"elapsed_ms"`
	RemainingMs   int64  `json:"remaining_ms"`
	Running       bool   `json:"running"`
	Paused        bool   `json:"paused"`
	StopLabel     string `json:"stop_label"`
	KeypadDirty   bool   `json:"keypad_dirty"`
	InputDisabled bool   `json:"input_disabled"`
}

// Panel translates user controls into engine operations.
type Panel struct {
	engine  *countdown.Engine
	journal *events.Journal
	logger  *logger.Logger
	timerID string

	duration     time.Duration
	inputSeconds int
	keypadDirty  bool
	keys         string

	state *events.Dispatcher[State]
	subs  []*events.Subscription
}

// New attaches a panel to engine. journal may be nil.
func New(engine *countdown.Engine, journal *events.Journal, log *logger.Logger, timerID string) *Panel {
	p := &Panel{
		engine:  engine,
		journal: journal,
		logger:  log.With("panel"),
		timerID: timerID,
		state:   events.NewDispatcher[State](),
	}

	p.subs = append(p.subs,
		engine.OnTick().Subscribe(func(time.Duration) {
			p.publish()
		}),
		engine.OnRunningChanged().Subscribe(func(running bool) {
			p.record(events.EventTypeRunningChanged, "")
			p.publish()
		}),
		engine.OnCompleted().Subscribe(func() {
			p.record(events.EventTypeCompleted, "")
			p.logger.Zerolog().Info().
				Str("timer", p.timerID).
				Dur("duration", p.duration).
				Msg("countdown completed")
		}),
	)

	return p
}

// Close detaches the panel from the engine.
func (p *Panel) Close() {
	for _, s := range p.subs {
		s.Unsubscribe()
	}
	p.subs = nil
}

// OnState publishes the panel state after every change.
func (p *Panel) OnState() events.Subscriber[State] {
	return p.state
}

// State returns the current snapshot.
func (p *Panel) State() State {
	running := p.engine.Running()
	elapsed := p.engine.Elapsed()

	remaining := p.duration - elapsed
	if remaining < 0 {
		remaining = 0
	}

	label := LabelStop
	if p.duration > 0 && !running {
		label = LabelReset
	}

	return State{
		Digits:        Display(p.duration, elapsed, p.inputSeconds),
		DurationMs:    p.duration.Milliseconds(),
		ElapsedMs:     elapsed.Milliseconds(),
		RemainingMs:   remaining.Milliseconds(),
		Running:       running,
		Paused:        p.engine.Paused(),
		StopLabel:     label,
		KeypadDirty:   p.keypadDirty,
		InputDisabled: running,
	}
}

// TimerID identifies the timer in journal records.
func (p *Panel) TimerID() string {
	return p.timerID
}

// ClockInput sets the duration from the MMSS clock fields.
func (p *Panel) ClockInput(actor, digits string) error {
	if err := p.setDigits(actor, digits); err != nil {
		return err
	}
	p.keypadDirty = true
	p.publish()

	return nil
}

// KeypadInput sets the duration from a complete four digit keypad entry.
func (p *Panel) KeypadInput(actor, digits string) error {
	if err := p.setDigits(actor, digits); err != nil {
		return err
	}
	p.keypadDirty = false
	p.publish()

	return nil
}

// PressKey appends one digit to the keypad entry. The entry restarts after
// four digits, or when another control has marked the keypad dirty, and is
// padded with leading zeros: pressing 1 then 2 enters 00:12.
func (p *Panel) PressKey(actor, digit string) error {
	if len(digit) != 1 || digit[0] < '0' || digit[0] > '9' {
		return errors.Wrapf(ErrInvalidDigits, "key %q", digit)
	}
	if p.engine.Running() {
		return ErrInputDisabled
	}

	if p.keypadDirty || len(p.keys) == keypadDigits {
		p.keys = ""
	}
	p.keys += digit

	padded := p.keys
	for len(padded) < keypadDigits {
		padded = "0" + padded
	}

	return p.KeypadInput(actor, padded)
}

func (p *Panel) setDigits(actor, digits string) error {
	if p.engine.Running() {
		return ErrInputDisabled
	}

	d, err := DigitsToDuration(digits)
	if err != nil {
		return err
	}

	_, seconds, _ := splitDigits(digits)

	p.engine.ResetElapsed()
	p.duration = d
	p.inputSeconds = seconds

	p.record(events.EventTypeSetDuration, actor)

	return nil
}

// Start runs the countdown for the entered duration. Nothing happens without
// a duration.
func (p *Panel) Start(actor string) {
	if p.duration <= 0 {
		return
	}

	p.record(events.EventTypeStart, actor)
	p.engine.Start(countdown.WithDuration(p.duration))
	p.keypadDirty = true
	p.publish()
}

// StopOrReset is the stop/reset button: it pauses a running countdown and
// clears an idle one.
func (p *Panel) StopOrReset(actor string) {
	switch {
	case p.duration > 0 && p.engine.Running():
		p.record(events.EventTypeStop, actor)
		p.engine.Stop()
	case p.duration > 0:
		p.clear(actor)
	}

	p.keypadDirty = true
	p.publish()
}

// Clear cancels the countdown and forgets the entered duration.
func (p *Panel) Clear(actor string) {
	p.clear(actor)
	p.keypadDirty = true
	p.publish()
}

func (p *Panel) clear(actor string) {
	p.record(events.EventTypeClear, actor)
	p.duration = 0
	p.inputSeconds = 0
	p.engine.Clear()
}

// AddThirty extends the duration by ExtendStep, including a running
// countdown. It returns ErrDurationCeiling near MaxDuration.
func (p *Panel) AddThirty(actor string) error {
	if p.duration+ExtendStep > MaxDuration-ceilingMargin {
		return errors.Wrapf(ErrDurationCeiling, "duration %s", p.duration)
	}

	p.inputSeconds = 0
	p.duration += ExtendStep
	p.keypadDirty = true
	p.engine.Extend(ExtendStep)

	p.record(events.EventTypeExtend, actor)
	p.publish()

	return nil
}

func (p *Panel) publish() {
	p.state.Dispatch(p.State())
}

func (p *Panel) record(t events.EventType, actor string) {
	p.logger.Event(string(t), actor, p.timerID)

	if p.journal == nil {
		return
	}

	p.journal.Append(events.TimerEvent{
		Type:       t,
		TimerID:    p.timerID,
		ActorID:    actor,
		ElapsedMs:  p.engine.Elapsed().Milliseconds(),
		DurationMs: p.duration.Milliseconds(),
		Running:    p.engine.Running(),
	})
}
