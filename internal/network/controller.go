package network

import (
	"context"

	"github.com/pkg/errors"

	"github.com/superwave/timer/server/internal/clock"
	"github.com/superwave/timer/server/internal/panel"
)

// CommandType names a panel control.
type CommandType string

const (
	CmdKeypad      CommandType = "KEYPAD"
	CmdClock       CommandType = "CLOCK"
	CmdStart       CommandType = "START"
	CmdStopOrReset CommandType = "STOP_OR_RESET"
	CmdAddThirty   CommandType = "ADD_30"
	CmdClear       CommandType = "CLEAR"
)

// ErrUnknownCommand is returned for a command type no control handles.
var ErrUnknownCommand = errors.New("unknown command")

// Command represents an incoming control from a browser or the REST API.
// A KEYPAD command carries either one pressed Digit or a full four digit
// entry in Digits.
type Command struct {
	Type   CommandType `json:"type"`
	Digit  string      `json:"digit,omitempty"`
	Digits string      `json:"digits,omitempty"`
	Actor  string      `json:"actor,omitempty"`
}

// CommandHandler executes commands and reports the resulting state.
type CommandHandler interface {
	Execute(ctx context.Context, cmd Command) (panel.State, error)
	State(ctx context.Context) (panel.State, error)
}

// Controller runs commands against a panel on the clock loop goroutine.
type Controller struct {
	loop  *clock.Loop
	panel *panel.Panel
}

func NewController(loop *clock.Loop, p *panel.Panel) *Controller {
	return &Controller{loop: loop, panel: p}
}

// Execute runs cmd on the loop and waits for it. The returned state is taken
// right after the command, also when the command failed.
func (c *Controller) Execute(ctx context.Context, cmd Command) (panel.State, error) {
	var (
		state  panel.State
		cmdErr error
	)

	err := c.loop.Do(ctx, func() {
		cmdErr = c.apply(cmd)
		state = c.panel.State()
	})
	if err != nil {
		return panel.State{}, err
	}

	return state, cmdErr
}

// State returns the panel snapshot taken on the loop.
func (c *Controller) State(ctx context.Context) (panel.State, error) {
	var state panel.State

	err := c.loop.Do(ctx, func() {
		state = c.panel.State()
	})

	return state, err
}

func (c *Controller) apply(cmd Command) error {
	switch cmd.Type {
	case CmdKeypad:
		if cmd.Digit != "" {
			return c.panel.PressKey(cmd.Actor, cmd.Digit)
		}
		return c.panel.KeypadInput(cmd.Actor, cmd.Digits)
	case CmdClock:
		return c.panel.ClockInput(cmd.Actor, cmd.Digits)
	case CmdStart:
		c.panel.Start(cmd.Actor)
	case CmdStopOrReset:
		c.panel.StopOrReset(cmd.Actor)
	case CmdAddThirty:
		return c.panel.AddThirty(cmd.Actor)
	case CmdClear:
		c.panel.Clear(cmd.Actor)
	default:
		return errors.Wrapf(ErrUnknownCommand, "%q", cmd.Type)
	}

	return nil
}
