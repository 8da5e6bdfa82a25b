package network

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/superwave/timer/server/internal/clock"
	"github.com/superwave/timer/server/internal/countdown"
	"github.com/superwave/timer/server/internal/events"
	"github.com/superwave/timer/server/internal/panel"
	"github.com/superwave/timer/server/internal/platform/logger"
	"github.com/superwave/timer/server/internal/platform/metrics"
)

// harness runs a panel on a live loop. The tick interval is long enough that
// no tick fires during a test.
type harness struct {
	suite.Suite
	ctx     context.Context
	cancel  context.CancelFunc
	loop    *clock.Loop
	journal *events.Journal
	panel   *panel.Panel
	ctrl    *Controller
	metrics *metrics.Collector
}

func (t *harness) SetupTest() {
	t.ctx, t.cancel = context.WithCancel(context.Background())

	t.loop = clock.NewLoop(16)
	go t.loop.Run(t.ctx)

	engine := countdown.New(t.loop, countdown.WithInterval(time.Hour))
	t.journal = events.NewJournal(nil)
	t.panel = panel.New(engine, t.journal, logger.Nop(), "timer-test")
	t.ctrl = NewController(t.loop, t.panel)
	t.metrics = metrics.NewCollector()
}

func (t *harness) TearDownTest() {
	t.cancel()
	<-t.loop.Done()
}

type testController struct {
	harness
}

func (t *testController) TestExecute() {
	state, err := t.ctrl.Execute(t.ctx, Command{Type: CmdClock, Digits: "0130", Actor: "a"})
	t.NoError(err)
	t.Equal("0130", state.Digits)

	state, err = t.ctrl.Execute(t.ctx, Command{Type: CmdStart})
	t.NoError(err)
	t.True(state.Running)

	state, err = t.ctrl.Execute(t.ctx, Command{Type: CmdStopOrReset})
	t.NoError(err)
	t.False(state.Running)
	t.True(state.Paused)

	state, err = t.ctrl.Execute(t.ctx, Command{Type: CmdAddThirty})
	t.NoError(err)
	t.Equal(int64(120000), state.DurationMs)

	state, err = t.ctrl.Execute(t.ctx, Command{Type: CmdClear})
	t.NoError(err)
	t.Equal(int64(0), state.DurationMs)
}

func (t *testController) TestKeypad() {
	for _, d := range []string{"4", "5"} {
		_, err := t.ctrl.Execute(t.ctx, Command{Type: CmdKeypad, Digit: d})
		t.NoError(err)
	}

	state, err := t.ctrl.State(t.ctx)
	t.NoError(err)
	t.Equal("0045", state.Digits)

	state, err = t.ctrl.Execute(t.ctx, Command{Type: CmdKeypad, Digits: "0200"})
	t.NoError(err)
	t.Equal("0200", state.Digits)
}

func (t *testController) TestErrors() {
	_, err := t.ctrl.Execute(t.ctx, Command{Type: "JUMP"})
	t.ErrorIs(err, ErrUnknownCommand)

	state, err := t.ctrl.Execute(t.ctx, Command{Type: CmdClock, Digits: "1"})
	t.ErrorIs(err, panel.ErrInvalidDigits)
	t.Equal("0000", state.Digits)

	t.cancel()
	<-t.loop.Done()

	_, err = t.ctrl.State(context.Background())
	t.ErrorIs(err, clock.ErrLoopStopped)
}

func TestController(t *testing.T) {
	suite.Run(t, new(testController))
}
