package panel

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"

	"github.com/superwave/timer/server/internal/clock"
	"github.com/superwave/timer/server/internal/countdown"
	"github.com/superwave/timer/server/internal/events"
	"github.com/superwave/timer/server/internal/platform/logger"
)

type testPanel struct {
	suite.Suite
	fake    *clock.Fake
	engine  *countdown.Engine
	journal *events.Journal
	panel   *Panel
	states  []State
}

func (t *testPanel) SetupTest() {
	t.fake = clock.NewFake()
	t.engine = countdown.New(t.fake)
	t.journal = events.NewJournal(nil)
	t.panel = New(t.engine, t.journal, logger.Nop(), "timer-1")

	t.states = nil
	t.panel.OnState().Subscribe(func(s State) {
		t.states = append(t.states, s)
	})
}

func (t *testPanel) TearDownTest() {
	t.panel.Close()
}

func (t *testPanel) last() State {
	t.Require().NotEmpty(t.states)
	return t.states[len(t.states)-1]
}

func (t *testPanel) TestInitialState() {
	s := t.panel.State()

	t.Equal("0000", s.Digits)
	t.Equal(LabelStop, s.StopLabel)
	t.False(s.Running)
	t.False(s.InputDisabled)
	t.Equal("timer-1", t.panel.TimerID())
}

func (t *testPanel) TestClockInputAndRun() {
	t.NoError(t.panel.ClockInput("alice", "0003"))

	s := t.last()
	t.Equal("0003", s.Digits)
	t.Equal(int64(3000), s.DurationMs)
	t.True(s.KeypadDirty)
	t.Equal(LabelReset, s.StopLabel)

	t.panel.Start("alice")
	t.True(t.last().Running)
	t.True(t.last().InputDisabled)
	t.Equal(LabelStop, t.last().StopLabel)

	t.fake.Advance(time.Second)
	t.Equal("0002", t.last().Digits)
	t.Equal(int64(2000), t.last().RemainingMs)

	t.fake.Advance(2 * time.Second)
	s = t.last()
	t.False(s.Running)
	t.Equal("0000", s.Digits)
	t.Equal(LabelReset, s.StopLabel)

	t.Len(t.journal.ByType(events.EventTypeCompleted), 1)
}

func (t *testPanel) TestStartWithoutDurationDoesNothing() {
	t.panel.Start("alice")

	t.Empty(t.states)
	t.Equal(0, t.journal.Len())
	t.False(t.engine.Running())
}

func (t *testPanel) TestInputRejected() {
	t.True(errors.Is(t.panel.ClockInput("a", "12"), ErrInvalidDigits))
	t.True(errors.Is(t.panel.PressKey("a", "x"), ErrInvalidDigits))

	t.NoError(t.panel.ClockInput("a", "0010"))
	t.panel.Start("a")

	t.True(errors.Is(t.panel.ClockInput("a", "0020"), ErrInputDisabled))
	t.True(errors.Is(t.panel.KeypadInput("a", "0020"), ErrInputDisabled))
	t.True(errors.Is(t.panel.PressKey("a", "1"), ErrInputDisabled))
	t.Equal(int64(10000), t.panel.State().DurationMs)
}

func (t *testPanel) TestPressKeyBuildsEntry() {
	for _, k := range []string{"1", "2"} {
		t.NoError(t.panel.PressKey("a", k))
	}
	t.Equal("0012", t.last().Digits)
	t.False(t.last().KeypadDirty)

	for _, k := range []string{"3", "4"} {
		t.NoError(t.panel.PressKey("a", k))
	}
	t.Equal("1234", t.last().Digits)

	t.NoError(t.panel.PressKey("a", "5"))
	t.Equal("0005", t.last().Digits)
}

func (t *testPanel) TestDirtyKeypadRestartsEntry() {
	t.NoError(t.panel.PressKey("a", "1"))
	t.NoError(t.panel.ClockInput("a", "0200"))
	t.True(t.last().KeypadDirty)

	t.NoError(t.panel.PressKey("a", "9"))
	t.Equal("0009", t.last().Digits)
}

func (t *testPanel) TestStopThenReset() {
	t.NoError(t.panel.KeypadInput("a", "0010"))
	t.panel.Start("a")
	t.fake.Advance(3 * time.Second)

	t.panel.StopOrReset("a")
	s := t.last()
	t.False(s.Running)
	t.True(s.Paused)
	t.Equal(int64(3000), s.ElapsedMs)
	t.Equal("0007", s.Digits)
	t.Equal(LabelReset, s.StopLabel)

	t.panel.Start("a")
	t.fake.Advance(time.Second)
	t.Equal(int64(4000), t.last().ElapsedMs)

	t.panel.StopOrReset("a")
	t.panel.StopOrReset("a")
	s = t.last()
	t.Equal(int64(0), s.DurationMs)
	t.Equal(int64(0), s.ElapsedMs)
	t.Equal("0000", s.Digits)
	t.Equal(LabelStop, s.StopLabel)
	t.False(s.Paused)

	t.Len(t.journal.ByType(events.EventTypeStop), 2)
	t.Len(t.journal.ByType(events.EventTypeClear), 1)
}

func (t *testPanel) TestAddThirtyWhileRunning() {
	t.NoError(t.panel.ClockInput("a", "0010"))
	t.panel.Start("a")
	t.fake.Advance(5 * time.Second)

	t.NoError(t.panel.AddThirty("a"))
	t.Equal(int64(40000), t.last().DurationMs)
	t.Equal("0035", t.last().Digits)

	t.fake.Advance(35 * time.Second)
	t.False(t.engine.Running())
	t.Equal(40*time.Second, t.engine.Elapsed())
}

func (t *testPanel) TestAddThirtyFromZero() {
	t.NoError(t.panel.AddThirty("a"))
	t.Equal("0030", t.last().Digits)

	t.panel.Start("a")
	t.fake.Advance(30 * time.Second)
	t.Equal(30*time.Second, t.engine.Elapsed())
}

func (t *testPanel) TestAddThirtyCeiling() {
	t.NoError(t.panel.ClockInput("a", "9945"))

	err := t.panel.AddThirty("a")
	t.True(errors.Is(err, ErrDurationCeiling))
	t.Equal(int64((99*60+45)*1000), t.panel.State().DurationMs)

	t.NoError(t.panel.ClockInput("a", "9829"))
	t.NoError(t.panel.AddThirty("a"))
	t.Equal(int64((98*60+59)*1000), t.panel.State().DurationMs)
}

func (t *testPanel) TestOddEntryCountsDown() {
	t.NoError(t.panel.ClockInput("a", "0099"))
	t.Equal("0099", t.last().Digits)

	t.panel.Start("a")
	t.fake.Advance(time.Second)
	t.Equal("0098", t.last().Digits)

	t.fake.Advance(39 * time.Second)
	t.Equal("0059", t.last().Digits)
}

func (t *testPanel) TestJournalRecordsCommands() {
	t.NoError(t.panel.ClockInput("bob", "0001"))
	t.panel.Start("bob")
	t.fake.Advance(time.Second)

	types := make([]events.EventType, 0)
	for _, e := range t.journal.Replay() {
		types = append(types, e.Type)
		t.Equal("timer-1", e.TimerID)
	}

	t.Equal([]events.EventType{
		events.EventTypeSetDuration,
		events.EventTypeStart,
		events.EventTypeRunningChanged,
		events.EventTypeRunningChanged,
		events.EventTypeCompleted,
	}, types)
	t.Equal("bob", t.journal.Replay()[1].ActorID)
}

func (t *testPanel) TestCloseDetaches() {
	t.NoError(t.panel.ClockInput("a", "0005"))
	t.panel.Close()

	n := len(t.states)
	t.engine.Start(countdown.WithDuration(5 * time.Second))
	t.fake.Advance(time.Second)

	t.Len(t.states, n)
}

func TestPanel(t *testing.T) {
	suite.Run(t, new(testPanel))
}
