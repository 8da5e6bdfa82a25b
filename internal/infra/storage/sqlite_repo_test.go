package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/superwave/timer/server/internal/events"
	"github.com/superwave/timer/server/internal/platform/metrics"
)

type testSQLiteRepository struct {
	suite.Suite
	db   *sql.DB
	repo *SQLiteEventRepository
}

func (t *testSQLiteRepository) SetupTest() {
	db, err := InitSQLite(filepath.Join(t.T().TempDir(), "data", "timer.db"), 1)
	t.Require().NoError(err)

	t.db = db
	t.repo = NewSQLiteEventRepository(db)
}

func (t *testSQLiteRepository) TearDownTest() {
	t.NoError(t.db.Close())
}

func (t *testSQLiteRepository) event(timerID string, typ events.EventType, elapsedMs int64) events.TimerEvent {
	return events.TimerEvent{
		ID:         events.GenerateEventID(),
		Timestamp:  time.Unix(1700000000, int64(elapsedMs)),
		Type:       typ,
		TimerID:    timerID,
		ActorID:    "actor",
		ElapsedMs:  elapsedMs,
		DurationMs: 3000,
		Running:    typ == events.EventTypeStart,
	}
}

func (t *testSQLiteRepository) TestAppendAndGetByTimerID() {
	ctx := context.Background()

	first := t.event("a", events.EventTypeStart, 0)
	second := t.event("a", events.EventTypeStop, 1000)
	other := t.event("b", events.EventTypeStart, 0)

	for _, e := range []events.TimerEvent{first, second, other} {
		t.Require().NoError(t.repo.Append(ctx, e))
	}

	got, err := t.repo.GetByTimerID(ctx, "a")
	t.Require().NoError(err)
	t.Require().Len(got, 2)

	t.Equal(first.ID, got[0].ID)
	t.True(first.Timestamp.Equal(got[0].Timestamp))
	t.Equal(events.EventTypeStart, got[0].Type)
	t.True(got[0].Running)
	t.Equal(int64(3000), got[0].DurationMs)
	t.Equal(second.ID, got[1].ID)
	t.Equal(int64(1000), got[1].ElapsedMs)
}

func (t *testSQLiteRepository) TestDuplicateIDRejected() {
	ctx := context.Background()
	e := t.event("a", events.EventTypeStart, 0)

	t.NoError(t.repo.Append(ctx, e))
	t.Error(t.repo.Append(ctx, e))
}

func (t *testSQLiteRepository) TestGetByType() {
	ctx := context.Background()
	for _, typ := range []events.EventType{events.EventTypeStart, events.EventTypeCompleted, events.EventTypeStart} {
		t.Require().NoError(t.repo.Append(ctx, t.event("a", typ, 0)))
	}

	got, err := t.repo.GetByType(ctx, "a", events.EventTypeStart)
	t.NoError(err)
	t.Len(got, 2)

	got, err = t.repo.GetByType(ctx, "b", events.EventTypeStart)
	t.NoError(err)
	t.Empty(got)
}

func (t *testSQLiteRepository) TestRecent() {
	ctx := context.Background()
	for i := int64(0); i < 5; i++ {
		t.Require().NoError(t.repo.Append(ctx, t.event("a", events.EventTypeRunningChanged, i*1000)))
	}

	got, err := t.repo.Recent(ctx, "a", 2)
	t.NoError(err)
	t.Require().Len(got, 2)
	t.Equal(int64(4000), got[0].ElapsedMs)
	t.Equal(int64(3000), got[1].ElapsedMs)

	got, err = t.repo.Recent(ctx, "a", 0)
	t.NoError(err)
	t.Empty(got)
}

func (t *testSQLiteRepository) TestJournalPersister() {
	c := metrics.NewCollector()
	journal := events.NewJournal(NewJournalPersister(t.repo, c))

	journal.Append(events.TimerEvent{Type: events.EventTypeStart, TimerID: "a"})
	journal.Append(events.TimerEvent{Type: events.EventTypeStop, TimerID: "a"})
	journal.Flush()

	got, err := t.repo.GetByTimerID(context.Background(), "a")
	t.NoError(err)
	t.Len(got, 2)
	t.Equal(int64(2), c.EventsWritten)
	t.Equal(int64(0), c.EventWriteErrors)
}

func TestSQLiteRepository(t *testing.T) {
	suite.Run(t, new(testSQLiteRepository))
}
