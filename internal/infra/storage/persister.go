package storage

import (
	"context"
	"time"

	"github.com/superwave/timer/server/internal/events"
	"github.com/superwave/timer/server/internal/platform/metrics"
)

const defaultWriteTimeout = 2 * time.Second

// JournalPersister adapts an EventRepository to events.EventPersister and
// records write latency.
type JournalPersister struct {
	repo    EventRepository
	metrics *metrics.Collector
	timeout time.Duration
}

func NewJournalPersister(repo EventRepository, m *metrics.Collector) *JournalPersister {
	return &JournalPersister{
		repo:    repo,
		metrics: m,
		timeout: defaultWriteTimeout,
	}
}

// Append implements events.EventPersister.
func (p *JournalPersister) Append(event events.TimerEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	start := time.Now()
	err := p.repo.Append(ctx, event)
	p.metrics.RecordEventWrite(time.Since(start), err)

	return err
}
