package core

import (
	"context"
	"time"
)

// Scheduler selects mailboxes whose head-of-line payload is due, pushes each
// prefetched batch forward and dispatches one drain per mailbox.
type Scheduler struct {
	store      PayloadStore
	dispatcher DrainDispatcher
	batchSize  int
	drainLimit int
	offset     time.Duration
	telemetry  telemetry
}

func NewScheduler(
	store PayloadStore,
	dispatcher DrainDispatcher,
	cfg Config,
	logger Logger,
	metrics MetricsRecorder,
) (*Scheduler, error) {
	if store == nil {
		return nil, notConfigured("payload store is required")
	}
	if dispatcher == nil {
		return nil, notConfigured("drain dispatcher is required")
	}
	defaults := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.MaxMailboxDrain <= 0 {
		cfg.MaxMailboxDrain = defaults.MaxMailboxDrain
	}
	if cfg.BatchScheduleOffset <= 0 {
		cfg.BatchScheduleOffset = defaults.BatchScheduleOffset
	}
	return &Scheduler{
		store:      store,
		dispatcher: dispatcher,
		batchSize:  cfg.BatchSize,
		drainLimit: cfg.MaxMailboxDrain,
		offset:     cfg.BatchScheduleOffset,
		telemetry:  newTelemetry(logger, metrics),
	}, nil
}

// Tick runs one scheduling pass. Store and dispatch errors are returned
// without retry; the next tick starts over.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) (TickStats, error) {
	stats := TickStats{}
	if s == nil || s.store == nil || s.dispatcher == nil {
		return stats, notConfigured("scheduler")
	}
	now = now.UTC()

	heads, err := s.store.DueMailboxes(ctx, now, s.batchSize)
	if err != nil {
		return stats, err
	}
	if len(heads) > s.batchSize {
		heads = heads[:s.batchSize]
	}
	stats.DueMailboxes = len(heads)
	s.telemetry.distribution(ctx, metricScheduleMailboxCount, float64(len(heads)), nil)

	scheduleFor := now.Add(s.offset)
	for _, head := range heads {
		batch, err := s.store.RangeQuery(ctx, head.MailboxName, head.HeadID, s.drainLimit)
		if err != nil {
			return stats, err
		}
		ids := make([]int64, 0, len(batch))
		for _, payload := range batch {
			ids = append(ids, payload.ID)
		}
		if len(ids) > 0 {
			updated, err := s.store.Reschedule(ctx, ids, scheduleFor)
			if err != nil {
				return stats, err
			}
			stats.Rescheduled += updated
		}

		if err := s.dispatcher.DispatchDrain(ctx, head.HeadID); err != nil {
			return stats, err
		}
		stats.Dispatched++
	}

	s.telemetry.distribution(ctx, metricScheduleRescheduled, float64(stats.Rescheduled), nil)
	s.telemetry.info(ctx, "mailbox.schedule.tick", map[string]any{
		"due_mailboxes": stats.DueMailboxes,
		"rescheduled":   stats.Rescheduled,
		"dispatched":    stats.Dispatched,
	})
	return stats, nil
}
