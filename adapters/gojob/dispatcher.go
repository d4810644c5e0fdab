package gojob

import (
	"context"
	"fmt"

	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-mailbox/core"
)

// JobDispatcher hands scheduler drains to a go-job queue. Workers pick them
// up and call back into the service through Worker.
type JobDispatcher struct {
	enqueuer core.JobEnqueuer
}

func NewJobDispatcher(enqueuer queue.Enqueuer) *JobDispatcher {
	return &JobDispatcher{enqueuer: NewEnqueuerAdapter(enqueuer)}
}

// NewJobDispatcherFromEnqueuer wraps an enqueuer already speaking the mailbox
// job contract.
func NewJobDispatcherFromEnqueuer(enqueuer core.JobEnqueuer) *JobDispatcher {
	return &JobDispatcher{enqueuer: enqueuer}
}

func (d *JobDispatcher) DispatchDrain(ctx context.Context, payloadID int64) error {
	if d == nil || d.enqueuer == nil {
		return fmt.Errorf("gojob: dispatcher is not configured")
	}
	if payloadID <= 0 {
		return fmt.Errorf("gojob: payload id must be positive")
	}
	return d.enqueuer.Enqueue(ctx, DrainMessage(payloadID))
}

// EnqueueTick queues a scheduler tick, for cron-style triggers that only
// have queue access.
func (d *JobDispatcher) EnqueueTick(ctx context.Context, msg *core.JobExecutionMessage) error {
	if d == nil || d.enqueuer == nil {
		return fmt.Errorf("gojob: dispatcher is not configured")
	}
	if msg == nil || msg.JobID != JobIDScheduleTick {
		return fmt.Errorf("gojob: schedule tick message is required")
	}
	return d.enqueuer.Enqueue(ctx, msg)
}

var _ core.DrainDispatcher = (*JobDispatcher)(nil)
