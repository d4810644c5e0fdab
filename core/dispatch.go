package core

import (
	"context"
	"sync"
)

// InlineDispatcher runs every dispatched drain on its own goroutine in the
// current process. Drains are detached from the caller's cancellation and run
// to completion.
type InlineDispatcher struct {
	runner    DrainRunner
	telemetry telemetry
	wg        sync.WaitGroup
}

func NewInlineDispatcher(runner DrainRunner, logger Logger) *InlineDispatcher {
	return &InlineDispatcher{
		runner:    runner,
		telemetry: newTelemetry(logger, nil),
	}
}

func (d *InlineDispatcher) DispatchDrain(ctx context.Context, payloadID int64) error {
	if d == nil || d.runner == nil {
		return notConfigured("inline dispatcher requires a drain runner")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		stats, err := d.runner.Drain(detached, payloadID)
		if err != nil {
			d.telemetry.error(detached, "mailbox.drain.failed", map[string]any{
				"payload_id":   payloadID,
				"mailbox_name": stats.Mailbox,
				"error":        err.Error(),
			})
		}
	}()
	return nil
}

// Wait blocks until every dispatched drain has returned.
func (d *InlineDispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

// SyncDispatcher runs drains on the calling goroutine. Useful for
// deterministic tests and single-shot tooling.
type SyncDispatcher struct {
	Runner DrainRunner
}

func (d SyncDispatcher) DispatchDrain(ctx context.Context, payloadID int64) error {
	if d.Runner == nil {
		return notConfigured("sync dispatcher requires a drain runner")
	}
	_, err := d.Runner.Drain(ctx, payloadID)
	return err
}

var (
	_ DrainDispatcher = (*InlineDispatcher)(nil)
	_ DrainDispatcher = SyncDispatcher{}
)
