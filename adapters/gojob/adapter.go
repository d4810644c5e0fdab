package gojob

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/goliatone/go-mailbox/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

// ToExecutionMessage converts a mailbox job into a go-job message.
func ToExecutionMessage(msg *core.JobExecutionMessage) *job.ExecutionMessage {
	if msg == nil {
		return nil
	}
	return &job.ExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		ScriptPath:     strings.TrimSpace(msg.ScriptPath),
		Parameters:     cloneParams(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    job.DeduplicationPolicy(strings.TrimSpace(msg.DedupPolicy)),
	}
}

// FromExecutionMessage converts a go-job message into a mailbox job.
func FromExecutionMessage(msg *job.ExecutionMessage) *core.JobExecutionMessage {
	if msg == nil {
		return nil
	}
	return &core.JobExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		ScriptPath:     strings.TrimSpace(msg.ScriptPath),
		Parameters:     cloneParams(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    strings.TrimSpace(string(msg.DedupPolicy)),
	}
}

// ToNackOptions picks one go-job disposition. A dead letter wins over a
// requeue, and a nack asking for neither is a terminal failure.
func ToNackOptions(opts core.JobNackOptions) queue.NackOptions {
	out := queue.NackOptions{
		Disposition: queue.NackDispositionFailed,
		Reason:      strings.TrimSpace(opts.Reason),
	}
	switch {
	case opts.DeadLetter:
		out.Disposition = queue.NackDispositionDeadLetter
	case opts.Requeue:
		out.Disposition = queue.NackDispositionRetry
		out.Delay = max(opts.Delay, 0)
	}
	return out
}

type EnqueuerAdapter struct {
	enqueuer queue.Enqueuer
}

func NewEnqueuerAdapter(enqueuer queue.Enqueuer) *EnqueuerAdapter {
	return &EnqueuerAdapter{enqueuer: enqueuer}
}

func (a *EnqueuerAdapter) Enqueue(ctx context.Context, msg *core.JobExecutionMessage) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if msg == nil {
		return fmt.Errorf("gojob: execution message is required")
	}
	_, err := a.enqueuer.Enqueue(ctx, ToExecutionMessage(msg))
	return err
}

// DequeuerAdapter hands out go-job deliveries as mailbox job deliveries.
type DequeuerAdapter struct {
	dequeuer queue.Dequeuer
}

func NewDequeuerAdapter(dequeuer queue.Dequeuer) *DequeuerAdapter {
	return &DequeuerAdapter{dequeuer: dequeuer}
}

func (a *DequeuerAdapter) Dequeue(ctx context.Context) (core.JobDelivery, error) {
	if a == nil || a.dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := a.dequeuer.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	if delivery == nil {
		return nil, nil
	}
	return jobDelivery{delivery: delivery}, nil
}

type jobDelivery struct {
	delivery queue.Delivery
}

func (d jobDelivery) Message() *core.JobExecutionMessage {
	return FromExecutionMessage(d.delivery.Message())
}

func (d jobDelivery) Ack(ctx context.Context) error {
	return d.delivery.Ack(ctx)
}

func (d jobDelivery) Nack(ctx context.Context, opts core.JobNackOptions) error {
	return d.delivery.Nack(ctx, ToNackOptions(opts))
}

// Attempts reports the lease count kept by the go-job redis and postgres
// adapters, or 0 when the queue does not count leases.
func (d jobDelivery) Attempts() int {
	if counter, ok := d.delivery.(attemptCounter); ok {
		return counter.Attempts()
	}
	return 0
}

// RecordAttempt stamps the next attempt on the queued go-job message so a
// queue without lease counts hands it back on redelivery.
func (d jobDelivery) RecordAttempt(attempt int) {
	msg := d.delivery.Message()
	if msg == nil {
		return
	}
	if msg.Parameters == nil {
		msg.Parameters = map[string]any{}
	}
	msg.Parameters[ParamAttempt] = attempt
}

// WorkerHookAdapter lets a mailbox hook observe a go-job worker pool.
type WorkerHookAdapter struct {
	hook core.JobWorkerHook
}

func NewWorkerHookAdapter(hook core.JobWorkerHook) *WorkerHookAdapter {
	return &WorkerHookAdapter{hook: hook}
}

func (a *WorkerHookAdapter) OnStart(ctx context.Context, event worker.Event) {
	a.forward(ctx, event, core.JobWorkerHook.OnStart)
}

func (a *WorkerHookAdapter) OnSuccess(ctx context.Context, event worker.Event) {
	a.forward(ctx, event, core.JobWorkerHook.OnSuccess)
}

func (a *WorkerHookAdapter) OnFailure(ctx context.Context, event worker.Event) {
	a.forward(ctx, event, core.JobWorkerHook.OnFailure)
}

func (a *WorkerHookAdapter) OnRetry(ctx context.Context, event worker.Event) {
	a.forward(ctx, event, core.JobWorkerHook.OnRetry)
}

func (a *WorkerHookAdapter) forward(
	ctx context.Context,
	event worker.Event,
	call func(core.JobWorkerHook, context.Context, core.JobWorkerEvent),
) {
	if a == nil || a.hook == nil {
		return
	}
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	call(a.hook, ctx, core.JobWorkerEvent{
		Message:   FromExecutionMessage(message),
		Attempt:   event.Attempt,
		Delay:     event.Delay,
		Err:       event.Err,
		StartedAt: event.StartedAt,
		Duration:  event.Duration,
	})
}

func cloneParams(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	maps.Copy(out, in)
	return out
}

var (
	_ core.JobEnqueuer = (*EnqueuerAdapter)(nil)
	_ core.JobDelivery = jobDelivery{}
	_ attemptCounter   = jobDelivery{}
	_ attemptRecorder  = jobDelivery{}
	_ core.JobDequeuer = (*DequeuerAdapter)(nil)
	_ worker.Hook      = (*WorkerHookAdapter)(nil)
)
