package gojob

import (
	"context"
	"errors"
	"fmt"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-mailbox/core"
)

const defaultPollInterval = time.Second

// MailboxRunner is the service surface a worker executes jobs against.
type MailboxRunner interface {
	ScheduleTick(ctx context.Context, now time.Time) (core.TickStats, error)
	Drain(ctx context.Context, payloadID int64) (core.DrainStats, error)
}

type Worker struct {
	dequeuer     core.JobDequeuer
	runner       MailboxRunner
	hook         core.JobWorkerHook
	logger       glog.Logger
	pollInterval time.Duration
	policy       RetryPolicy
	now          func() time.Time
}

type WorkerOption func(*Worker)

func WithWorkerHook(hook core.JobWorkerHook) WorkerOption {
	return func(w *Worker) {
		w.hook = hook
	}
}

func WithWorkerLogger(logger glog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithPollInterval(interval time.Duration) WorkerOption {
	return func(w *Worker) {
		w.pollInterval = interval
	}
}

func WithRetryPolicy(policy RetryPolicy) WorkerOption {
	return func(w *Worker) {
		w.policy = policy
	}
}

func WithWorkerClock(now func() time.Time) WorkerOption {
	return func(w *Worker) {
		w.now = now
	}
}

func NewWorker(dequeuer core.JobDequeuer, runner MailboxRunner, opts ...WorkerOption) (*Worker, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("gojob: mailbox runner is required")
	}
	w := &Worker{
		dequeuer:     dequeuer,
		runner:       runner,
		pollInterval: defaultPollInterval,
		policy:       DefaultRetryPolicy(),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	w.logger = glog.Ensure(w.logger)
	if w.pollInterval <= 0 {
		w.pollInterval = defaultPollInterval
	}
	return w, nil
}

// Run processes jobs until ctx is done. Dequeue failures back off for one
// poll interval.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := w.ProcessNext(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Warn("mailbox.worker.dequeue_failed", "error", err)
			timer := time.NewTimer(w.pollInterval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
	}
}

// ProcessNext handles one delivery. Job failures are settled with a nack and
// do not surface as errors; only dequeue and settlement failures do.
func (w *Worker) ProcessNext(ctx context.Context) error {
	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	if delivery == nil {
		return nil
	}
	msg := delivery.Message()
	attempt, counted := deliveryAttempt(delivery, msg)
	event := core.JobWorkerEvent{Message: msg, Attempt: attempt, StartedAt: w.now()}
	w.onStart(ctx, event)

	runErr := w.execute(ctx, msg)
	event.Duration = w.now().Sub(event.StartedAt)
	if runErr == nil {
		w.onSuccess(ctx, event)
		return delivery.Ack(ctx)
	}

	event.Err = runErr
	opts := w.policy.Decide(attempt, runErr)
	if opts.Requeue {
		event.Delay = opts.Delay
		if recorder, ok := delivery.(attemptRecorder); ok && !counted {
			recorder.RecordAttempt(attempt + 1)
		}
		w.onRetry(ctx, event)
	} else {
		w.onFailure(ctx, event)
	}
	w.logger.Warn("mailbox.worker.job_failed", "job_id", jobID(msg), "attempt", attempt, "error", runErr)
	return delivery.Nack(ctx, opts)
}

var errInvalidJob = errors.New("gojob: invalid mailbox job")

type attemptCounter interface {
	Attempts() int
}

type attemptRecorder interface {
	RecordAttempt(attempt int)
}

// deliveryAttempt returns the 1-based attempt for delivery. Queue lease
// counts win over the attempt parameter; counted reports which one was used.
func deliveryAttempt(delivery core.JobDelivery, msg *core.JobExecutionMessage) (attempt int, counted bool) {
	if counter, ok := delivery.(attemptCounter); ok {
		if n := counter.Attempts(); n > 0 {
			return n, true
		}
	}
	return max(attemptParam(msg), 1), false
}

func (w *Worker) execute(ctx context.Context, msg *core.JobExecutionMessage) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", errInvalidJob)
	}
	switch msg.JobID {
	case JobIDDrain:
		payloadID, err := PayloadIDParam(msg)
		if err != nil {
			return fmt.Errorf("%w: %v", errInvalidJob, err)
		}
		_, err = w.runner.Drain(ctx, payloadID)
		return err
	case JobIDScheduleTick:
		now, err := NowParam(msg)
		if err != nil {
			return fmt.Errorf("%w: %v", errInvalidJob, err)
		}
		if now.IsZero() {
			now = w.now()
		}
		_, err = w.runner.ScheduleTick(ctx, now)
		return err
	default:
		return fmt.Errorf("%w: unknown job id %q", errInvalidJob, msg.JobID)
	}
}

func (w *Worker) onStart(ctx context.Context, event core.JobWorkerEvent) {
	if w.hook != nil {
		w.hook.OnStart(ctx, event)
	}
}

func (w *Worker) onSuccess(ctx context.Context, event core.JobWorkerEvent) {
	if w.hook != nil {
		w.hook.OnSuccess(ctx, event)
	}
}

func (w *Worker) onFailure(ctx context.Context, event core.JobWorkerEvent) {
	if w.hook != nil {
		w.hook.OnFailure(ctx, event)
	}
}

func (w *Worker) onRetry(ctx context.Context, event core.JobWorkerEvent) {
	if w.hook != nil {
		w.hook.OnRetry(ctx, event)
	}
}

func jobID(msg *core.JobExecutionMessage) string {
	if msg == nil {
		return ""
	}
	return msg.JobID
}

// LogHook reports worker lifecycle events through a logger.
type LogHook struct {
	Logger glog.Logger
}

func (h LogHook) OnStart(ctx context.Context, event core.JobWorkerEvent) {
	h.logger(ctx).Debug("mailbox.worker.start", "job_id", jobID(event.Message), "attempt", event.Attempt)
}

func (h LogHook) OnSuccess(ctx context.Context, event core.JobWorkerEvent) {
	h.logger(ctx).Debug("mailbox.worker.success", "job_id", jobID(event.Message), "duration_ms", event.Duration.Milliseconds())
}

func (h LogHook) OnFailure(ctx context.Context, event core.JobWorkerEvent) {
	h.logger(ctx).Error("mailbox.worker.failure", "job_id", jobID(event.Message), "error", event.Err)
}

func (h LogHook) OnRetry(ctx context.Context, event core.JobWorkerEvent) {
	h.logger(ctx).Warn("mailbox.worker.retry", "job_id", jobID(event.Message), "delay", event.Delay.String(), "error", event.Err)
}

func (h LogHook) logger(ctx context.Context) glog.Logger {
	return glog.Ensure(h.Logger).WithContext(ctx)
}

var _ core.JobWorkerHook = LogHook{}
