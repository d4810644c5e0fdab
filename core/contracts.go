package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// PayloadStore is the durable ordered log of pending deliveries. All
// coordination between scheduler ticks and concurrent drains goes through it.
type PayloadStore interface {
	Enqueue(ctx context.Context, req EnqueueRequest) (int64, error)
	HeadOfLine(ctx context.Context, mailboxName string) (int64, error)
	DueMailboxes(ctx context.Context, now time.Time, limit int) ([]MailboxHead, error)
	RangeQuery(ctx context.Context, mailboxName string, fromID int64, limit int) ([]Payload, error)
	Reschedule(ctx context.Context, ids []int64, scheduleFor time.Time) (int, error)
	Get(ctx context.Context, id int64) (Payload, error)
	UpdateAttemptState(ctx context.Context, id int64, attempts int, scheduleFor time.Time) error
	Delete(ctx context.Context, id int64) error
}

type Transport interface {
	Send(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// DrainDispatcher hands one drain invocation to an asynchronous executor.
type DrainDispatcher interface {
	DispatchDrain(ctx context.Context, payloadID int64) error
}

// DrainRunner is the entry point a dispatcher calls back into.
type DrainRunner interface {
	Drain(ctx context.Context, payloadID int64) (DrainStats, error)
}

type DestinationResolver interface {
	ResolveRegion(ctx context.Context, name string) (Region, error)
}

type AlertSink interface {
	Escalate(ctx context.Context, alert Alert)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type StoreProvider interface {
	PayloadStore() PayloadStore
}

// RegionResolverProvider is implemented by repository factories that also
// keep the region directory.
type RegionResolverProvider interface {
	RegionResolver() DestinationResolver
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}
