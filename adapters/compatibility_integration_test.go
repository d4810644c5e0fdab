package adapters_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-command"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-mailbox/adapters/gocommand"
	"github.com/goliatone/go-mailbox/adapters/gojob"
	"github.com/goliatone/go-mailbox/adapters/gologger"
	mailboxcommand "github.com/goliatone/go-mailbox/command"
	"github.com/goliatone/go-mailbox/core"
)

var compatNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRuntimeCompatibility_GoJobGoCommandGoLogger(t *testing.T) {
	ctx := context.Background()

	logger := &compatLogger{}
	provider := &compatProvider{logger: logger}

	_, _, jobProvider, jobLogger := gologger.ResolveForJob("mailbox", provider, nil)
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job logger bridges")
	}

	enqueueQueue := &memoryQueue{}
	enqueueAdapter := gojob.NewEnqueuerAdapter(enqueueQueue)
	if err := enqueueAdapter.Enqueue(ctx, gojob.DrainMessage(7)); err != nil {
		t.Fatalf("enqueue via gojob adapter: %v", err)
	}
	if len(enqueueQueue.pending) != 1 || enqueueQueue.pending[0].JobID != gojob.JobIDDrain {
		t.Fatalf("expected go-job message mapping through enqueuer adapter")
	}

	queueRegistry := jobqueuecommand.NewRegistry()
	commandAdapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	if err := commandAdapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if err := commandAdapter.RegisterCommand(mailboxcommand.NewScheduleTickCommand(nil)); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := commandAdapter.Initialize(); err != nil {
		t.Fatalf("initialize command registry: %v", err)
	}
	if _, ok := queueRegistry.Get(mailboxcommand.TypeScheduleTick); !ok {
		t.Fatalf("expected command resolver hook to mirror command into go-job queue registry")
	}
}

func TestRuntimeCompatibility_TickDispatchesDrainThroughJobQueue(t *testing.T) {
	ctx := context.Background()
	jobs := &memoryQueue{}
	transport := &recordingTransport{}

	service, err := core.NewService(core.DefaultConfig(),
		core.WithTransport(transport),
		core.WithDispatcher(gojob.NewJobDispatcher(jobs)),
		core.WithClock(func() time.Time { return compatNow }),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	subscriptions, err := gocommand.RegisterMailbox(adapter, gocommand.NewMailboxHandlers(service, nil))
	if err != nil {
		t.Fatalf("register mailbox handlers: %v", err)
	}
	defer gocommand.Unsubscribe(subscriptions)
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize adapter: %v", err)
	}

	for _, path := range []string{"/first", "/second"} {
		err := gocommand.Dispatch(ctx, mailboxcommand.EnqueuePayloadMessage{Request: core.EnqueueRequest{
			MailboxName: "org:compat",
			Destination: core.Destination{RegionName: "https://us.example.test", Method: "POST", Path: path},
			ScheduleFor: compatNow.Add(-time.Minute),
		}})
		if err != nil {
			t.Fatalf("dispatch enqueue %s: %v", path, err)
		}
	}

	if err := gocommand.Dispatch(ctx, mailboxcommand.ScheduleTickMessage{Now: compatNow}); err != nil {
		t.Fatalf("dispatch schedule tick: %v", err)
	}
	if len(jobs.pending) != 1 {
		t.Fatalf("expected one drain job for one mailbox, got %d", len(jobs.pending))
	}
	if len(transport.paths()) != 0 {
		t.Fatalf("expected no delivery before a worker runs")
	}

	worker, err := gojob.NewWorker(
		gojob.NewDequeuerAdapter(jobs),
		service,
		gojob.WithWorkerLogger(glog.Nop()),
		gojob.WithWorkerClock(func() time.Time { return compatNow }),
	)
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	if err := worker.ProcessNext(ctx); err != nil {
		t.Fatalf("process drain job: %v", err)
	}

	paths := transport.paths()
	if len(paths) != 2 || paths[0] != "/first" || paths[1] != "/second" {
		t.Fatalf("expected mailbox order /first, /second, got %v", paths)
	}
	if jobs.acked != 1 {
		t.Fatalf("expected drain job acked, got %d", jobs.acked)
	}
	if _, err := service.HeadOfLine(ctx, "org:compat"); err == nil {
		t.Fatalf("expected mailbox to be empty after drain")
	}
}

// memoryQueue is a FIFO go-job queue for a single test goroutine.
type memoryQueue struct {
	pending []*job.ExecutionMessage
	acked   int
	nacked  int
}

var errQueueEmpty = errors.New("queue: empty")

func (q *memoryQueue) Enqueue(_ context.Context, msg *job.ExecutionMessage) (queue.EnqueueReceipt, error) {
	q.pending = append(q.pending, msg)
	return queue.EnqueueReceipt{}, nil
}

func (q *memoryQueue) Dequeue(context.Context) (queue.Delivery, error) {
	if len(q.pending) == 0 {
		return nil, errQueueEmpty
	}
	next := q.pending[0]
	q.pending = q.pending[1:]
	return &memoryDelivery{queue: q, msg: next}, nil
}

type memoryDelivery struct {
	queue *memoryQueue
	msg   *job.ExecutionMessage
}

func (d *memoryDelivery) Message() *job.ExecutionMessage { return d.msg }

func (d *memoryDelivery) Ack(context.Context) error {
	d.queue.acked++
	return nil
}

func (d *memoryDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	d.queue.nacked++
	if opts.Disposition == queue.NackDispositionRetry {
		d.queue.pending = append(d.queue.pending, d.msg)
	}
	return nil
}

type recordingTransport struct {
	mu       sync.Mutex
	received []string
}

func (t *recordingTransport) Send(_ context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.received = append(t.received, req.Path)
	return core.TransportResponse{StatusCode: 200}, nil
}

func (t *recordingTransport) paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.received...)
}

type compatProvider struct {
	logger glog.Logger
}

func (p *compatProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type compatLogger struct{}

func (compatLogger) Trace(string, ...any)                    {}
func (compatLogger) Debug(string, ...any)                    {}
func (compatLogger) Info(string, ...any)                     {}
func (compatLogger) Warn(string, ...any)                     {}
func (compatLogger) Error(string, ...any)                    {}
func (compatLogger) Fatal(string, ...any)                    {}
func (compatLogger) WithContext(context.Context) glog.Logger { return compatLogger{} }
