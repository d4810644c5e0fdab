package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type scriptedResponse struct {
	status int
	err    error
}

// scriptedTransport answers by request path, defaulting to 200.
type scriptedTransport struct {
	mu       sync.Mutex
	byPath   map[string]scriptedResponse
	requests []TransportRequest
	onSend   func(TransportRequest)
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{byPath: map[string]scriptedResponse{}}
}

func (t *scriptedTransport) respond(path string, status int, err error) *scriptedTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byPath[path] = scriptedResponse{status: status, err: err}
	return t
}

func (t *scriptedTransport) Send(_ context.Context, req TransportRequest) (TransportResponse, error) {
	t.mu.Lock()
	t.requests = append(t.requests, req)
	response, ok := t.byPath[req.Path]
	onSend := t.onSend
	t.mu.Unlock()
	if onSend != nil {
		onSend(req)
	}
	if !ok {
		response = scriptedResponse{status: 200}
	}
	if response.err != nil {
		return TransportResponse{}, response.err
	}
	return TransportResponse{StatusCode: response.status}, nil
}

func (t *scriptedTransport) paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.requests))
	for _, req := range t.requests {
		out = append(out, req.Path)
	}
	return out
}

type captureAlertSink struct {
	mu     sync.Mutex
	alerts []Alert
}

func (s *captureAlertSink) Escalate(_ context.Context, alert Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
}

func (s *captureAlertSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []int64
	err error
}

func (d *recordingDispatcher) DispatchDrain(_ context.Context, payloadID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.ids = append(d.ids, payloadID)
	return nil
}

// failingStore injects an error into one PayloadStore operation.
type failingStore struct {
	PayloadStore
	failOn string
	err    error
}

func (s failingStore) RangeQuery(ctx context.Context, mailboxName string, fromID int64, limit int) ([]Payload, error) {
	if s.failOn == "range" {
		return nil, s.err
	}
	return s.PayloadStore.RangeQuery(ctx, mailboxName, fromID, limit)
}

func (s failingStore) Delete(ctx context.Context, id int64) error {
	if s.failOn == "delete" {
		return s.err
	}
	return s.PayloadStore.Delete(ctx, id)
}

func (s failingStore) UpdateAttemptState(ctx context.Context, id int64, attempts int, scheduleFor time.Time) error {
	if s.failOn == "update" {
		return s.err
	}
	return s.PayloadStore.UpdateAttemptState(ctx, id, attempts, scheduleFor)
}

var errStoreUnavailable = errors.New("sqlstore: connection refused")

func enqueueTestPayload(t *testing.T, store PayloadStore, mailbox string, path string) int64 {
	t.Helper()
	id, err := store.Enqueue(context.Background(), EnqueueRequest{
		MailboxName: mailbox,
		Destination: Destination{
			RegionName: "http://us.example.test",
			Method:     "POST",
			Path:       path,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       []byte(`{"event":"` + path + `"}`),
		},
		ScheduleFor: testNow,
	})
	if err != nil {
		t.Fatalf("enqueue %s: %v", path, err)
	}
	return id
}

func newTestDrainer(t *testing.T, store PayloadStore, transport Transport, opts ...ExecutorOption) *Drainer {
	t.Helper()
	cfg := DefaultConfig()
	opts = append([]ExecutorOption{WithExecutorClock(fixedClock(testNow))}, opts...)
	executor, err := NewExecutor(store, transport, cfg, opts...)
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}
	drainer, err := NewDrainer(store, executor, cfg, stubLogger{}, nil)
	if err != nil {
		t.Fatalf("new drainer: %v", err)
	}
	return drainer
}
