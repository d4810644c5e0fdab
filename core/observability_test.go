package core

import (
	"context"
	"sync"
	"testing"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) counterCount(name string, tagKey string, tagValue string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, counter := range m.counters {
		if counter.name == name && counter.tags[tagKey] == tagValue {
			count++
		}
	}
	return count
}

func (m *captureMetricsRecorder) histogram(name string) (capturedHistogram, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, histogram := range m.histograms {
		if histogram.name == name {
			return histogram, true
		}
	}
	return capturedHistogram{}, false
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFields(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFields(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFields(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) find(msg string) (capturedLog, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, record := range *l.records {
		if record.msg == msg {
			return record, true
		}
	}
	return capturedLog{}, false
}

func TestDrainObservability_SuccessEmitsMetricsAndLogs(t *testing.T) {
	store := NewMemoryPayloadStore().WithClock(fixedClock(testNow))
	id := enqueueTestPayload(t, store, "org:1", "/hooks/1")

	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	drainer := newTestDrainer(t, store, newScriptedTransport(), WithExecutorTelemetry(logger, metrics))

	if _, err := drainer.Drain(context.Background(), id); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if got := metrics.counterCount(metricDelivery, "outcome", ReasonOK); got != 1 {
		t.Fatalf("expected one ok delivery counter, got %d", got)
	}
	attempts, ok := metrics.histogram(metricDeliveryAttempts)
	if !ok || attempts.value != 1 {
		t.Fatalf("expected attempts histogram of 1, got %#v", attempts)
	}
	if _, ok := metrics.histogram(metricSendRequestDuration); !ok {
		t.Fatalf("expected send request duration histogram")
	}
	record, ok := logger.find("mailbox.deliver.success")
	if !ok {
		t.Fatalf("expected success log record")
	}
	if record.fields["payload_id"] != id {
		t.Fatalf("expected payload_id %d in log fields, got %#v", id, record.fields["payload_id"])
	}
}

func TestDrainObservability_FailureRedactsHeaders(t *testing.T) {
	store := NewMemoryPayloadStore().WithClock(fixedClock(testNow))
	id, err := store.Enqueue(context.Background(), EnqueueRequest{
		MailboxName: "org:1",
		Destination: Destination{
			RegionName: "http://us.example.test",
			Method:     "POST",
			Path:       "/hooks/1",
			Headers:    map[string]string{"X-Signature": "sha256=abc", "X-Request-Id": "req_1"},
		},
		ScheduleFor: testNow,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	logger := newCaptureLogger()
	transport := newScriptedTransport().respond("/hooks/1", 503, nil)
	drainer := newTestDrainer(t, store, transport, WithExecutorTelemetry(logger, nil))
	if _, err := drainer.Drain(context.Background(), id); err != nil {
		t.Fatalf("drain: %v", err)
	}

	record, ok := logger.find("mailbox.deliver.failure")
	if !ok {
		t.Fatalf("expected failure log record")
	}
	if record.level != "warn" {
		t.Fatalf("expected warn level, got %q", record.level)
	}
	headers, ok := record.fields["request_headers"].(map[string]string)
	if !ok {
		t.Fatalf("expected redacted headers in failure log, got %#v", record.fields["request_headers"])
	}
	if headers["X-Signature"] != RedactedValue {
		t.Fatalf("expected signature header redacted, got %q", headers["X-Signature"])
	}
	if headers["X-Request-Id"] != "req_1" {
		t.Fatalf("expected request id to remain visible, got %q", headers["X-Request-Id"])
	}
}

func TestLogAlertSink_EscalatesAtErrorLevel(t *testing.T) {
	logger := newCaptureLogger()
	LogAlertSink{Logger: logger}.Escalate(context.Background(), Alert{
		Message:     "mailbox.deliver.restricted",
		PayloadID:   7,
		MailboxName: "org:1",
		Region:      Region{Name: "us", Address: "http://10.0.0.1"},
	})
	record, ok := logger.find("mailbox.deliver.restricted")
	if !ok {
		t.Fatalf("expected alert record")
	}
	if record.level != "error" {
		t.Fatalf("expected error level, got %q", record.level)
	}
	if record.fields["region_address"] != "http://10.0.0.1" {
		t.Fatalf("expected region address in alert, got %#v", record.fields["region_address"])
	}
}
