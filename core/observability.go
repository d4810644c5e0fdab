package core

import (
	"context"
	"sort"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
)

const (
	metricScheduleMailboxCount = "mailbox.schedule.mailbox_count"
	metricScheduleRescheduled  = "mailbox.schedule.rescheduled"
	metricDelivery             = "mailbox.deliver.delivery"
	metricDeliveryFailure      = "mailbox.deliver.failure"
	metricDeliveryAttempts     = "mailbox.deliver.attempts"
	metricSendRequestDuration  = "mailbox.deliver.send_request.duration_ms"
)

// telemetry bundles the logger and metrics recorder shared by the scheduler,
// drainer and executor.
type telemetry struct {
	logger  Logger
	metrics MetricsRecorder
}

func newTelemetry(logger Logger, metrics MetricsRecorder) telemetry {
	if metrics == nil {
		metrics = NopMetricsRecorder{}
	}
	return telemetry{logger: glog.Ensure(logger), metrics: metrics}
}

func (t telemetry) info(ctx context.Context, message string, fields map[string]any) {
	t.logWithLevel(ctx, "info", message, fields)
}

func (t telemetry) warn(ctx context.Context, message string, fields map[string]any) {
	t.logWithLevel(ctx, "warn", message, fields)
}

func (t telemetry) error(ctx context.Context, message string, fields map[string]any) {
	t.logWithLevel(ctx, "error", message, fields)
}

func (t telemetry) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if t.logger == nil {
		return
	}
	logger := t.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch level {
	case "error":
		logger.Error(message, args...)
	case "warn":
		logger.Warn(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (t telemetry) incr(ctx context.Context, name string, tags map[string]string) {
	if t.metrics == nil {
		return
	}
	t.metrics.IncCounter(ctx, strings.TrimSpace(name), 1, cloneTags(tags))
}

func (t telemetry) distribution(ctx context.Context, name string, value float64, tags map[string]string) {
	if t.metrics == nil {
		return
	}
	t.metrics.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

func payloadFields(payload Payload) map[string]any {
	return map[string]any{
		"payload_id":     payload.ID,
		"mailbox_name":   payload.MailboxName,
		"attempt":        payload.Attempts,
		"region":         payload.Destination.RegionName,
		"request_method": payload.Destination.Method,
		"request_path":   payload.Destination.Path,
	}
}
