package core

import "context"

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func cloneTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}

// LogAlertSink escalates alerts as error-level log records.
type LogAlertSink struct {
	Logger Logger
}

func (s LogAlertSink) Escalate(ctx context.Context, alert Alert) {
	fields := map[string]any{
		"payload_id":     alert.PayloadID,
		"mailbox_name":   alert.MailboxName,
		"region":         alert.Region.Name,
		"region_address": alert.Region.Address,
	}
	if alert.Err != nil {
		fields["error"] = alert.Err.Error()
	}
	newTelemetry(s.Logger, nil).error(ctx, alert.Message, fields)
}

var (
	_ MetricsRecorder = NopMetricsRecorder{}
	_ AlertSink       = LogAlertSink{}
)
