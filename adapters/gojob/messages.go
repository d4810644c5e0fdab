package gojob

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-mailbox/core"
)

const (
	JobIDScheduleTick = "mailbox.schedule_tick"
	JobIDDrain        = "mailbox.drain"

	ParamPayloadID = "payload_id"
	ParamNow       = "now"
	ParamAttempt   = "attempt"
)

// DrainMessage asks a worker to drain the mailbox owning payloadID.
func DrainMessage(payloadID int64) *core.JobExecutionMessage {
	return &core.JobExecutionMessage{
		JobID:      JobIDDrain,
		ScriptPath: JobIDDrain,
		Parameters: map[string]any{ParamPayloadID: payloadID},
	}
}

// ScheduleTickMessage asks a worker to run one scheduler tick. A zero now
// lets the worker use its own clock.
func ScheduleTickMessage(now time.Time) *core.JobExecutionMessage {
	params := map[string]any{}
	if !now.IsZero() {
		params[ParamNow] = now.UTC().Format(time.RFC3339Nano)
	}
	return &core.JobExecutionMessage{
		JobID:          JobIDScheduleTick,
		ScriptPath:     JobIDScheduleTick,
		Parameters:     params,
		IdempotencyKey: tickIdempotencyKey(now),
	}
}

func tickIdempotencyKey(now time.Time) string {
	if now.IsZero() {
		return ""
	}
	return JobIDScheduleTick + ":" + now.UTC().Format(time.RFC3339Nano)
}

// PayloadIDParam reads the payload id parameter. Queues that serialize
// parameters as JSON hand numbers back as float64 or json.Number.
func PayloadIDParam(msg *core.JobExecutionMessage) (int64, error) {
	if msg == nil {
		return 0, fmt.Errorf("gojob: execution message is required")
	}
	raw, ok := msg.Parameters[ParamPayloadID]
	if !ok {
		return 0, fmt.Errorf("gojob: %s parameter is required", ParamPayloadID)
	}
	id, err := toInt64(raw)
	if err != nil {
		return 0, fmt.Errorf("gojob: invalid %s: %w", ParamPayloadID, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("gojob: %s must be positive", ParamPayloadID)
	}
	return id, nil
}

// NowParam reads the tick time parameter; it is zero when absent.
func NowParam(msg *core.JobExecutionMessage) (time.Time, error) {
	if msg == nil {
		return time.Time{}, fmt.Errorf("gojob: execution message is required")
	}
	raw, ok := msg.Parameters[ParamNow]
	if !ok || raw == nil {
		return time.Time{}, nil
	}
	switch typed := raw.(type) {
	case time.Time:
		return typed.UTC(), nil
	case string:
		if strings.TrimSpace(typed) == "" {
			return time.Time{}, nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(typed))
		if err != nil {
			return time.Time{}, fmt.Errorf("gojob: invalid %s: %w", ParamNow, err)
		}
		return parsed.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("gojob: invalid %s type %T", ParamNow, raw)
	}
}

func attemptParam(msg *core.JobExecutionMessage) int {
	if msg == nil {
		return 0
	}
	raw, ok := msg.Parameters[ParamAttempt]
	if !ok {
		return 0
	}
	attempt, err := toInt64(raw)
	if err != nil || attempt < 0 {
		return 0
	}
	return int(attempt)
}

func toInt64(raw any) (int64, error) {
	switch typed := raw.(type) {
	case int:
		return int64(typed), nil
	case int32:
		return int64(typed), nil
	case int64:
		return typed, nil
	case uint32:
		return int64(typed), nil
	case float64:
		if typed != float64(int64(typed)) {
			return 0, fmt.Errorf("non-integer value %v", typed)
		}
		return int64(typed), nil
	case json.Number:
		return typed.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}
