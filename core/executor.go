package core

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Executor performs one delivery attempt for a payload and classifies it.
type Executor struct {
	store       PayloadStore
	transport   Transport
	resolver    DestinationResolver
	alerts      AlertSink
	policy      BackoffPolicy
	maxAttempts int
	timeout     time.Duration
	telemetry   telemetry
	now         func() time.Time
}

type ExecutorOption func(*Executor)

func WithExecutorResolver(resolver DestinationResolver) ExecutorOption {
	return func(e *Executor) {
		e.resolver = resolver
	}
}

func WithExecutorAlertSink(sink AlertSink) ExecutorOption {
	return func(e *Executor) {
		e.alerts = sink
	}
}

func WithExecutorTelemetry(logger Logger, metrics MetricsRecorder) ExecutorOption {
	return func(e *Executor) {
		e.telemetry = newTelemetry(logger, metrics)
	}
}

func WithExecutorClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

func NewExecutor(store PayloadStore, transport Transport, cfg Config, opts ...ExecutorOption) (*Executor, error) {
	if store == nil {
		return nil, notConfigured("payload store is required")
	}
	if transport == nil {
		return nil, notConfigured("transport is required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	executor := &Executor{
		store:       store,
		transport:   transport,
		resolver:    StaticResolver{},
		policy:      cfg.BackoffPolicy(),
		maxAttempts: cfg.MaxAttempts,
		timeout:     cfg.RequestTimeout,
		telemetry:   newTelemetry(nil, nil),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(executor)
	}
	if executor.resolver == nil {
		executor.resolver = StaticResolver{}
	}
	if executor.alerts == nil {
		executor.alerts = LogAlertSink{Logger: executor.telemetry.logger}
	}
	return executor, nil
}

// Deliver makes at most one HTTP attempt. Payloads past the attempts ceiling
// are deleted without a request. The attempt bookkeeping is persisted before
// the request is sent. A vanished payload surfaces as ErrPayloadNotFound.
func (e *Executor) Deliver(ctx context.Context, payload Payload) (DeliveryResult, error) {
	if e == nil || e.store == nil || e.transport == nil {
		return DeliveryResult{}, notConfigured("executor")
	}
	fields := payloadFields(payload)

	if payload.Attempts >= e.maxAttempts {
		if err := e.store.Delete(ctx, payload.ID); err != nil {
			return DeliveryResult{}, err
		}
		e.telemetry.incr(ctx, metricDelivery, map[string]string{"outcome": ReasonAttemptsExceed})
		e.telemetry.info(ctx, "mailbox.deliver.discard", fields)
		return DeliveryResult{
			Outcome:  OutcomeDiscarded,
			Reason:   ReasonAttemptsExceed,
			Attempts: payload.Attempts,
		}, nil
	}

	attempts := payload.Attempts + 1
	scheduleFor := e.policy.NextAttemptAt(e.now(), attempts, payload.ScheduleFor)
	if err := e.store.UpdateAttemptState(ctx, payload.ID, attempts, scheduleFor); err != nil {
		return DeliveryResult{}, err
	}
	fields["attempt"] = attempts

	region, err := e.resolver.ResolveRegion(ctx, payload.Destination.RegionName)
	if err != nil {
		fields["error"] = err.Error()
		e.telemetry.warn(ctx, "mailbox.deliver.unknown_region", fields)
		e.recordFailure(ctx, ReasonHostError, payload.Destination.RegionName)
		return DeliveryResult{Outcome: OutcomeRetry, Reason: ReasonHostError, Attempts: attempts, Err: err}, nil
	}
	fields["region"] = region.Name

	startedAt := e.now()
	res, sendErr := e.transport.Send(ctx, TransportRequest{
		Method:  strings.ToUpper(strings.TrimSpace(payload.Destination.Method)),
		BaseURL: region.Address,
		Path:    payload.Destination.Path,
		Headers: cloneStringMap(payload.Destination.Headers),
		Body:    append([]byte(nil), payload.Destination.Body...),
		Timeout: e.timeout,
	})
	e.telemetry.distribution(ctx, metricSendRequestDuration, float64(e.now().Sub(startedAt).Milliseconds()), map[string]string{
		"destination_region": region.Name,
	})

	result := Classify(res, sendErr)
	result.Attempts = attempts
	e.observe(ctx, payload, region, result, fields)
	return result, nil
}

func (e *Executor) observe(ctx context.Context, payload Payload, region Region, result DeliveryResult, fields map[string]any) {
	if result.StatusCode != 0 {
		fields["status"] = result.StatusCode
	}
	if result.Err != nil {
		fields["error"] = result.Err.Error()
	}
	fields["reason"] = result.Reason

	switch {
	case result.Outcome == OutcomeDelivered:
		e.telemetry.incr(ctx, metricDelivery, map[string]string{"outcome": ReasonOK})
		e.telemetry.distribution(ctx, metricDeliveryAttempts, float64(result.Attempts), nil)
		e.telemetry.info(ctx, "mailbox.deliver.success", fields)
	case result.Reason == ReasonRestricted:
		e.recordFailure(ctx, result.Reason, region.Name)
		e.alerts.Escalate(ctx, Alert{
			Message:     "mailbox.deliver.restricted",
			PayloadID:   payload.ID,
			MailboxName: payload.MailboxName,
			Region:      region,
			Err:         result.Err,
		})
	case result.Outcome == OutcomeRejected:
		e.recordFailure(ctx, result.Reason, region.Name)
		e.telemetry.info(ctx, "mailbox.deliver.rejected", fields)
	default:
		e.recordFailure(ctx, result.Reason, region.Name)
		fields["request_headers"] = RedactHeaders(payload.Destination.Headers)
		e.telemetry.warn(ctx, "mailbox.deliver.failure", fields)
	}
}

func (e *Executor) recordFailure(ctx context.Context, reason string, region string) {
	e.telemetry.incr(ctx, metricDeliveryFailure, map[string]string{
		"reason":             reason,
		"destination_region": region,
	})
}

// StaticResolver treats the region name as the base address.
type StaticResolver struct{}

func (StaticResolver) ResolveRegion(_ context.Context, name string) (Region, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Region{}, invalidInput("region name is required")
	}
	return Region{Name: name, Address: name}, nil
}

func isPayloadMissing(err error) bool {
	return errors.Is(err, ErrPayloadNotFound)
}

func cloneStringMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var _ DestinationResolver = StaticResolver{}
