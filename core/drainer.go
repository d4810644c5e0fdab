package core

import (
	"context"
)

// Deliverer is the single-attempt step a drain applies to each payload.
type Deliverer interface {
	Deliver(ctx context.Context, payload Payload) (DeliveryResult, error)
}

// Drainer delivers one mailbox in ascending id order from a reference
// payload, halting at the first retryable failure so later payloads are never
// delivered ahead of an unresolved one.
type Drainer struct {
	store     PayloadStore
	deliverer Deliverer
	limit     int
	telemetry telemetry
}

func NewDrainer(store PayloadStore, deliverer Deliverer, cfg Config, logger Logger, metrics MetricsRecorder) (*Drainer, error) {
	if store == nil {
		return nil, notConfigured("payload store is required")
	}
	if deliverer == nil {
		return nil, notConfigured("deliverer is required")
	}
	limit := cfg.MaxMailboxDrain
	if limit <= 0 {
		limit = DefaultConfig().MaxMailboxDrain
	}
	return &Drainer{
		store:     store,
		deliverer: deliverer,
		limit:     limit,
		telemetry: newTelemetry(logger, metrics),
	}, nil
}

// Drain never fails for a missing reference payload; that is a lost race
// with an earlier run and ends the drain. Store failures halt the batch and
// are returned to the caller.
func (d *Drainer) Drain(ctx context.Context, payloadID int64) (DrainStats, error) {
	stats := DrainStats{PayloadID: payloadID}
	if d == nil || d.store == nil || d.deliverer == nil {
		return stats, notConfigured("drainer")
	}

	head, err := d.store.Get(ctx, payloadID)
	if err != nil {
		if isPayloadMissing(err) {
			d.race(ctx, &stats, payloadID)
			return stats, nil
		}
		return stats, err
	}
	stats.Mailbox = head.MailboxName

	batch, err := d.store.RangeQuery(ctx, head.MailboxName, head.ID, d.limit)
	if err != nil {
		return stats, err
	}

	for _, payload := range batch {
		result, err := d.deliverer.Deliver(ctx, payload)
		if err != nil {
			if isPayloadMissing(err) {
				d.race(ctx, &stats, payload.ID)
				return stats, nil
			}
			stats.Halted = true
			return stats, err
		}

		switch result.Outcome {
		case OutcomeDiscarded:
			stats.Discarded++
			continue
		case OutcomeDelivered, OutcomeRejected:
			if err := d.store.Delete(ctx, payload.ID); err != nil {
				stats.Halted = true
				return stats, err
			}
			if result.Outcome == OutcomeDelivered {
				stats.Delivered++
			} else {
				stats.Rejected++
			}
			continue
		}

		stats.Halted = true
		stats.HaltReason = result.Reason
		d.telemetry.incr(ctx, metricDelivery, map[string]string{"outcome": "retry"})
		return stats, nil
	}
	return stats, nil
}

func (d *Drainer) race(ctx context.Context, stats *DrainStats, payloadID int64) {
	stats.Race = true
	stats.Halted = true
	stats.HaltReason = ReasonRace
	d.telemetry.incr(ctx, metricDelivery, map[string]string{"outcome": ReasonRace})
	d.telemetry.info(ctx, "mailbox.drain.potential_race", map[string]any{"payload_id": payloadID})
}

var _ DrainRunner = (*Drainer)(nil)
