package core

import (
	"math"
	"time"
)

// BackoffPolicy grows the delay geometrically with the attempt count:
// Interval * Rate^attempts, capped at Max.
type BackoffPolicy struct {
	Interval time.Duration
	Rate     float64
	Max      time.Duration
}

func (p BackoffPolicy) NextDelay(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	interval := p.Interval
	if interval <= 0 {
		interval = defaultBackoffInterval
	}
	rate := p.Rate
	if rate < 1 {
		rate = defaultBackoffRate
	}
	maximum := p.Max
	if maximum <= 0 {
		maximum = defaultMaxBackoff
	}

	next := float64(interval) * math.Pow(rate, float64(attempts))
	if math.IsInf(next, 0) || math.IsNaN(next) || next >= float64(maximum) {
		return maximum
	}
	return time.Duration(next)
}

// NextAttemptAt never returns a time earlier than current, so schedule_for
// only moves forward.
func (p BackoffPolicy) NextAttemptAt(now time.Time, attempts int, current time.Time) time.Time {
	next := now.Add(p.NextDelay(attempts))
	if next.Before(current) {
		return current
	}
	return next
}
