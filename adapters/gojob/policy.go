package gojob

import (
	"errors"
	"time"

	"github.com/goliatone/go-mailbox/core"
)

// RetryPolicy settles failed mailbox jobs. Drains are safe to repeat and the
// scheduler re-dispatches any mailbox whose head is still due, so the
// defaults give up early.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   15 * time.Second,
		MaxDelay:    time.Minute,
	}
}

// Decide returns the nack for a job that failed on attempt (1-based).
// Invalid jobs and jobs at MaxAttempts are dead-lettered; the rest are
// requeued after BaseDelay doubled per previous attempt, capped at MaxDelay.
func (p RetryPolicy) Decide(attempt int, err error) core.JobNackOptions {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	if errors.Is(err, errInvalidJob) {
		return core.JobNackOptions{DeadLetter: true, Reason: reason}
	}
	if attempt < 1 {
		attempt = 1
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		return core.JobNackOptions{DeadLetter: true, Reason: reason}
	}
	return core.JobNackOptions{Requeue: true, Delay: p.delay(attempt), Reason: reason}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}
