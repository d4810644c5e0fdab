package core

import (
	"testing"
	"time"
)

func TestBackoffPolicyNextDelay(t *testing.T) {
	policy := DefaultConfig().BackoffPolicy()
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{attempts: 0, want: 3 * time.Minute},
		{attempts: 1, want: time.Duration(float64(3*time.Minute) * 1.4)},
		{attempts: 2, want: time.Duration(float64(3*time.Minute) * 1.4 * 1.4)},
		{attempts: 20, want: 60 * time.Minute},
		{attempts: 500, want: 60 * time.Minute},
	}
	for _, tc := range cases {
		got := policy.NextDelay(tc.attempts)
		diff := got - tc.want
		if diff < 0 {
			diff = -diff
		}
		if diff > time.Millisecond {
			t.Fatalf("attempts=%d: expected %s, got %s", tc.attempts, tc.want, got)
		}
	}
}

func TestBackoffPolicyNextAttemptAtNeverMovesBackwards(t *testing.T) {
	policy := BackoffPolicy{Interval: time.Minute, Rate: 2, Max: time.Hour}
	current := testNow.Add(2 * time.Hour)
	if got := policy.NextAttemptAt(testNow, 1, current); !got.Equal(current) {
		t.Fatalf("expected schedule to stay at %s, got %s", current, got)
	}
	if got := policy.NextAttemptAt(testNow, 1, testNow); !got.Equal(testNow.Add(2 * time.Minute)) {
		t.Fatalf("expected now+2m, got %s", got)
	}
}

func TestBackoffPolicyZeroValueUsesDefaults(t *testing.T) {
	if got := (BackoffPolicy{}).NextDelay(0); got != defaultBackoffInterval {
		t.Fatalf("expected default interval, got %s", got)
	}
}
