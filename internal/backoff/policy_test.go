package backoff

import (
	"testing"
	"time"
)

func TestDelayWithRand(t *testing.T) {
	tests := []struct {
		name        string
		policy      Policy
		attempt     int
		randomValue float64
		expected    time.Duration
	}{
		{
			name:     "fixed first attempt",
			policy:   Fixed(500 * time.Millisecond),
			attempt:  1,
			expected: 500 * time.Millisecond,
		},
		{
			name:     "fixed later attempt",
			policy:   Fixed(500 * time.Millisecond),
			attempt:  40,
			expected: 500 * time.Millisecond,
		},
		{
			name:     "second attempt doubles",
			policy:   Policy{Initial: 100 * time.Millisecond, Max: 10 * time.Second, Factor: 2},
			attempt:  2,
			expected: 200 * time.Millisecond,
		},
		{
			name:     "capped at max",
			policy:   Policy{Initial: 100 * time.Millisecond, Max: 300 * time.Millisecond, Factor: 2},
			attempt:  5,
			expected: 300 * time.Millisecond,
		},
		{
			name:        "jitter adds a fraction",
			policy:      Policy{Initial: 100 * time.Millisecond, Factor: 1, Jitter: 0.5},
			attempt:     1,
			randomValue: 0.5,
			expected:    125 * time.Millisecond,
		},
		{
			name:     "factor below one treated as fixed",
			policy:   Policy{Initial: 100 * time.Millisecond, Factor: 0.5},
			attempt:  3,
			expected: 100 * time.Millisecond,
		},
		{
			name:     "zero attempt behaves like first",
			policy:   Policy{Initial: 100 * time.Millisecond, Factor: 2},
			attempt:  0,
			expected: 100 * time.Millisecond,
		},
		{
			name:     "no initial delay",
			policy:   Policy{},
			attempt:  3,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.policy.DelayWithRand(tt.attempt, tt.randomValue)
			if got != tt.expected {
				t.Errorf("DelayWithRand() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDefaultPollPolicy(t *testing.T) {
	p := DefaultPollPolicy()
	if got := p.Delay(1); got != 500*time.Millisecond {
		t.Errorf("Delay(1) = %v, want 500ms", got)
	}
	if got := p.Delay(10); got != 500*time.Millisecond {
		t.Errorf("Delay(10) = %v, want 500ms", got)
	}
}
