// Package backoff computes and waits out the delays between attempts of a
// polling loop.
package backoff

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy describes the delay before each attempt. A Factor of 1 with no
// Jitter gives a fixed interval.
type Policy struct {
	// Initial is the delay before the second attempt.
	Initial time.Duration
	// Max caps any single delay. Zero means no cap.
	Max time.Duration
	// Factor multiplies the delay after each attempt. Values below 1 are
	// treated as 1.
	Factor float64
	// Jitter is the randomization factor (0.0 to 1.0) applied to the delay.
	Jitter float64
}

// Fixed returns a policy that always waits d.
func Fixed(d time.Duration) Policy {
	return Policy{Initial: d, Max: d, Factor: 1}
}

// DefaultPollPolicy polls every 500ms.
func DefaultPollPolicy() Policy {
	return Fixed(500 * time.Millisecond)
}

// Delay returns the wait after the given attempt. Attempt numbers start at 1.
func (p Policy) Delay(attempt int) time.Duration {
	return p.DelayWithRand(attempt, rand.Float64()) // #nosec G404 -- jitter does not require cryptographic randomness
}

// DelayWithRand is Delay with a caller supplied random value in [0.0, 1.0),
// for deterministic tests.
func (p Policy) DelayWithRand(attempt int, randomValue float64) time.Duration {
	if p.Initial <= 0 {
		return 0
	}
	factor := math.Max(p.Factor, 1)
	exp := math.Max(float64(attempt-1), 0)

	base := float64(p.Initial) * math.Pow(factor, exp)
	total := base + base*p.Jitter*randomValue
	if p.Max > 0 {
		total = math.Min(float64(p.Max), total)
	}
	return time.Duration(math.Round(total))
}

// Wait blocks for the delay after attempt. It returns ctx.Err() if the
// context ends first, including when it has already ended and the delay
// is zero.
func (p Policy) Wait(ctx context.Context, attempt int) error {
	return sleep(ctx, p.Delay(attempt))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
