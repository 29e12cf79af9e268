package reliability

import (
	"context"
	"time"
)

// ExponentialBackoff produces a capped, monotonically non-decreasing delay
// sequence. The sequence starts at Initial and each subsequent delay is the
// previous one scaled by Multiplier, never exceeding Max. The policy is pure:
// callers carry the current delay and advance it with Next.
type ExponentialBackoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier int
}

// DefaultBackoff returns the broker reconnect policy: 5s doubling up to 320s.
func DefaultBackoff() ExponentialBackoff {
	return ExponentialBackoff{
		Initial:    5 * time.Second,
		Max:        320 * time.Second,
		Multiplier: 2,
	}
}

// Next returns the delay that follows current in the sequence.
func (b ExponentialBackoff) Next(current time.Duration) time.Duration {
	next := current * time.Duration(b.Multiplier)
	if next > b.Max {
		return b.Max
	}
	return next
}

// Sleeper blocks for the given duration. Implementations injected by tests
// record the requested delays instead of waiting.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep waits for d, returning ctx.Err() early if ctx is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
