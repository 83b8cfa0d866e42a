package retry

import (
	"context"
	"time"
)

// Policy bounds the retry loop used at both the scan and action layers:
// exponential growth from BaseDelay, capped at MaxDelay, at most MaxAttempts
// total attempts (the first call counts as attempt 1).
type Policy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		MaxAttempts: 5,
	}
}

// Delay returns the backoff before retry number attempt (1-based count of
// failures so far). Growth is base*2^(attempt-1), clamped to MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Sleeper lets tests replace the real clock.
type Sleeper func(ctx context.Context, d time.Duration) error

func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
