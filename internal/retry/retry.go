// Package retry provides bounded exponential backoff for single operations.
package retry

import (
	"context"
	"time"
)

// Policy controls how often and how fast an operation is retried.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultPolicy retries up to four attempts with 1s/2s/4s delays.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  4,
		InitialDelay: time.Second,
		Multiplier:   2,
		MaxDelay:     time.Minute,
	}
}

// Do runs op until it succeeds, the attempt budget is exhausted, or ctx is
// canceled. The delay grows by Multiplier after every failed attempt, capped
// at MaxDelay. On exhaustion the last error is returned.
func Do(ctx context.Context, p Policy, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return lastErr
}

// DoValue is Do for operations that produce a value alongside the error.
func DoValue[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func(ctx context.Context) error {
		var opErr error
		out, opErr = op(ctx)
		return opErr
	})
	return out, err
}
