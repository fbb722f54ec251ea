// Package wait provides the bounded poll primitive used wherever the
// scraper has to block on a page condition. Sleeping is injectable so
// tests run against a zero-delay clock instead of wall time.
package wait

import (
	"context"
	"time"
)

// SleepFunc blocks for d or until ctx is cancelled.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default context-aware sleep.
func Sleep(ctx context.Context, d time.Duration) error {
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

// Condition reports whether the awaited state holds. Returning an error is
// treated as "not yet": transient DOM unavailability during a redirect is
// expected and must not abort the poll.
type Condition func() (bool, error)

// Poller retries a Condition up to MaxAttempts times, Interval apart.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
	Sleep       SleepFunc
}

// Wait polls cond until it holds, attempts are exhausted, or ctx is
// cancelled. It returns true only when the condition was observed; the
// wall-clock bound is MaxAttempts * Interval.
func (p Poller) Wait(ctx context.Context, cond Condition) (bool, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		ok, err := cond()
		if err == nil && ok {
			return true, nil
		}

		if i < attempts-1 {
			if err := sleep(ctx, p.Interval); err != nil {
				return false, err
			}
		}
	}

	return false, nil
}
