package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Result is the tri-state outcome of one attempt. Waiting is an expected
// condition, not a failure: it never consumes the attempt budget and never
// surfaces as an error.
type Result int

const (
	Done Result = iota
	Waiting
	Failed
)

// Operation performs one attempt of retryable work. A Failed result should be
// accompanied by the error that caused it.
type Operation func(ctx context.Context) (Result, error)

// Policy bounds automatic retry.
type Policy struct {
	// MaxAttempts caps how many Failed results are tolerated before the
	// terminal error surfaces to the caller. Minimum 1.
	MaxAttempts int
	// Delay returns the pause before the next attempt. Failed results pass
	// the failure count; Waiting results always pace at Delay(0), so a
	// pending poll after a recovered failure is not slowed by backoff.
	Delay func(attempt int) time.Duration
}

// FixedDelay returns a constant delay function.
func FixedDelay(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// Backoff returns an exponential delay function, doubling from base and
// capped at max.
func Backoff(base, max time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := base
		for i := 0; i < attempt; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		if d > max {
			return max
		}
		return d
	}
}

// Scheduler drives an operation under a retry policy. One scheduler serves
// one logical operation at a time; Wake may be called from any goroutine.
type Scheduler struct {
	policy Policy
	wake   chan struct{}
}

// NewScheduler constructs a scheduler with the supplied policy.
func NewScheduler(policy Policy) *Scheduler {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Delay == nil {
		policy.Delay = FixedDelay(time.Second)
	}
	return &Scheduler{policy: policy, wake: make(chan struct{}, 1)}
}

// Run invokes op until it reports Done, the context is cancelled, or the
// failure budget is exhausted. The terminal error is returned to the caller,
// which is responsible for recording it; Run itself records nothing.
//
// Delay timers are cancellable: teardown via ctx never leaks a timer or
// re-invokes the operation.
func (s *Scheduler) Run(ctx context.Context, op Operation) error {
	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := op(ctx)
		switch result {
		case Done:
			return nil
		case Waiting:
			woke, sleepErr := s.sleep(ctx, s.policy.Delay(0))
			if sleepErr != nil {
				return sleepErr
			}
			if woke {
				failures = 0
			}
		case Failed:
			failures++
			if failures >= s.policy.MaxAttempts {
				if err == nil {
					err = errors.New("operation failed")
				}
				return err
			}
			woke, sleepErr := s.sleep(ctx, s.policy.Delay(failures))
			if sleepErr != nil {
				return sleepErr
			}
			if woke {
				failures = 0
			}
		default:
			return fmt.Errorf("unknown retry result %d", result)
		}
	}
}

// Wake resets the failure budget and short-circuits any pending delay,
// re-invoking the operation immediately. Used for manual retry and for the
// dependency-became-ready shortcut. Safe to call when nothing is running.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) (bool, error) {
	if d <= 0 {
		select {
		case <-s.wake:
			return true, nil
		default:
			return false, nil
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timer.C:
		return false, nil
	case <-s.wake:
		return true, nil
	}
}
