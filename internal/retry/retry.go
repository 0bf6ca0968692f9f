// Package retry re-runs flaky operations, mostly external tool
// invocations, a bounded number of times.
package retry

import (
	"context"
	"time"

	"codeberg.org/mutker/bard/internal/errors"
	"codeberg.org/mutker/bard/internal/logger"
)

// Policy bounds a retry loop: the operation runs at most Amount+1 times
// with Timeout between consecutive failed attempts.
type Policy struct {
	Amount  int
	Timeout time.Duration
}

// Do runs op until it succeeds or the policy is exhausted, sleeping on the
// calling goroutine between attempts. On exhaustion the last error is
// returned wrapped in ErrRetryExhausted.
func Do[T any](p Policy, op func() (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)

	for attempt := 0; attempt <= p.Amount; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}
		lastErr = err

		logger.Debug().Err(err).Int("attempt", attempt+1).Int("max_attempts", p.Amount+1).Msg("Attempt failed")

		if attempt < p.Amount {
			time.Sleep(p.Timeout)
		}
	}

	return zero, exhausted(lastErr)
}

// DoContext is Do for operations that block on ctx. The wait between
// attempts is abandoned when ctx is done, in which case ctx.Err() is
// returned joined with the last failure.
func DoContext[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)

	for attempt := 0; attempt <= p.Amount; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		logger.Debug().Err(err).Int("attempt", attempt+1).Int("max_attempts", p.Amount+1).Msg("Attempt failed")

		if attempt == p.Amount {
			break
		}

		timer := time.NewTimer(p.Timeout)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, errors.Join(ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	return zero, exhausted(lastErr)
}

func exhausted(lastErr error) error {
	errFactory := errors.New()

	if lastErr == nil {
		return errFactory.New(errors.ErrRetryNotAttempted)
	}

	return errFactory.Wrap(errors.ErrRetryExhausted, lastErr)
}
