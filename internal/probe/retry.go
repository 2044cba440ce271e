package probe

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// attemptOutcome is the transition taken after one attempt
type attemptOutcome int

const (
	outcomeSuccess attemptOutcome = iota
	outcomeRetryable
	outcomeTerminal
)

func (o attemptOutcome) String() string {
	switch o {
	case outcomeSuccess:
		return "success"
	case outcomeRetryable:
		return "retryable"
	default:
		return "terminal"
	}
}

// classify maps an attempt error onto the retry state machine. Only
// transport failures are retried; anything the registry actually said is
// final for that protocol.
func classify(err error) attemptOutcome {
	if err == nil {
		return outcomeSuccess
	}
	var te *TransportError
	if errors.As(err, &te) {
		return outcomeRetryable
	}
	return outcomeTerminal
}

// retrySchedule allows attempts-1 retries spaced delay apart
func retrySchedule(attempts int, delay time.Duration) backoff.BackOff {
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(attempts-1))
}

// runAttempts drives Attempt(n) → Success | Retryable → Attempt(n+1) | Terminal.
// It returns the last error when the schedule is exhausted.
func runAttempts(ctx context.Context, sched backoff.BackOff, attempt func(ctx context.Context, n int) (Answer, error)) (Answer, int, error) {
	n := 0
	for {
		n++
		ans, err := attempt(ctx, n)
		switch classify(err) {
		case outcomeSuccess:
			return ans, n, nil
		case outcomeTerminal:
			return Answer{}, n, err
		}

		wait := sched.NextBackOff()
		if wait == backoff.Stop {
			return Answer{}, n, err
		}
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return Answer{}, n, err
			case <-timer.C:
			}
		}
	}
}
