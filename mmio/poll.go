package mmio

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
)

// ErrPollTimeout is returned when a bounded poll gives up.
var ErrPollTimeout = errors.New("mmio: poll timed out")

// Poll spins on cond until it returns true. There is no suspension between
// evaluations: the back-off policy is only consulted for whether another
// attempt is allowed.
//
// maxAttempts bounds the number of evaluations; zero means unbounded,
// in which case only ctx can end the wait.
func Poll(ctx context.Context, maxAttempts uint64, cond func() bool) error {
	var policy backoff.BackOff = &backoff.ZeroBackOff{}
	if maxAttempts > 0 {
		policy = backoff.WithMaxRetries(policy, maxAttempts-1)
	}
	policy = backoff.WithContext(policy, ctx)
	policy.Reset()

	var attempts uint64
	for {
		attempts++
		if cond() {
			return nil
		}
		if policy.NextBackOff() == backoff.Stop {
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w after %d attempts: %w", ErrPollTimeout, attempts, err)
	}
	return fmt.Errorf("%w after %d attempts", ErrPollTimeout, attempts)
}
