package commands

import (
	"errors"
	"time"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var ErrRelayOutboxCommandIsNotConstructed = errors.New(
	"RelayOutboxCommand must be created via NewRelayOutboxCommand constructor",
)

// RelayOutboxCommand publishes up to batchSize unpublished outbox messages.
// A failed message is retried after baseBackoff doubled per attempt, capped
// at maxBackoff, and parked after maxAttempts.
type RelayOutboxCommand struct { //nolint:recvcheck //using for validation
	batchSize   int
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration

	guard guard.ConstructorGuard
}

func NewRelayOutboxCommand(batchSize, maxAttempts int, baseBackoff, maxBackoff time.Duration) (RelayOutboxCommand, error) {
	cmd := RelayOutboxCommand{guard: guard.NewConstructorGuard()}

	var batchErr, attemptsErr, backoffErr error
	if batchSize <= 0 {
		batchErr = errs.NewValueIsOutOfRangeError("batchSize", batchSize, 1, "unbounded")
	}
	if maxAttempts <= 0 {
		attemptsErr = errs.NewValueIsOutOfRangeError("maxAttempts", maxAttempts, 1, "unbounded")
	}
	if baseBackoff <= 0 || maxBackoff < baseBackoff {
		backoffErr = errs.NewValueIsOutOfRangeError("backoff", baseBackoff, "1ns", maxBackoff)
	}
	if err := errors.Join(batchErr, attemptsErr, backoffErr); err != nil {
		return RelayOutboxCommand{}, err
	}

	cmd.batchSize = batchSize
	cmd.maxAttempts = maxAttempts
	cmd.baseBackoff = baseBackoff
	cmd.maxBackoff = maxBackoff
	return cmd, nil
}

func (c RelayOutboxCommand) Validate() error {
	return c.guard.Validate(ErrRelayOutboxCommandIsNotConstructed)
}

func (c RelayOutboxCommand) BatchSize() int   { return c.batchSize }
func (c RelayOutboxCommand) MaxAttempts() int { return c.maxAttempts }

// Backoff returns the delay before the next attempt once attempts failed.
func (c RelayOutboxCommand) Backoff(attempts int) time.Duration {
	d := c.baseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= c.maxBackoff {
			return c.maxBackoff
		}
	}
	return d
}

// RelayResult summarizes one relay pass.
type RelayResult struct {
	Published int
	Failed    int
	// Deferred counts messages left for a later pass because an earlier
	// message of the same order failed in this one.
	Deferred int
}
