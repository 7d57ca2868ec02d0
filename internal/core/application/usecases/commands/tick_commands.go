package commands

import (
	"errors"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var (
	ErrAutoApproveDeliveriesCommandIsNotConstructed = errors.New(
		"AutoApproveDeliveriesCommand must be created via NewAutoApproveDeliveriesCommand constructor",
	)
	ErrExpireNegotiationsCommandIsNotConstructed = errors.New(
		"ExpireNegotiationsCommand must be created via NewExpireNegotiationsCommand constructor",
	)
)

// AutoApproveDeliveriesCommand approves, on behalf of the buyer, deliveries
// whose grace period has run out. At most BatchSize orders are handled.
type AutoApproveDeliveriesCommand struct { //nolint:recvcheck //using for validation
	batchSize int

	guard guard.ConstructorGuard
}

func NewAutoApproveDeliveriesCommand(batchSize int) (AutoApproveDeliveriesCommand, error) {
	if batchSize <= 0 {
		return AutoApproveDeliveriesCommand{}, errs.NewValueIsOutOfRangeError("batchSize", batchSize, 1, "unbounded")
	}
	return AutoApproveDeliveriesCommand{batchSize: batchSize, guard: guard.NewConstructorGuard()}, nil
}

func (c AutoApproveDeliveriesCommand) Validate() error {
	return c.guard.Validate(ErrAutoApproveDeliveriesCommandIsNotConstructed)
}

func (c AutoApproveDeliveriesCommand) BatchSize() int {
	return c.batchSize
}

// ExpireNegotiationsCommand closes negotiations that outlived their TTL.
type ExpireNegotiationsCommand struct { //nolint:recvcheck //using for validation
	batchSize int

	guard guard.ConstructorGuard
}

func NewExpireNegotiationsCommand(batchSize int) (ExpireNegotiationsCommand, error) {
	if batchSize <= 0 {
		return ExpireNegotiationsCommand{}, errs.NewValueIsOutOfRangeError("batchSize", batchSize, 1, "unbounded")
	}
	return ExpireNegotiationsCommand{batchSize: batchSize, guard: guard.NewConstructorGuard()}, nil
}

func (c ExpireNegotiationsCommand) Validate() error {
	return c.guard.Validate(ErrExpireNegotiationsCommandIsNotConstructed)
}

func (c ExpireNegotiationsCommand) BatchSize() int {
	return c.batchSize
}

// TickResult summarizes one scheduler pass.
type TickResult struct {
	Applied int
	Skipped int
	Failed  int
}
