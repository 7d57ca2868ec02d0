package commands

import (
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var ErrExecuteCommandIsNotConstructed = errors.New(
	"ExecuteCommand must be created via NewExecuteCommand constructor",
)

// ExecuteCommand asks the workflow to perform one action on one order on
// behalf of an authenticated actor.
//
// Example:
//
//	buyer, _ := order.NewActor(userID, order.RoleBuyer)
//	cmd, err := NewExecuteCommand(orderID, buyer, services.RespondToDelivery{
//	    Decision: order.DecisionApproveDelivery,
//	})
//	if err != nil {
//	    return err
//	}
//	result, err := handler.Handle(ctx, cmd)
type ExecuteCommand struct { //nolint:recvcheck //using for validation
	orderID     kernel.UUID
	actor       order.Actor
	instruction services.Instruction

	guard guard.ConstructorGuard
}

func NewExecuteCommand(orderID kernel.UUID, actor order.Actor, instruction services.Instruction) (ExecuteCommand, error) {
	cmd := ExecuteCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setActor(actor),
		cmd.setInstruction(instruction),
	); err != nil {
		return ExecuteCommand{}, err
	}

	return cmd, nil
}

func (c ExecuteCommand) Validate() error {
	return c.guard.Validate(ErrExecuteCommandIsNotConstructed)
}

func (c ExecuteCommand) OrderID() kernel.UUID              { return c.orderID }
func (c ExecuteCommand) Actor() order.Actor                { return c.actor }
func (c ExecuteCommand) Instruction() services.Instruction { return c.instruction }
func (c ExecuteCommand) Action() order.Action              { return c.instruction.Action() }

func (c *ExecuteCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	c.orderID = orderID
	return nil
}

func (c *ExecuteCommand) setActor(actor order.Actor) error {
	if err := errors.Join(actor.ID.Validate(), actor.Role.Validate()); err != nil {
		return err
	}

	c.actor = actor
	return nil
}

func (c *ExecuteCommand) setInstruction(instruction services.Instruction) error {
	if instruction == nil {
		return errs.NewValueIsRequiredError("instruction")
	}

	c.instruction = instruction
	return nil
}

// Outcome tells how an accepted command ended.
type Outcome string

const (
	// OutcomeApplied means the order changed and the change was committed.
	OutcomeApplied Outcome = "APPLIED"
	// OutcomeAlreadyResolved means the target had been handled before.
	OutcomeAlreadyResolved Outcome = "ALREADY_RESOLVED"
	// OutcomeNotDue means a scheduled action ran before its deadline.
	OutcomeNotDue Outcome = "NOT_DUE"
)

// ExecuteResult carries the order as it is after the command and the events
// the command committed. Events is empty unless Outcome is OutcomeApplied.
type ExecuteResult struct {
	Outcome Outcome
	Order   order.Snapshot
	Events  []order.DomainEvent
}
