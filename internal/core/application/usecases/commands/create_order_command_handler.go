package commands

import (
	"context"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/clock"
)

// CreateOrderCommandHandler stores a new PENDING order.
//
// Example:
//
//	handler := NewCreateOrderCommandHandler(uowFactory, clock.System{})
//	if err := handler.Handle(ctx, cmd); err != nil {
//	    return fmt.Errorf("order creation failed: %w", err)
//	}
type CreateOrderCommandHandler struct {
	uowFactory OrderUoWFactory
	clock      clock.Clock
}

func NewCreateOrderCommandHandler(uowFactory OrderUoWFactory, clk clock.Clock) CreateOrderCommandHandler {
	return CreateOrderCommandHandler{
		uowFactory: uowFactory,
		clock:      clk,
	}
}

// Handle builds the aggregate from the command and adds it in one transaction.
func (h *CreateOrderCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	requirements := make([]*order.Requirement, 0, len(cmd.Requirements()))
	for _, spec := range cmd.Requirements() {
		r, err := order.NewRequirement(kernel.NewUUID(), spec.Question, spec.Required, spec.HasFile)
		if err != nil {
			return err
		}
		requirements = append(requirements, r)
	}

	o, err := order.NewOrder(cmd.OrderID(), cmd.GigID(), cmd.BuyerID(), cmd.SellerID(),
		cmd.Terms(), requirements, h.clock.Now())
	if err != nil {
		return err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.OrderRepository().Add(ctx, o); err != nil {
		return err
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	return nil
}
