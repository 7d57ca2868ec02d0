package commands

import (
	"context"
	"errors"
	"log/slog"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/guard"
)

var ErrReleaseQuarantineCommandIsNotConstructed = errors.New(
	"ReleaseQuarantineCommand must be created via NewReleaseQuarantineCommand constructor",
)

// ReleaseQuarantineCommand lets an operator reopen an order after repairing it.
type ReleaseQuarantineCommand struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID

	guard guard.ConstructorGuard
}

func NewReleaseQuarantineCommand(orderID kernel.UUID) (ReleaseQuarantineCommand, error) {
	if err := orderID.Validate(); err != nil {
		return ReleaseQuarantineCommand{}, err
	}
	return ReleaseQuarantineCommand{orderID: orderID, guard: guard.NewConstructorGuard()}, nil
}

func (c ReleaseQuarantineCommand) Validate() error {
	return c.guard.Validate(ErrReleaseQuarantineCommandIsNotConstructed)
}

func (c ReleaseQuarantineCommand) OrderID() kernel.UUID {
	return c.orderID
}

type ReleaseQuarantineCommandHandler struct {
	uowFactory OrderUoWFactory
	logger     *slog.Logger
}

func NewReleaseQuarantineCommandHandler(uowFactory OrderUoWFactory, logger *slog.Logger) ReleaseQuarantineCommandHandler {
	return ReleaseQuarantineCommandHandler{
		uowFactory: uowFactory,
		logger:     logger.With("component", "quarantine"),
	}
}

func (h *ReleaseQuarantineCommandHandler) Handle(ctx context.Context, cmd ReleaseQuarantineCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err := uow.OrderRepository().ReleaseQuarantine(ctx, cmd.OrderID()); err != nil {
		return err
	}
	if err := uow.Commit(ctx); err != nil {
		return err
	}

	h.logger.InfoContext(ctx, "order released from quarantine", "orderId", cmd.OrderID().String())
	return nil
}
