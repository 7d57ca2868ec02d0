package commands

import (
	"context"
	"errors"
	"log/slog"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/clock"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/keymutex"
)

const maxExecuteAttempts = 2

// ExecuteCommandHandler is the single entry point of the workflow. For one
// command it:
//   - serializes work on the order with an in-process lock
//   - loads the aggregate and checks that the actor takes part in the order
//   - lets OrderWorkflow apply the instruction
//   - checks integrity and writes the order back with a version check,
//     retrying once when another process won the race
//
// ALREADY_RESOLVED and NOT_DUE are not failures: they come back as an
// Outcome and nothing is written. A corrupt aggregate is quarantined.
type ExecuteCommandHandler struct {
	uowFactory OrderUoWFactory
	workflow   services.OrderWorkflow
	locks      *keymutex.KeyMutex
	clock      clock.Clock
	payments   ports.PaymentAuthorizer
	metrics    ports.Metrics
	logger     *slog.Logger
}

func NewExecuteCommandHandler(
	uowFactory OrderUoWFactory,
	workflow services.OrderWorkflow,
	locks *keymutex.KeyMutex,
	clk clock.Clock,
	payments ports.PaymentAuthorizer,
	metrics ports.Metrics,
	logger *slog.Logger,
) *ExecuteCommandHandler {
	return &ExecuteCommandHandler{
		uowFactory: uowFactory,
		workflow:   workflow,
		locks:      locks,
		clock:      clk,
		payments:   payments,
		metrics:    metrics,
		logger:     logger.With("component", "execute-command-handler"),
	}
}

// paymentApproval records a price increase the payment service accepted
// before the lock was taken.
type paymentApproval struct {
	negotiationID kernel.UUID
	total         kernel.Money
}

func (h *ExecuteCommandHandler) Handle(ctx context.Context, cmd ExecuteCommand) (ExecuteResult, error) {
	if err := cmd.Validate(); err != nil {
		return ExecuteResult{}, err
	}

	approval, err := h.authorizePayment(ctx, cmd)
	if err != nil {
		h.observe(cmd, ExecuteResult{}, err)
		return ExecuteResult{}, err
	}

	unlock, err := h.locks.Lock(ctx, cmd.OrderID().String())
	if err != nil {
		return ExecuteResult{}, err
	}
	defer unlock()

	var result ExecuteResult
	for attempt := 1; ; attempt++ {
		result, err = h.execute(ctx, cmd, approval)
		if !errors.Is(err, errs.ErrConcurrencyConflict) || attempt == maxExecuteAttempts {
			break
		}
		h.metrics.ConcurrencyRetried(cmd.Action())
		h.logger.WarnContext(ctx, "order was modified concurrently, retrying",
			"orderId", cmd.OrderID().String(), "action", cmd.Action().String(), "attempt", attempt)
	}

	h.observe(cmd, result, err)
	return result, err
}

func (h *ExecuteCommandHandler) execute(
	ctx context.Context,
	cmd ExecuteCommand,
	approval *paymentApproval,
) (ExecuteResult, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return ExecuteResult{}, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.OrderRepository()
	o, err := repo.Get(ctx, cmd.OrderID())
	if err != nil {
		if errors.Is(err, errs.ErrCorruptAggregate) && !errors.Is(err, ports.ErrQuarantined) {
			h.quarantine(ctx, cmd.OrderID(), err)
		}
		return ExecuteResult{}, err
	}

	if err = services.AuthorizeParticipant(o, cmd.Actor()); err != nil {
		return ExecuteResult{}, err
	}
	if err = checkPaymentApproval(o, cmd, approval); err != nil {
		return ExecuteResult{}, err
	}

	if err = h.workflow.Apply(o, cmd.Actor(), cmd.Instruction(), h.clock.Now()); err != nil {
		switch {
		case errors.Is(err, errs.ErrAlreadyResolved):
			return ExecuteResult{Outcome: OutcomeAlreadyResolved, Order: o.Snapshot()}, nil
		case errors.Is(err, errs.ErrNotDue):
			return ExecuteResult{Outcome: OutcomeNotDue, Order: o.Snapshot()}, nil
		}
		return ExecuteResult{}, err
	}

	if err = o.CheckIntegrity(); err != nil {
		h.quarantine(ctx, o.ID(), err)
		return ExecuteResult{}, err
	}

	events := o.DomainEvents()
	if err = repo.Update(ctx, o); err != nil {
		return ExecuteResult{}, err
	}
	if err = uow.Commit(ctx); err != nil {
		return ExecuteResult{}, err
	}
	o.ClearDomainEvents()

	return ExecuteResult{Outcome: OutcomeApplied, Order: o.Snapshot(), Events: events}, nil
}

// authorizePayment asks the payment service about a price increase before
// the order lock is taken. The order is read without the lock; execute
// checks the answer still applies.
func (h *ExecuteCommandHandler) authorizePayment(ctx context.Context, cmd ExecuteCommand) (*paymentApproval, error) {
	in, ok := cmd.Instruction().(services.RespondToNegotiation)
	if !ok || in.Decision != order.DecisionApprove {
		return nil, nil
	}

	o, err := h.read(ctx, cmd.OrderID())
	if err != nil {
		return nil, nil //nolint:nilerr // the locked attempt reports it
	}
	if services.AuthorizeParticipant(o, cmd.Actor()) != nil {
		return nil, nil
	}

	n := pendingNegotiation(o, in.NegotiationID)
	if n == nil || n.RequesterRole().Counterparty() != cmd.Actor().Role {
		return nil, nil
	}
	increase, total, err := priceIncrease(o, n)
	if err != nil || !increase {
		return nil, err
	}

	if err = h.payments.AuthorizeAdjustment(ctx, o.ID(), o.BuyerID(), total); err != nil {
		return nil, errs.NewWorkflowErrorWithCause(errs.CodePaymentNotAuthorized,
			"payment service refused the price increase", err)
	}
	return &paymentApproval{negotiationID: n.ID(), total: total}, nil
}

func (h *ExecuteCommandHandler) read(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	return uow.OrderRepository().Get(ctx, id)
}

func (h *ExecuteCommandHandler) quarantine(ctx context.Context, id kernel.UUID, cause error) {
	h.logger.ErrorContext(ctx, "order aggregate is corrupt, quarantining", "orderId", id.String(), "error", cause)
	h.metrics.AggregateQuarantined()

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		h.logger.ErrorContext(ctx, "failed to quarantine order", "orderId", id.String(), "error", err)
		return
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err := uow.OrderRepository().Quarantine(ctx, id, cause.Error(), h.clock.Now()); err != nil {
		h.logger.ErrorContext(ctx, "failed to quarantine order", "orderId", id.String(), "error", err)
		return
	}
	if err := uow.Commit(ctx); err != nil {
		h.logger.ErrorContext(ctx, "failed to quarantine order", "orderId", id.String(), "error", err)
	}
}

func (h *ExecuteCommandHandler) observe(cmd ExecuteCommand, result ExecuteResult, err error) {
	outcome := string(result.Outcome)
	if err != nil {
		outcome = "ERROR"
		if code, ok := errs.CodeOf(err); ok {
			outcome = string(code)
		}
	}
	h.metrics.ActionExecuted(cmd.Action(), outcome)
}

// checkPaymentApproval makes sure an approval that raises the price was
// accepted by the payment service for this very negotiation and total.
func checkPaymentApproval(o *order.Order, cmd ExecuteCommand, approval *paymentApproval) error {
	in, ok := cmd.Instruction().(services.RespondToNegotiation)
	if !ok || in.Decision != order.DecisionApprove {
		return nil
	}
	n := pendingNegotiation(o, in.NegotiationID)
	if n == nil {
		return nil
	}
	increase, total, err := priceIncrease(o, n)
	if err != nil || !increase {
		return err
	}
	if approval == nil || !approval.negotiationID.IsEqual(n.ID()) || !approval.total.IsEqual(total) {
		return errs.Workflowf(errs.CodePaymentNotAuthorized,
			"price increase of negotiation %s to %s was not authorized", n.ID(), total)
	}
	return nil
}

func pendingNegotiation(o *order.Order, id kernel.UUID) *order.Negotiation {
	for _, n := range o.Negotiations() {
		if n.ID().IsEqual(id) && n.IsPending() {
			return n
		}
	}
	return nil
}

func priceIncrease(o *order.Order, n *order.Negotiation) (bool, kernel.Money, error) {
	p, ok := n.Payload().(order.ModifyOrderPayload)
	if !ok {
		return false, kernel.Money{}, nil
	}
	return p.PriceIncrease(o.Pricing())
}
