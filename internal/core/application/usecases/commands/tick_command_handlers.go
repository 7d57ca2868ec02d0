package commands

import (
	"context"
	"log/slog"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/clock"
)

// Executor runs a workflow command. ExecuteCommandHandler implements it.
type Executor interface {
	Handle(ctx context.Context, cmd ExecuteCommand) (ExecuteResult, error)
}

// AutoApproveDeliveriesCommandHandler finds DELIVERED orders past their
// auto-approval deadline and approves them through the executor, so that a
// buyer approving at the same moment is serialized with the tick. Orders
// already approved come back as ALREADY_RESOLVED and are skipped.
//
// Example:
//
//	handler := NewAutoApproveDeliveriesCommandHandler(uowFactory, executor, clock.System{}, metrics, logger)
//	cmd, _ := NewAutoApproveDeliveriesCommand(100)
//	result, err := handler.Handle(ctx, cmd)
type AutoApproveDeliveriesCommandHandler struct {
	tick tickRunner
}

func NewAutoApproveDeliveriesCommandHandler(
	uowFactory OrderUoWFactory,
	executor Executor,
	clk clock.Clock,
	metrics ports.Metrics,
	logger *slog.Logger,
) AutoApproveDeliveriesCommandHandler {
	return AutoApproveDeliveriesCommandHandler{tick: tickRunner{
		name:       "delivery-auto-approval",
		uowFactory: uowFactory,
		executor:   executor,
		clock:      clk,
		metrics:    metrics,
		logger:     logger.With("component", "delivery-auto-approval"),
		find:       ports.OrderRepository.GetDueForAutoApproval,
		instr:      services.AutoApproveDelivery{},
	}}
}

func (h *AutoApproveDeliveriesCommandHandler) Handle(ctx context.Context, cmd AutoApproveDeliveriesCommand) (TickResult, error) {
	if err := cmd.Validate(); err != nil {
		return TickResult{}, err
	}
	return h.tick.run(ctx, cmd.BatchSize())
}

// ExpireNegotiationsCommandHandler expires negotiations past their TTL
// through the executor.
type ExpireNegotiationsCommandHandler struct {
	tick tickRunner
}

func NewExpireNegotiationsCommandHandler(
	uowFactory OrderUoWFactory,
	executor Executor,
	clk clock.Clock,
	metrics ports.Metrics,
	logger *slog.Logger,
) ExpireNegotiationsCommandHandler {
	return ExpireNegotiationsCommandHandler{tick: tickRunner{
		name:       "negotiation-expiry",
		uowFactory: uowFactory,
		executor:   executor,
		clock:      clk,
		metrics:    metrics,
		logger:     logger.With("component", "negotiation-expiry"),
		find:       ports.OrderRepository.GetWithStaleNegotiations,
		instr:      services.ExpireNegotiation{},
	}}
}

func (h *ExpireNegotiationsCommandHandler) Handle(ctx context.Context, cmd ExpireNegotiationsCommand) (TickResult, error) {
	if err := cmd.Validate(); err != nil {
		return TickResult{}, err
	}
	return h.tick.run(ctx, cmd.BatchSize())
}

type tickRunner struct {
	name       string
	uowFactory OrderUoWFactory
	executor   Executor
	clock      clock.Clock
	metrics    ports.Metrics
	logger     *slog.Logger
	find       func(ports.OrderRepository, context.Context, time.Time, int) ([]kernel.UUID, error)
	instr      services.Instruction
}

// run selects due orders from the persisted deadlines and executes the
// instruction for each one. A failing order is logged and does not stop
// the pass.
func (t tickRunner) run(ctx context.Context, batchSize int) (TickResult, error) {
	ids, err := t.due(ctx, batchSize)
	if err != nil {
		return TickResult{}, err
	}

	var result TickResult
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		cmd, err := NewExecuteCommand(id, order.SystemActor(), t.instr)
		if err != nil {
			return result, err
		}

		res, err := t.executor.Handle(ctx, cmd)
		switch {
		case err != nil:
			result.Failed++
			t.logger.ErrorContext(ctx, "scheduled action failed",
				"orderId", id.String(), "action", t.instr.Action().String(), "error", err)
		case res.Outcome == OutcomeApplied:
			result.Applied++
		default:
			result.Skipped++
		}
	}

	t.metrics.TickProcessed(t.name, result.Applied, result.Failed)
	if len(ids) > 0 {
		t.logger.InfoContext(ctx, "tick finished",
			"due", len(ids), "applied", result.Applied, "skipped", result.Skipped, "failed", result.Failed)
	}
	return result, nil
}

func (t tickRunner) due(ctx context.Context, batchSize int) ([]kernel.UUID, error) {
	uow := t.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	return t.find(uow.OrderRepository(), ctx, t.clock.Now(), batchSize)
}
