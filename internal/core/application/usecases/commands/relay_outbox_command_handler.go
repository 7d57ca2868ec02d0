package commands

import (
	"context"
	"log/slog"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/clock"
)

// RelayOutboxCommandHandler publishes committed domain events to the
// message broker. Messages are claimed inside a transaction so that relays
// running in several processes never publish the same batch twice.
type RelayOutboxCommandHandler struct {
	uowFactory OutboxUoWFactory
	publisher  ports.EventPublisher
	clock      clock.Clock
	metrics    ports.Metrics
	logger     *slog.Logger
}

func NewRelayOutboxCommandHandler(
	uowFactory OutboxUoWFactory,
	publisher ports.EventPublisher,
	clk clock.Clock,
	metrics ports.Metrics,
	logger *slog.Logger,
) RelayOutboxCommandHandler {
	return RelayOutboxCommandHandler{
		uowFactory: uowFactory,
		publisher:  publisher,
		clock:      clk,
		metrics:    metrics,
		logger:     logger.With("component", "outbox-relay"),
	}
}

func (h *RelayOutboxCommandHandler) Handle(ctx context.Context, cmd RelayOutboxCommand) (RelayResult, error) {
	if err := cmd.Validate(); err != nil {
		return RelayResult{}, err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return RelayResult{}, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	outbox := uow.OutboxRepository()
	now := h.clock.Now()
	messages, err := outbox.GetUnpublished(ctx, now, cmd.BatchSize())
	if err != nil {
		return RelayResult{}, err
	}

	var result RelayResult
	blocked := make(map[kernel.UUID]struct{})
	for _, msg := range messages {
		if _, ok := blocked[msg.AggregateID]; ok {
			result.Deferred++
			continue
		}
		if pubErr := h.publisher.Publish(ctx, msg); pubErr != nil {
			attempts := msg.Attempts + 1
			giveUp := attempts >= cmd.MaxAttempts()
			if err = outbox.MarkFailed(ctx, msg.ID, h.clock.Now(), pubErr.Error(), now.Add(cmd.Backoff(attempts)), giveUp); err != nil {
				return result, err
			}
			result.Failed++
			// Later events of this order wait so consumers never see them
			// ahead of the failed one.
			blocked[msg.AggregateID] = struct{}{}

			log := h.logger.WarnContext
			if giveUp {
				log = h.logger.ErrorContext
			}
			log(ctx, "failed to publish event",
				"messageId", msg.ID.String(), "event", msg.EventName, "attempts", attempts, "parked", giveUp, "error", pubErr)
			continue
		}

		if err = outbox.MarkPublished(ctx, msg.ID, h.clock.Now()); err != nil {
			return result, err
		}
		result.Published++
	}

	if err = uow.Commit(ctx); err != nil {
		return RelayResult{}, err
	}

	h.metrics.OutboxRelayed(result.Published, result.Failed)
	return result, nil
}
