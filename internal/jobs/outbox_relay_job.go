package jobs

import (
	"context"
	"log/slog"

	"orderflow/internal/core/application/usecases/commands"
)

type OutboxRelayHandler interface {
	Handle(ctx context.Context, cmd commands.RelayOutboxCommand) (commands.RelayResult, error)
}

// OutboxRelayJob publishes committed domain events to the broker.
type OutboxRelayJob struct {
	*scheduledJob
}

func NewOutboxRelayJob(handler OutboxRelayHandler, spec string, cmd commands.RelayOutboxCommand, logger *slog.Logger) (*OutboxRelayJob, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	job := &OutboxRelayJob{}
	job.scheduledJob = newScheduledJob("outbox_relay_job", spec, logger, func(ctx context.Context) error {
		result, err := handler.Handle(ctx, cmd)
		if err != nil {
			return err
		}
		if result.Failed > 0 {
			job.logger.WarnContext(ctx, "outbox messages not published",
				"published", result.Published, "failed", result.Failed, "deferred", result.Deferred)
		}
		return nil
	})
	return job, nil
}
