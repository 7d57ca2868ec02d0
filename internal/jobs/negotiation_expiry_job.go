package jobs

import (
	"context"
	"log/slog"

	"orderflow/internal/core/application/usecases/commands"
)

type NegotiationExpiryHandler interface {
	Handle(ctx context.Context, cmd commands.ExpireNegotiationsCommand) (commands.TickResult, error)
}

// NegotiationExpiryJob closes negotiations nobody answered before their TTL.
type NegotiationExpiryJob struct {
	*scheduledJob
}

func NewNegotiationExpiryJob(
	handler NegotiationExpiryHandler,
	spec string,
	batchSize int,
	logger *slog.Logger,
) (*NegotiationExpiryJob, error) {
	cmd, err := commands.NewExpireNegotiationsCommand(batchSize)
	if err != nil {
		return nil, err
	}

	job := &NegotiationExpiryJob{}
	job.scheduledJob = newScheduledJob("negotiation_expiry_job", spec, logger, func(ctx context.Context) error {
		result, err := handler.Handle(ctx, cmd)
		if err != nil {
			return err
		}
		if result.Applied > 0 || result.Failed > 0 {
			job.logger.InfoContext(ctx, "negotiations expired",
				"applied", result.Applied, "skipped", result.Skipped, "failed", result.Failed)
		}
		return nil
	})
	return job, nil
}
