package jobs

import (
	"context"
	"log/slog"

	"orderflow/internal/core/application/usecases/commands"
)

type AutoApprovalHandler interface {
	Handle(ctx context.Context, cmd commands.AutoApproveDeliveriesCommand) (commands.TickResult, error)
}

// AutoApprovalJob approves deliveries the buyer left unanswered past the
// grace period.
type AutoApprovalJob struct {
	*scheduledJob
}

func NewAutoApprovalJob(handler AutoApprovalHandler, spec string, batchSize int, logger *slog.Logger) (*AutoApprovalJob, error) {
	cmd, err := commands.NewAutoApproveDeliveriesCommand(batchSize)
	if err != nil {
		return nil, err
	}

	job := &AutoApprovalJob{}
	job.scheduledJob = newScheduledJob("auto_approval_job", spec, logger, func(ctx context.Context) error {
		result, err := handler.Handle(ctx, cmd)
		if err != nil {
			return err
		}
		if result.Applied > 0 || result.Failed > 0 {
			job.logger.InfoContext(ctx, "deliveries auto-approved",
				"applied", result.Applied, "skipped", result.Skipped, "failed", result.Failed)
		}
		return nil
	})
	return job, nil
}
