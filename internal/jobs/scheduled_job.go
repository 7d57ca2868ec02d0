package jobs

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// scheduledJob runs one pass of a handler on a cron schedule. A pass that is
// still running when the next one is due is skipped.
type scheduledJob struct {
	name   string
	spec   string
	cron   *cron.Cron
	logger *slog.Logger
	fn     func(ctx context.Context) error

	cancel context.CancelFunc
}

func newScheduledJob(name, spec string, logger *slog.Logger, fn func(ctx context.Context) error) *scheduledJob {
	return &scheduledJob{
		name:   name,
		spec:   spec,
		cron:   cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger.With("component", name),
		fn:     fn,
	}
}

// Start schedules the job. Passes receive a context derived from ctx that is
// cancelled by Stop.
func (j *scheduledJob) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	if _, err := j.cron.AddFunc(j.spec, func() { j.runOnce(runCtx) }); err != nil {
		cancel()
		return err
	}
	j.cancel = cancel

	j.cron.Start()
	j.logger.InfoContext(ctx, "job started", "schedule", j.spec)
	return nil
}

// Stop cancels the running pass, if any, and waits for it to return.
func (j *scheduledJob) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "job stopped")
}

// RunOnce runs a single pass outside the schedule.
func (j *scheduledJob) RunOnce(ctx context.Context) error {
	return j.fn(ctx)
}

func (j *scheduledJob) runOnce(ctx context.Context) {
	if err := j.fn(ctx); err != nil && ctx.Err() == nil {
		j.logger.ErrorContext(ctx, "job pass failed", "error", err)
	}
}
