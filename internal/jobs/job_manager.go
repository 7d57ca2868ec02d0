package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"orderflow/internal/core/application/usecases/commands"
)

// Schedules holds the cron expression of every job. Expressions take a
// leading seconds field, e.g. "*/30 * * * * *", or a descriptor like
// "@every 1m".
type Schedules struct {
	AutoApproval      string
	NegotiationExpiry string
	OutboxRelay       string
}

type job interface {
	Start(ctx context.Context) error
	Stop()
	RunOnce(ctx context.Context) error
}

type namedJob struct {
	name string
	job  job
}

// JobManager coordinates the scheduled jobs of the workflow engine.
type JobManager struct {
	jobs []namedJob
}

func NewJobManager(
	schedules Schedules,
	batchSize int,
	autoApproval AutoApprovalHandler,
	negotiationExpiry NegotiationExpiryHandler,
	relay OutboxRelayHandler,
	relayCmd commands.RelayOutboxCommand,
	logger *slog.Logger,
) (*JobManager, error) {
	approvalJob, err := NewAutoApprovalJob(autoApproval, schedules.AutoApproval, batchSize, logger)
	if err != nil {
		return nil, fmt.Errorf("auto approval job: %w", err)
	}
	expiryJob, err := NewNegotiationExpiryJob(negotiationExpiry, schedules.NegotiationExpiry, batchSize, logger)
	if err != nil {
		return nil, fmt.Errorf("negotiation expiry job: %w", err)
	}
	relayJob, err := NewOutboxRelayJob(relay, schedules.OutboxRelay, relayCmd, logger)
	if err != nil {
		return nil, fmt.Errorf("outbox relay job: %w", err)
	}

	return &JobManager{jobs: []namedJob{
		{name: "auto approval", job: approvalJob},
		{name: "negotiation expiry", job: expiryJob},
		{name: "outbox relay", job: relayJob},
	}}, nil
}

// StartAll starts every job. If one fails to start, the jobs already
// started are stopped again.
func (jm *JobManager) StartAll(ctx context.Context) error {
	for i, j := range jm.jobs {
		if err := j.job.Start(ctx); err != nil {
			for _, started := range jm.jobs[:i] {
				started.job.Stop()
			}
			return fmt.Errorf("failed to start %s job: %w", j.name, err)
		}
	}
	return nil
}

// StopAll stops every job and waits for running passes to return.
func (jm *JobManager) StopAll() {
	for _, j := range jm.jobs {
		j.job.Stop()
	}
}

// RunOnce runs one pass of every job, in order, outside the schedule. The
// relay runs last so events of orders handled by the other passes go out
// in the same call.
func (jm *JobManager) RunOnce(ctx context.Context) error {
	var errs []error
	for _, j := range jm.jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := j.job.RunOnce(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", j.name, err))
		}
	}
	return errors.Join(errs...)
}
