package jobs_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/jobs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAutoApprovalHandler struct{ mock.Mock }

func (m *MockAutoApprovalHandler) Handle(
	ctx context.Context,
	cmd commands.AutoApproveDeliveriesCommand,
) (commands.TickResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(commands.TickResult), args.Error(1)
}

type MockNegotiationExpiryHandler struct{ mock.Mock }

func (m *MockNegotiationExpiryHandler) Handle(
	ctx context.Context,
	cmd commands.ExpireNegotiationsCommand,
) (commands.TickResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(commands.TickResult), args.Error(1)
}

type MockOutboxRelayHandler struct{ mock.Mock }

func (m *MockOutboxRelayHandler) Handle(ctx context.Context, cmd commands.RelayOutboxCommand) (commands.RelayResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(commands.RelayResult), args.Error(1)
}

type handlers struct {
	approval *MockAutoApprovalHandler
	expiry   *MockNegotiationExpiryHandler
	relay    *MockOutboxRelayHandler
}

func newManager(t *testing.T, schedules jobs.Schedules) (*jobs.JobManager, handlers, error) {
	t.Helper()

	h := handlers{
		approval: &MockAutoApprovalHandler{},
		expiry:   &MockNegotiationExpiryHandler{},
		relay:    &MockOutboxRelayHandler{},
	}
	relayCmd, err := commands.NewRelayOutboxCommand(50, 5, time.Second, time.Minute)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager, err := jobs.NewJobManager(schedules, 25, h.approval, h.expiry, h.relay, relayCmd, logger)
	return manager, h, err
}

var everyHour = jobs.Schedules{
	AutoApproval:      "@every 1h",
	NegotiationExpiry: "@every 1h",
	OutboxRelay:       "@every 1h",
}

func Test_JobManagerRunOncePassesBatchSizes(t *testing.T) {
	manager, h, err := newManager(t, everyHour)
	require.NoError(t, err)

	mock.InOrder(
		h.approval.On("Handle", mock.Anything, mock.MatchedBy(func(cmd commands.AutoApproveDeliveriesCommand) bool {
			return cmd.BatchSize() == 25
		})).Return(commands.TickResult{Applied: 2}, nil).Once(),
		h.expiry.On("Handle", mock.Anything, mock.MatchedBy(func(cmd commands.ExpireNegotiationsCommand) bool {
			return cmd.BatchSize() == 25
		})).Return(commands.TickResult{Skipped: 1}, nil).Once(),
		h.relay.On("Handle", mock.Anything, mock.MatchedBy(func(cmd commands.RelayOutboxCommand) bool {
			return cmd.BatchSize() == 50 && cmd.MaxAttempts() == 5
		})).Return(commands.RelayResult{Published: 3}, nil).Once(),
	)

	require.NoError(t, manager.RunOnce(context.Background()))

	h.approval.AssertExpectations(t)
	h.expiry.AssertExpectations(t)
	h.relay.AssertExpectations(t)
}

func Test_JobManagerRunOnceKeepsGoingAfterAFailure(t *testing.T) {
	manager, h, err := newManager(t, everyHour)
	require.NoError(t, err)

	boom := errors.New("database unavailable")
	h.approval.On("Handle", mock.Anything, mock.Anything).Return(commands.TickResult{}, boom).Once()
	h.expiry.On("Handle", mock.Anything, mock.Anything).Return(commands.TickResult{}, nil).Once()
	h.relay.On("Handle", mock.Anything, mock.Anything).Return(commands.RelayResult{}, nil).Once()

	err = manager.RunOnce(context.Background())

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "auto approval")
	h.relay.AssertExpectations(t)
}

func Test_JobManagerRunOnceStopsOnCancelledContext(t *testing.T) {
	manager, h, err := newManager(t, everyHour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, manager.RunOnce(ctx), context.Canceled)
	h.approval.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func Test_JobManagerRejectsInvalidBatchSize(t *testing.T) {
	relayCmd, err := commands.NewRelayOutboxCommand(50, 5, time.Second, time.Minute)
	require.NoError(t, err)

	_, err = jobs.NewJobManager(everyHour, 0, &MockAutoApprovalHandler{}, &MockNegotiationExpiryHandler{},
		&MockOutboxRelayHandler{}, relayCmd, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.Error(t, err)
}

func Test_JobManagerStartAllFailsOnBadSchedule(t *testing.T) {
	schedules := everyHour
	schedules.OutboxRelay = "not a schedule"
	manager, _, err := newManager(t, schedules)
	require.NoError(t, err)

	err = manager.StartAll(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "outbox relay")
}

func Test_JobManagerRunsJobsOnSchedule(t *testing.T) {
	schedules := everyHour
	schedules.OutboxRelay = "* * * * * *"
	manager, h, err := newManager(t, schedules)
	require.NoError(t, err)

	called := make(chan struct{}, 1)
	h.relay.On("Handle", mock.Anything, mock.Anything).Return(commands.RelayResult{}, nil).
		Run(func(mock.Arguments) {
			select {
			case called <- struct{}{}:
			default:
			}
		})

	require.NoError(t, manager.StartAll(context.Background()))
	defer manager.StopAll()

	select {
	case <-called:
	case <-time.After(3 * time.Second):
		t.Fatal("outbox relay did not run")
	}
}
