package commands_test

import (
	"errors"
	"testing"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/clock"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCreateOrderCommand(t *testing.T) commands.CreateOrderCommand {
	t.Helper()
	cmd, err := commands.NewCreateOrderCommand(kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(),
		newTerms(t), []commands.RequirementSpec{{Question: "Brand colors?", Required: true}})
	require.NoError(t, err)
	return cmd
}

func TestCreateOrderCommandHandler_Handle_Success(t *testing.T) {
	ctx := t.Context()
	cmd := newCreateOrderCommand(t)

	created := mock.MatchedBy(func(o *order.Order) bool {
		return o.ID().IsEqual(cmd.OrderID()) &&
			o.Status() == order.Pending &&
			o.DateOrdered().Equal(t0) &&
			len(o.Requirements()) == 1
	})

	repo := new(MockOrderRepository)
	uow := new(MockOrderUoW)
	mock.InOrder(
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Add", ctx, created).Return(nil).Once(),
		uow.On("Commit", ctx).Return(nil).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)

	factory := new(MockOrderUoWFactory)
	factory.On("Create").Return(uow).Once()

	h := commands.NewCreateOrderCommandHandler(factory, clock.NewFixed(t0))
	err := h.Handle(ctx, cmd)
	require.NoError(t, err)
	repo.AssertExpectations(t)
	uow.AssertExpectations(t)
	factory.AssertExpectations(t)
}

func TestCreateOrderCommandHandler_Handle_ValidationError(t *testing.T) {
	ctx := t.Context()
	cmd := commands.CreateOrderCommand{}
	factory := new(MockOrderUoWFactory)
	h := commands.NewCreateOrderCommandHandler(factory, clock.NewFixed(t0))
	err := h.Handle(ctx, cmd)
	require.ErrorIs(t, err, commands.ErrCreateOrderCommandIsNotConstructed)
	factory.AssertNotCalled(t, "Create")
}

func TestCreateOrderCommandHandler_Handle_StorageFailures(t *testing.T) {
	storageDown := errors.New("connection reset by peer")

	testCases := []struct {
		name     string
		failAt   string
		commits  bool
		reachAdd bool
	}{
		{name: "begin", failAt: "Begin"},
		{name: "add", failAt: "Add", reachAdd: true},
		{name: "commit", failAt: "Commit", reachAdd: true, commits: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := t.Context()
			repo := new(MockOrderRepository)
			uow := new(MockOrderUoW)
			factory := new(MockOrderUoWFactory)
			factory.On("Create").Return(uow).Once()

			errAt := func(step string) error {
				if step == tc.failAt {
					return storageDown
				}
				return nil
			}
			uow.On("Begin", ctx).Return(errAt("Begin")).Once()
			if tc.reachAdd {
				uow.On("OrderRepository").Return(repo).Once()
				repo.On("Add", ctx, mock.AnythingOfType("*order.Order")).Return(errAt("Add")).Once()
				uow.On("Rollback", ctx).Return(nil).Once()
			}
			if tc.commits {
				uow.On("Commit", ctx).Return(errAt("Commit")).Once()
			}

			h := commands.NewCreateOrderCommandHandler(factory, clock.NewFixed(t0))
			err := h.Handle(ctx, newCreateOrderCommand(t))

			require.ErrorIs(t, err, storageDown)
			uow.AssertExpectations(t)
			repo.AssertExpectations(t)
			if !tc.commits {
				uow.AssertNotCalled(t, "Commit", mock.Anything)
			}
		})
	}
}

func TestReleaseQuarantineCommandHandler_Handle(t *testing.T) {
	ctx := t.Context()
	id := kernel.NewUUID()
	cmd, err := commands.NewReleaseQuarantineCommand(id)
	require.NoError(t, err)

	repo := new(MockOrderRepository)
	uow := new(MockOrderUoW)
	factory := new(MockOrderUoWFactory)
	mock.InOrder(
		factory.On("Create").Return(uow).Once(),
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("ReleaseQuarantine", ctx, id).Return(nil).Once(),
		uow.On("Commit", ctx).Return(nil).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)

	h := commands.NewReleaseQuarantineCommandHandler(factory, discardLogger())
	require.NoError(t, h.Handle(ctx, cmd))
	repo.AssertExpectations(t)
	uow.AssertExpectations(t)

	_, err = commands.NewReleaseQuarantineCommand(kernel.UUID{})
	require.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)
}
