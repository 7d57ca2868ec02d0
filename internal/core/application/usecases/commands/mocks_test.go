package commands_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderRepository struct{ mock.Mock }

func (m *MockOrderRepository) Add(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) GetDueForAutoApproval(ctx context.Context, now time.Time, limit int) ([]kernel.UUID, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]kernel.UUID), args.Error(1)
}

func (m *MockOrderRepository) GetWithStaleNegotiations(ctx context.Context, now time.Time, limit int) ([]kernel.UUID, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]kernel.UUID), args.Error(1)
}

func (m *MockOrderRepository) Quarantine(ctx context.Context, id kernel.UUID, reason string, at time.Time) error {
	args := m.Called(ctx, id, reason, at)
	return args.Error(0)
}

func (m *MockOrderRepository) ReleaseQuarantine(ctx context.Context, id kernel.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockOrderUoW struct{ mock.Mock }

func (m *MockOrderUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) OrderRepository() ports.OrderRepository {
	args := m.Called()
	return args.Get(0).(ports.OrderRepository)
}

type MockOrderUoWFactory struct{ mock.Mock }

func (m *MockOrderUoWFactory) Create() commands.OrderUoW {
	args := m.Called()
	return args.Get(0).(commands.OrderUoW)
}

type MockOutboxRepository struct{ mock.Mock }

func (m *MockOutboxRepository) Add(ctx context.Context, events ...order.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, now time.Time, limit int) ([]ports.OutboxMessage, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ports.OutboxMessage), args.Error(1)
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id kernel.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockOutboxRepository) MarkFailed(
	ctx context.Context,
	id kernel.UUID,
	at time.Time,
	cause string,
	nextAttemptAt time.Time,
	giveUp bool,
) error {
	args := m.Called(ctx, id, at, cause, nextAttemptAt, giveUp)
	return args.Error(0)
}

type MockOutboxUoW struct{ mock.Mock }

func (m *MockOutboxUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOutboxUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOutboxUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOutboxUoW) OutboxRepository() ports.OutboxRepository {
	args := m.Called()
	return args.Get(0).(ports.OutboxRepository)
}

type MockOutboxUoWFactory struct{ mock.Mock }

func (m *MockOutboxUoWFactory) Create() commands.OutboxUoW {
	args := m.Called()
	return args.Get(0).(commands.OutboxUoW)
}

type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) Publish(ctx context.Context, msg ports.OutboxMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	return m.Called().Error(0)
}

type MockPaymentAuthorizer struct{ mock.Mock }

func (m *MockPaymentAuthorizer) AuthorizeAdjustment(ctx context.Context, orderID, buyerID kernel.UUID, newTotal kernel.Money) error {
	args := m.Called(ctx, orderID, buyerID, newTotal)
	return args.Error(0)
}

type MockExecutor struct{ mock.Mock }

func (m *MockExecutor) Handle(ctx context.Context, cmd commands.ExecuteCommand) (commands.ExecuteResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(commands.ExecuteResult), args.Error(1)
}

// nopMetrics discards measurements.
type nopMetrics struct{}

func (nopMetrics) ActionExecuted(order.Action, string) {}
func (nopMetrics) ConcurrencyRetried(order.Action)     {}
func (nopMetrics) AggregateQuarantined()               {}
func (nopMetrics) TickProcessed(string, int, int)      {}
func (nopMetrics) OutboxRelayed(int, int)              {}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

var t0 = time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)

type parties struct {
	buyer  order.Actor
	seller order.Actor
}

func newParties() parties {
	return parties{
		buyer:  order.Actor{ID: kernel.NewUUID(), Role: order.RoleBuyer},
		seller: order.Actor{ID: kernel.NewUUID(), Role: order.RoleSeller},
	}
}

func usd(t *testing.T, cents int64) kernel.Money {
	t.Helper()
	m, err := kernel.NewMoney(cents, "USD")
	require.NoError(t, err)
	return m
}

func newTerms(t *testing.T) order.Terms {
	t.Helper()
	pricing, err := order.NewPricing(usd(t, 20000), 1, usd(t, 1000))
	require.NoError(t, err)
	terms, err := order.NewTerms(pricing, "Mobile app icon set", 4, nil)
	require.NoError(t, err)
	return terms
}

// pendingOrder returns a new order with no requirements.
func pendingOrder(t *testing.T, p parties) *order.Order {
	t.Helper()
	o, err := order.NewOrder(kernel.NewUUID(), kernel.NewUUID(), p.buyer.ID, p.seller.ID, newTerms(t), nil, t0)
	require.NoError(t, err)
	return o
}

// deliveredOrder returns an order with one pending delivery made at t0.
func deliveredOrder(t *testing.T, p parties) *order.Order {
	t.Helper()
	o := inProgressOrder(t, p)
	_, err := o.SubmitDelivery(p.seller, "final files", nil, order.DefaultPolicy(), t0)
	require.NoError(t, err)
	o.ClearDomainEvents()
	return o
}

func inProgressOrder(t *testing.T, p parties) *order.Order {
	t.Helper()
	o := pendingOrder(t, p)
	require.NoError(t, o.ConfirmPayment(order.SystemActor(), t0))
	require.NoError(t, o.SubmitRequirements(p.buyer, nil, t0))
	o.ClearDomainEvents()
	return o
}
