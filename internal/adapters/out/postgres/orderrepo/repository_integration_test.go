package orderrepo_test

import (
	"context"
	"testing"
	"time"

	"orderflow/internal/adapters/out/postgres/orderrepo"
	"orderflow/internal/adapters/out/postgres/pgtest"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

type MockAggregateTracker struct {
	mock.Mock
}

func (m *MockAggregateTracker) TrackAggregate(aggregate *order.Order) {
	m.Called(aggregate)
}

var t0 = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

type OrderRepositoryIntegrationTestSuite struct {
	suite.Suite
	container  *postgres.PostgresContainer
	db         *gorm.DB
	tracker    *MockAggregateTracker
	repository *orderrepo.GormOrderRepository
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupSuite() {
	container, db, err := pgtest.Start(context.Background())
	suite.container = container
	suite.Require().NoError(err)
	suite.db = db
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE " + pgtest.Tables).Error)
	suite.tracker = new(MockAggregateTracker)
	suite.tracker.On("TrackAggregate", mock.Anything).Maybe()
	suite.repository = orderrepo.NewGormOrderRepository(suite.db, suite.tracker)
}

func (suite *OrderRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

type participants struct {
	buyer  order.Actor
	seller order.Actor
}

func (suite *OrderRepositoryIntegrationTestSuite) newOrder() (*order.Order, participants) {
	p := participants{
		buyer:  order.Actor{ID: kernel.NewUUID(), Role: order.RoleBuyer},
		seller: order.Actor{ID: kernel.NewUUID(), Role: order.RoleSeller},
	}
	price, err := kernel.NewMoney(15000, "USD")
	suite.Require().NoError(err)
	fee, err := kernel.NewMoney(750, "USD")
	suite.Require().NoError(err)
	pricing, err := order.NewPricing(price, 2, fee)
	suite.Require().NoError(err)
	maxRevision := 2
	terms, err := order.NewTerms(pricing, "Landing page copy", 3, &maxRevision)
	suite.Require().NoError(err)
	req, err := order.NewRequirement(kernel.NewUUID(), "Target audience?", true, false)
	suite.Require().NoError(err)

	o, err := order.NewOrder(kernel.NewUUID(), kernel.NewUUID(), p.buyer.ID, p.seller.ID, terms, []*order.Requirement{req}, t0)
	suite.Require().NoError(err)
	return o, p
}

// deliveredOrder is stored with an answered requirement, a pending delivery
// and an open MODIFY_ORDER negotiation.
func (suite *OrderRepositoryIntegrationTestSuite) deliveredOrder() (*order.Order, participants) {
	o, p := suite.newOrder()
	suite.Require().NoError(o.ConfirmPayment(order.SystemActor(), t0))
	answers := []order.RequirementAnswer{{
		RequirementID: o.Requirements()[0].ID(),
		Answer:        "Early stage founders",
		Files:         []string{"persona.pdf"},
	}}
	suite.Require().NoError(o.SubmitRequirements(p.buyer, answers, t0.Add(time.Hour)))
	_, err := o.SubmitDelivery(p.seller, "first draft", []string{"draft.docx"}, order.DefaultPolicy(), t0.Add(24*time.Hour))
	suite.Require().NoError(err)
	return o, p
}

func (suite *OrderRepositoryIntegrationTestSuite) TestAdd_Get_RoundTrip() {
	ctx := context.Background()
	o, p := suite.deliveredOrder()

	suite.Require().NoError(suite.repository.Add(ctx, o))
	suite.tracker.AssertCalled(suite.T(), "TrackAggregate", o)

	loaded, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)

	suite.True(loaded.ID().IsEqual(o.ID()))
	suite.True(loaded.BuyerID().IsEqual(p.buyer.ID))
	suite.Equal(order.Delivered, loaded.Status())
	suite.Equal(int64(0), loaded.Version())
	suite.True(loaded.Pricing().Total().IsEqual(o.Pricing().Total()))
	suite.Equal("Landing page copy", loaded.Terms().Scope())
	suite.Require().NotNil(loaded.Terms().MaxRevision())
	suite.Equal(2, *loaded.Terms().MaxRevision())
	suite.Require().NotNil(loaded.DueDate())
	suite.True(loaded.DueDate().Equal(*o.DueDate()))

	suite.Require().Len(loaded.Requirements(), 1)
	suite.True(loaded.Requirements()[0].Answered())
	suite.Equal([]string{"persona.pdf"}, loaded.Requirements()[0].Files())

	suite.Require().Len(loaded.Deliveries(), 1)
	d := loaded.LatestDelivery()
	suite.Equal(order.ApprovalPending, d.Approval())
	suite.True(d.AutoApproveAt().Equal(t0.Add(24*time.Hour + order.DefaultDeliveryGracePeriod)))
	suite.Equal([]string{"draft.docx"}, d.Files())

	suite.Len(loaded.Audit(), len(o.Audit()))
	suite.NoError(loaded.CheckIntegrity())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdate_PersistsNegotiationPayload() {
	ctx := context.Background()
	o, p := suite.newOrder()
	suite.Require().NoError(o.ConfirmPayment(order.SystemActor(), t0))
	suite.Require().NoError(suite.repository.Add(ctx, o))

	newPrice, err := kernel.NewMoney(18000, "USD")
	suite.Require().NoError(err)
	scope := "Landing page copy and two emails"
	payload, err := order.NewModifyOrderPayload(&newPrice, &scope)
	suite.Require().NoError(err)
	n, err := o.OpenNegotiation(p.seller, payload, "bigger scope", order.DefaultPolicy(), t0.Add(time.Hour))
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repository.Update(ctx, o))
	suite.Equal(int64(1), o.Version())

	loaded, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	suite.Equal(int64(1), loaded.Version())
	current := loaded.CurrentNegotiation()
	suite.Require().NotNil(current)
	suite.True(current.ID().IsEqual(n.ID()))
	suite.Equal(order.RoleSeller, current.RequesterRole())
	suite.True(current.ExpiresAt().Equal(t0.Add(time.Hour + order.DefaultNegotiationTTL)))

	restored, ok := current.Payload().(order.ModifyOrderPayload)
	suite.Require().True(ok)
	suite.Require().NotNil(restored.NewPrice())
	suite.True(restored.NewPrice().IsEqual(newPrice))
	suite.Require().NotNil(restored.NewScope())
	suite.Equal(scope, *restored.NewScope())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdate_StaleVersion_ReturnsConflict() {
	ctx := context.Background()
	o, p := suite.deliveredOrder()
	suite.Require().NoError(suite.repository.Add(ctx, o))

	first, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	second, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)

	suite.Require().NoError(first.RespondToDelivery(p.buyer, kernel.UUID{}, order.DecisionApproveDelivery, "", t0.Add(48*time.Hour)))
	suite.Require().NoError(suite.repository.Update(ctx, first))

	suite.Require().NoError(second.AutoApproveDelivery(order.SystemActor(), t0.Add(24*time.Hour+order.DefaultDeliveryGracePeriod)))
	err = suite.repository.Update(ctx, second)
	suite.Require().ErrorIs(err, errs.ErrConcurrencyConflict)
	suite.Equal(int64(0), second.Version())

	stored, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	suite.Equal(order.Completed, stored.Status())
	suite.Equal(int64(1), stored.Version())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGet_NonExistentOrder_ReturnsNotFound() {
	_, err := suite.repository.Get(context.Background(), kernel.NewUUID())
	suite.Require().ErrorIs(err, errs.ErrOrderNotFound)
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestQuarantine() {
	ctx := context.Background()
	o, p := suite.deliveredOrder()
	suite.Require().NoError(suite.repository.Add(ctx, o))

	suite.Require().NoError(suite.repository.Quarantine(ctx, o.ID(), "delivered without delivery", t0))

	_, err := suite.repository.Get(ctx, o.ID())
	suite.Require().ErrorIs(err, errs.ErrCorruptAggregate)
	suite.Require().ErrorIs(err, ports.ErrQuarantined)

	suite.Require().NoError(o.RespondToDelivery(p.buyer, kernel.UUID{}, order.DecisionApproveDelivery, "", t0.Add(48*time.Hour)))
	err = suite.repository.Update(ctx, o)
	suite.Require().ErrorIs(err, ports.ErrQuarantined)

	due, err := suite.repository.GetDueForAutoApproval(ctx, t0.Add(365*24*time.Hour), 10)
	suite.Require().NoError(err)
	suite.Empty(due)

	suite.Require().NoError(suite.repository.ReleaseQuarantine(ctx, o.ID()))
	_, err = suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)

	err = suite.repository.Quarantine(ctx, kernel.NewUUID(), "missing", t0)
	suite.Require().ErrorIs(err, errs.ErrOrderNotFound)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGet_CorruptRow_ReturnsCorruptAggregate() {
	ctx := context.Background()
	o, _ := suite.deliveredOrder()
	suite.Require().NoError(suite.repository.Add(ctx, o))

	suite.Require().NoError(suite.db.Exec("DELETE FROM order_deliveries WHERE order_id = ?", o.ID().Bytes()).Error)

	_, err := suite.repository.Get(ctx, o.ID())
	suite.Require().ErrorIs(err, errs.ErrCorruptAggregate)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestDeadlineQueries() {
	ctx := context.Background()

	due, _ := suite.deliveredOrder()
	suite.Require().NoError(suite.repository.Add(ctx, due))

	notYet, p := suite.newOrder()
	suite.Require().NoError(notYet.ConfirmPayment(order.SystemActor(), t0))
	answers := []order.RequirementAnswer{{RequirementID: notYet.Requirements()[0].ID(), Answer: "Students"}}
	suite.Require().NoError(notYet.SubmitRequirements(p.buyer, answers, t0))
	_, err := notYet.SubmitDelivery(p.seller, "draft", nil, order.DefaultPolicy(), t0.Add(96*time.Hour))
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repository.Add(ctx, notYet))

	negotiating, p2 := suite.newOrder()
	suite.Require().NoError(negotiating.ConfirmPayment(order.SystemActor(), t0))
	extend, err := order.NewExtendDeliveryPayload(2)
	suite.Require().NoError(err)
	answers = []order.RequirementAnswer{{RequirementID: negotiating.Requirements()[0].ID(), Answer: "Parents"}}
	suite.Require().NoError(negotiating.SubmitRequirements(p2.buyer, answers, t0))
	_, err = negotiating.OpenNegotiation(p2.seller, extend, "", order.DefaultPolicy(), t0)
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repository.Add(ctx, negotiating))

	now := t0.Add(24*time.Hour + order.DefaultDeliveryGracePeriod)

	ids, err := suite.repository.GetDueForAutoApproval(ctx, now, 10)
	suite.Require().NoError(err)
	suite.Require().Len(ids, 1)
	suite.True(ids[0].IsEqual(due.ID()))

	ids, err = suite.repository.GetWithStaleNegotiations(ctx, now, 10)
	suite.Require().NoError(err)
	suite.Empty(ids)

	ids, err = suite.repository.GetWithStaleNegotiations(ctx, t0.Add(order.DefaultNegotiationTTL), 10)
	suite.Require().NoError(err)
	suite.Require().Len(ids, 1)
	suite.True(ids[0].IsEqual(negotiating.ID()))
}

func TestOrderRepositoryIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(OrderRepositoryIntegrationTestSuite))
}
