package queries_test

import (
	"context"
	"testing"
	"time"

	"orderflow/internal/adapters/out/postgres"
	"orderflow/internal/adapters/out/postgres/pgtest"
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	tc_postgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

func TestNewListOrdersQuery(t *testing.T) {
	buyer := order.Actor{ID: kernel.NewUUID(), Role: order.RoleBuyer}

	_, err := queries.NewListOrdersQuery(buyer, nil, 0)
	require.NoError(t, err)

	_, err = queries.NewListOrdersQuery(buyer, nil, queries.MaxListLimit+1)
	require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)

	_, err = queries.NewListOrdersQuery(buyer, []order.Status{order.Unknown}, 10)
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)

	_, err = queries.NewListOrdersQuery(order.SystemActor(), nil, 10)
	require.ErrorIs(t, err, errs.ErrUnauthorizedRole)

	assert.ErrorIs(t, queries.ListOrdersQuery{}.Validate(), queries.ErrListOrdersQueryIsNotConstructed)
}

type ListOrdersQueryHandlerTestSuite struct {
	suite.Suite
	container *tc_postgres.PostgresContainer
	db        *gorm.DB
	factory   ports.UnitOfWorkFactory
	handler   queries.ListOrdersQueryHandler
}

func (suite *ListOrdersQueryHandlerTestSuite) SetupSuite() {
	container, db, err := pgtest.Start(context.Background())
	suite.container = container
	suite.Require().NoError(err)
	suite.db = db
	suite.factory = postgres.NewGormUnitOfWorkFactory(db)
	suite.handler = queries.NewListOrdersQueryHandler(db)
}

func (suite *ListOrdersQueryHandlerTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE " + pgtest.Tables).Error)
}

func (suite *ListOrdersQueryHandlerTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

// store saves an order for buyer and seller placed at t0 plus offset.
func (suite *ListOrdersQueryHandlerTestSuite) store(buyer, seller kernel.UUID, offset time.Duration, activate bool) *order.Order {
	price, err := kernel.NewMoney(2500, "USD")
	suite.Require().NoError(err)
	fee, err := kernel.NewMoney(100, "USD")
	suite.Require().NoError(err)
	pricing, err := order.NewPricing(price, 2, fee)
	suite.Require().NoError(err)
	terms, err := order.NewTerms(pricing, "Voice over", 1, nil)
	suite.Require().NoError(err)

	o, err := order.NewOrder(kernel.NewUUID(), kernel.NewUUID(), buyer, seller, terms, nil, t0.Add(offset))
	suite.Require().NoError(err)
	if activate {
		suite.Require().NoError(o.ConfirmPayment(order.SystemActor(), t0.Add(offset)))
	}

	ctx := context.Background()
	uow := suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	suite.Require().NoError(uow.OrderRepository().Add(ctx, o))
	suite.Require().NoError(uow.Commit(ctx))
	return o
}

func (suite *ListOrdersQueryHandlerTestSuite) list(actor order.Actor, statuses []order.Status, limit int) []queries.ListOrdersQueryResponse {
	query, err := queries.NewListOrdersQuery(actor, statuses, limit)
	suite.Require().NoError(err)
	rows, err := suite.handler.Handle(context.Background(), query)
	suite.Require().NoError(err)
	return rows
}

func (suite *ListOrdersQueryHandlerTestSuite) TestHandle_EmptyDatabase_ReturnsEmptySlice() {
	rows := suite.list(order.Actor{ID: kernel.NewUUID(), Role: order.RoleBuyer}, nil, 0)
	suite.NotNil(rows)
	suite.Empty(rows)
}

func (suite *ListOrdersQueryHandlerTestSuite) TestHandle_ListsOwnOrdersNewestFirst() {
	buyer := order.Actor{ID: kernel.NewUUID(), Role: order.RoleBuyer}
	seller := order.Actor{ID: kernel.NewUUID(), Role: order.RoleSeller}

	older := suite.store(buyer.ID, seller.ID, 0, true)
	newer := suite.store(buyer.ID, kernel.NewUUID(), time.Hour, false)
	suite.store(kernel.NewUUID(), seller.ID, 2*time.Hour, false)
	suite.store(kernel.NewUUID(), kernel.NewUUID(), 3*time.Hour, false)

	rows := suite.list(buyer, nil, 0)
	suite.Require().Len(rows, 2)
	suite.True(rows[0].ID.IsEqual(newer.ID()))
	suite.True(rows[1].ID.IsEqual(older.ID()))
	suite.Equal(order.Active, rows[1].Status)
	suite.Equal(int64(5100), rows[1].Total.Amount())
	suite.Equal("USD", rows[1].Total.Currency())
	suite.True(rows[1].DateOrdered.Equal(t0))
	suite.Nil(rows[1].DueDate)

	suite.Len(suite.list(seller, nil, 0), 2)
	suite.Len(suite.list(buyer, nil, 1), 1)
}

func (suite *ListOrdersQueryHandlerTestSuite) TestHandle_FiltersByStatus() {
	buyer := order.Actor{ID: kernel.NewUUID(), Role: order.RoleBuyer}
	active := suite.store(buyer.ID, kernel.NewUUID(), 0, true)
	suite.store(buyer.ID, kernel.NewUUID(), time.Minute, false)

	rows := suite.list(buyer, []order.Status{order.Active, order.InProgress}, 0)
	suite.Require().Len(rows, 1)
	suite.True(rows[0].ID.IsEqual(active.ID()))
}

func (suite *ListOrdersQueryHandlerTestSuite) TestHandle_SkipsQuarantinedOrders() {
	buyer := order.Actor{ID: kernel.NewUUID(), Role: order.RoleBuyer}
	o := suite.store(buyer.ID, kernel.NewUUID(), 0, true)

	repository := suite.factory.Create().OrderRepository()
	suite.Require().NoError(repository.Quarantine(context.Background(), o.ID(), "manual check", t0))

	suite.Empty(suite.list(buyer, nil, 0))
}

func (suite *ListOrdersQueryHandlerTestSuite) TestHandle_ContextCancellation_ReturnsError() {
	buyer := order.Actor{ID: kernel.NewUUID(), Role: order.RoleBuyer}
	suite.store(buyer.ID, kernel.NewUUID(), 0, false)

	query, err := queries.NewListOrdersQuery(buyer, nil, 0)
	suite.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows, err := suite.handler.Handle(ctx, query)
	suite.Require().Error(err)
	suite.Nil(rows)
}

func TestListOrdersQueryHandlerTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ListOrdersQueryHandlerTestSuite))
}
