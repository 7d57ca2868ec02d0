// Package postgres implements the unit of work on top of GORM transactions.
//
// Repositories handed out by a GormUnitOfWork run inside its transaction.
// Every order written through OrderRepository is tracked, and Commit stores
// the events those orders raised in the outbox before committing, so a state
// change and the events describing it are persisted together or not at all.
//
//	uow := factory.Create()
//	if err := uow.Begin(ctx); err != nil {
//	    return err
//	}
//	defer func() {
//	    _ = uow.Rollback(ctx)
//	}()
//
//	if err := uow.OrderRepository().Update(ctx, o); err != nil {
//	    return err
//	}
//	return uow.Commit(ctx)
package postgres

import (
	"context"

	"orderflow/internal/adapters/out/postgres/orderrepo"
	"orderflow/internal/adapters/out/postgres/outboxrepo"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"

	"gorm.io/gorm"
)

// GormUnitOfWorkFactory creates a fresh unit of work per operation.
type GormUnitOfWorkFactory struct {
	db *gorm.DB
}

func NewGormUnitOfWorkFactory(db *gorm.DB) *GormUnitOfWorkFactory {
	return &GormUnitOfWorkFactory{db: db}
}

func (f *GormUnitOfWorkFactory) Create() ports.UnitOfWork {
	return &GormUnitOfWork{
		db:                f.db,
		trackedAggregates: make([]*order.Order, 0),
	}
}

// GormUnitOfWork is not safe for concurrent use; each goroutine creates its own.
type GormUnitOfWork struct {
	db                *gorm.DB
	tx                *gorm.DB
	trackedAggregates []*order.Order
}

// Begin starts the transaction. Calling it twice keeps the first one.
func (uow *GormUnitOfWork) Begin(ctx context.Context) error {
	if uow.tx != nil {
		return nil
	}

	uow.tx = uow.db.WithContext(ctx).Begin()
	if uow.tx.Error != nil {
		err := uow.tx.Error
		uow.tx = nil
		return err
	}

	uow.trackedAggregates = uow.trackedAggregates[:0]
	return nil
}

// Commit writes the events of the tracked orders to the outbox and commits.
func (uow *GormUnitOfWork) Commit(ctx context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	outbox := outboxrepo.NewGormOutboxRepository(uow.tx)
	for _, aggregate := range uow.trackedAggregates {
		if err := outbox.Add(ctx, aggregate.DomainEvents()...); err != nil {
			return err
		}
	}

	err := uow.tx.Commit().Error
	uow.tx = nil
	uow.trackedAggregates = uow.trackedAggregates[:0]
	return err
}

// Rollback discards the transaction. It returns gorm.ErrInvalidTransaction
// when nothing is open, which deferred calls after Commit ignore.
func (uow *GormUnitOfWork) Rollback(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Rollback().Error
	uow.tx = nil
	uow.trackedAggregates = uow.trackedAggregates[:0]
	return err
}

func (uow *GormUnitOfWork) OrderRepository() ports.OrderRepository {
	return orderrepo.NewGormOrderRepository(uow.conn(), uow)
}

func (uow *GormUnitOfWork) OutboxRepository() ports.OutboxRepository {
	return outboxrepo.NewGormOutboxRepository(uow.conn())
}

// TrackAggregate registers an order written in this unit of work. An order
// written twice is tracked once.
func (uow *GormUnitOfWork) TrackAggregate(aggregate *order.Order) {
	for _, tracked := range uow.trackedAggregates {
		if tracked == aggregate {
			return
		}
	}
	uow.trackedAggregates = append(uow.trackedAggregates, aggregate)
}

func (uow *GormUnitOfWork) conn() *gorm.DB {
	if uow.tx != nil {
		return uow.tx
	}
	return uow.db
}
