// Package queries contains read operations. Queries never change an order
// and never take the per-order lock.
package queries

import (
	"context"
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/pkg/guard"
)

var ErrGetOrderQueryIsNotConstructed = errors.New(
	"GetOrderQuery must be created via NewGetOrderQuery constructor",
)

// OrderReader loads a single aggregate.
type OrderReader interface {
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)
}

// GetOrderQuery returns the full state of an order to one of its participants.
//
// Example:
//
//	query, err := NewGetOrderQuery(orderID, buyer)
//	if err != nil {
//	    return err
//	}
//	view, err := handler.Handle(ctx, query)
type GetOrderQuery struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID
	actor   order.Actor

	guard guard.ConstructorGuard
}

func NewGetOrderQuery(orderID kernel.UUID, actor order.Actor) (GetOrderQuery, error) {
	if err := errors.Join(orderID.Validate(), actor.ID.Validate(), actor.Role.Validate()); err != nil {
		return GetOrderQuery{}, err
	}
	return GetOrderQuery{orderID: orderID, actor: actor, guard: guard.NewConstructorGuard()}, nil
}

func (q GetOrderQuery) Validate() error {
	return q.guard.Validate(ErrGetOrderQueryIsNotConstructed)
}

func (q GetOrderQuery) OrderID() kernel.UUID { return q.orderID }
func (q GetOrderQuery) Actor() order.Actor   { return q.actor }

// GetOrderQueryResponse is the order as stored plus the next deadline the
// scheduler will act on, if any.
type GetOrderQueryResponse struct {
	Order        order.Snapshot
	NextDeadline *time.Time
}

type GetOrderQueryHandler struct {
	orders OrderReader
}

func NewGetOrderQueryHandler(orders OrderReader) GetOrderQueryHandler {
	return GetOrderQueryHandler{orders: orders}
}

// Handle returns NOT_PARTICIPANT when the actor is neither buyer nor seller.
func (h GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (GetOrderQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return GetOrderQueryResponse{}, err
	}

	o, err := h.orders.Get(ctx, query.OrderID())
	if err != nil {
		return GetOrderQueryResponse{}, err
	}
	if err = services.AuthorizeParticipant(o, query.Actor()); err != nil {
		return GetOrderQueryResponse{}, err
	}

	return GetOrderQueryResponse{
		Order:        o.Snapshot(),
		NextDeadline: o.NextDeadline(),
	}, nil
}
