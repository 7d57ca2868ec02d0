package queries

import (
	"context"
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/guard"
)

var ErrGetReviewEligibilityQueryIsNotConstructed = errors.New(
	"GetReviewEligibilityQuery must be created via NewGetReviewEligibilityQuery constructor",
)

// GetReviewEligibilityQuery asks whether the actor may review the order now.
type GetReviewEligibilityQuery struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID
	actor   order.Actor

	guard guard.ConstructorGuard
}

func NewGetReviewEligibilityQuery(orderID kernel.UUID, actor order.Actor) (GetReviewEligibilityQuery, error) {
	if err := errors.Join(orderID.Validate(), actor.ID.Validate(), actor.Role.Validate()); err != nil {
		return GetReviewEligibilityQuery{}, err
	}
	return GetReviewEligibilityQuery{orderID: orderID, actor: actor, guard: guard.NewConstructorGuard()}, nil
}

func (q GetReviewEligibilityQuery) Validate() error {
	return q.guard.Validate(ErrGetReviewEligibilityQueryIsNotConstructed)
}

func (q GetReviewEligibilityQuery) OrderID() kernel.UUID { return q.orderID }
func (q GetReviewEligibilityQuery) Actor() order.Actor   { return q.actor }

type GetReviewEligibilityQueryHandler struct {
	orders  OrderReader
	reviews ports.ReviewLookup
}

func NewGetReviewEligibilityQueryHandler(orders OrderReader, reviews ports.ReviewLookup) GetReviewEligibilityQueryHandler {
	return GetReviewEligibilityQueryHandler{orders: orders, reviews: reviews}
}

func (h GetReviewEligibilityQueryHandler) Handle(
	ctx context.Context,
	query GetReviewEligibilityQuery,
) (services.ReviewEligibility, error) {
	if err := query.Validate(); err != nil {
		return services.ReviewEligibility{}, err
	}

	o, err := h.orders.Get(ctx, query.OrderID())
	if err != nil {
		return services.ReviewEligibility{}, err
	}

	// The lookup only matters once the order is completed.
	reviewed := false
	if o.Status() == order.Completed && o.IsParticipant(query.Actor().ID) {
		reviewed, err = h.reviews.HasReview(ctx, o.ID(), query.Actor().Role)
		if err != nil {
			return services.ReviewEligibility{}, err
		}
	}

	return services.EvaluateReviewEligibility(o, query.Actor(), reviewed)
}
