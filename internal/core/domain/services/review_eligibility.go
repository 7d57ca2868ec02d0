package services

import (
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
)

// ReviewEligibility is the derived fact "order completed, no review yet for
// this role". Reviews themselves are owned by another service.
type ReviewEligibility struct {
	Role     order.Role
	Eligible bool
	Reason   string
}

// EvaluateReviewEligibility decides whether actor may leave a review on o.
// reviewed tells whether a review by actor's role already exists.
func EvaluateReviewEligibility(o *order.Order, actor order.Actor, reviewed bool) (ReviewEligibility, error) {
	if err := o.Validate(); err != nil {
		return ReviewEligibility{}, err
	}
	if actor.Role == order.RoleSystem {
		return ReviewEligibility{}, errs.Workflowf(errs.CodeUnauthorizedRole, "%s cannot review orders", actor.Role)
	}
	if err := authorizeParticipant(o, actor); err != nil {
		return ReviewEligibility{}, err
	}

	result := ReviewEligibility{Role: actor.Role}
	switch {
	case o.Status() != order.Completed:
		result.Reason = "order is " + o.Status().String()
	case reviewed:
		result.Reason = "already reviewed"
	default:
		result.Eligible = true
	}
	return result, nil
}

// AuthorizeParticipant reports NOT_PARTICIPANT unless actor is the buyer or
// the seller of o. SYSTEM acts on every order.
func AuthorizeParticipant(o *order.Order, actor order.Actor) error {
	if actor.Role == order.RoleSystem {
		return nil
	}
	return authorizeParticipant(o, actor)
}

func authorizeParticipant(o *order.Order, actor order.Actor) error {
	if !o.IsParticipant(actor.ID) {
		return errs.Workflowf(errs.CodeNotParticipant, "actor %s is not a participant of order %s", actor.ID, o.ID())
	}
	return nil
}
