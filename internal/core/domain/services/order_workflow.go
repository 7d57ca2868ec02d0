package services

import (
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
)

// OrderWorkflow routes an instruction to the subsystem of the order
// aggregate that owns it: the state machine, the delivery subsystem or the
// negotiation subsystem. It holds the policy the subsystems are run with.
//
// Example usage:
//
//	workflow, _ := NewOrderWorkflow(order.DefaultPolicy())
//	err := workflow.Apply(o, buyer, SubmitRequirements{Answers: answers}, now)
//	if errors.Is(err, errs.ErrInvalidTransition) {
//	    // the order is not waiting for requirements
//	}
type OrderWorkflow struct {
	policy order.Policy
}

func NewOrderWorkflow(policy order.Policy) (OrderWorkflow, error) {
	if err := policy.Validate(); err != nil {
		return OrderWorkflow{}, err
	}
	return OrderWorkflow{policy: policy}, nil
}

func (w OrderWorkflow) Policy() order.Policy {
	return w.policy
}

// Apply performs in on o on behalf of actor. The aggregate is left untouched
// when an error is returned.
func (w OrderWorkflow) Apply(o *order.Order, actor order.Actor, in Instruction, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if in == nil {
		return errs.NewValueIsRequiredError("instruction")
	}

	switch in := in.(type) {
	case ConfirmPayment:
		return o.ConfirmPayment(actor, now)
	case SubmitRequirements:
		return o.SubmitRequirements(actor, in.Answers, now)
	case SubmitDelivery:
		_, err := o.SubmitDelivery(actor, in.Message, in.Files, w.policy, now)
		return err
	case RespondToDelivery:
		return o.RespondToDelivery(actor, in.DeliveryID, in.Decision, in.Note, now)
	case AutoApproveDelivery:
		return o.AutoApproveDelivery(actor, now)
	case OpenNegotiation:
		_, err := o.OpenNegotiation(actor, in.Payload, in.Message, w.policy, now)
		return err
	case RespondToNegotiation:
		return o.RespondToNegotiation(actor, in.NegotiationID, in.Decision, now)
	case ExpireNegotiation:
		return o.ExpireNegotiation(actor, w.policy, now)
	case EscalateDispute:
		return o.EscalateDispute(actor, in.Reason, now)
	default:
		return errs.NewValueIsInvalidErrorWithCause("instruction", fmt.Errorf("unsupported instruction %T", in))
	}
}
