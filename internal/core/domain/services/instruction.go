package services

import (
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
)

// Instruction is the action-specific part of a workflow call. Each
// implementation names the action it performs and carries its arguments.
type Instruction interface {
	Action() order.Action
}

type ConfirmPayment struct{}

type SubmitRequirements struct {
	Answers []order.RequirementAnswer
}

type SubmitDelivery struct {
	Message string
	Files   []string
}

// RespondToDelivery approves or asks for a revision of a delivery. A zero
// DeliveryID targets the latest delivery.
type RespondToDelivery struct {
	DeliveryID kernel.UUID
	Decision   order.DeliveryDecision
	Note       string
}

type AutoApproveDelivery struct{}

type OpenNegotiation struct {
	Payload order.Payload
	Message string
}

type RespondToNegotiation struct {
	NegotiationID kernel.UUID
	Decision      order.NegotiationDecision
}

type ExpireNegotiation struct{}

type EscalateDispute struct {
	Reason string
}

func (ConfirmPayment) Action() order.Action       { return order.ActionConfirmPayment }
func (SubmitRequirements) Action() order.Action   { return order.ActionSubmitRequirements }
func (SubmitDelivery) Action() order.Action       { return order.ActionDeliver }
func (AutoApproveDelivery) Action() order.Action  { return order.ActionAutoApproveDelivery }
func (OpenNegotiation) Action() order.Action      { return order.ActionOpenNegotiation }
func (RespondToNegotiation) Action() order.Action { return order.ActionRespondNegotiation }
func (ExpireNegotiation) Action() order.Action    { return order.ActionExpireNegotiation }
func (EscalateDispute) Action() order.Action      { return order.ActionEscalateDispute }

func (r RespondToDelivery) Action() order.Action {
	if r.Decision == order.DecisionRequestRevision {
		return order.ActionRequestRevision
	}
	return order.ActionApproveDelivery
}
