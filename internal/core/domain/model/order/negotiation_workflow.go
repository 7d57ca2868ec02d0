package order

import (
	"slices"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

// OpenNegotiation attaches a new proposal to the order. Checks run in this
// order: role, terminal state, an already open negotiation, payload shape,
// then whether the current status admits the negotiation type. The current
// status is kept on the negotiation so that a rejection can restore it.
func (o *Order) OpenNegotiation(
	actor Actor,
	payload Payload,
	message string,
	policy Policy,
	now time.Time,
) (*Negotiation, error) {
	if err := o.authorize(actor, ActionOpenNegotiation); err != nil {
		return nil, err
	}
	if _, err := o.status.Transition(ActionOpenNegotiation, actor.Role); err != nil {
		return nil, err
	}
	if o.currentNegotiationID != nil {
		return nil, errs.Workflowf(errs.CodeNegotiationAlreadyOpen,
			"negotiation %s is still pending", *o.currentNegotiationID)
	}
	if payload == nil {
		return nil, errs.Workflowf(errs.CodeInvalidPayload, "negotiation payload is required")
	}
	if err := payload.Accept(payloadValidator{order: o, policy: policy}); err != nil {
		return nil, err
	}
	if !slices.Contains(payload.Type().allowedFrom(), o.status) {
		return nil, errs.Workflowf(errs.CodeInvalidStateForType,
			"%s cannot be opened while the order is %s", payload.Type(), o.status)
	}

	if ext, ok := payload.(ExtendDeliveryPayload); ok && o.dueDate != nil {
		payload = RestoreExtendDeliveryPayload(ext.days, *o.dueDate)
	}
	n := newNegotiation(actor, payload, message, o.status, now, policy.NegotiationTTL)
	o.negotiations = append(o.negotiations, n)
	id := n.id
	o.currentNegotiationID = &id

	next := o.status
	if payload.Type() == CancelOrder {
		next = CancelPending
	}
	o.moveTo(next, actor, ActionOpenNegotiation, payload.Type().String(), now)
	o.raise(NegotiationOpened{
		EventMeta:     newMeta(o.id, now),
		NegotiationID: n.id,
		Type:          payload.Type().String(),
		RequesterRole: actor.Role,
		ExpiresAt:     n.expiresAt,
	})
	return n, nil
}

// RespondToNegotiation lets the counterparty approve or reject a pending
// negotiation. Only the role opposite to the requester may answer; answering
// a resolved negotiation yields ALREADY_RESOLVED.
func (o *Order) RespondToNegotiation(
	actor Actor,
	negotiationID kernel.UUID,
	decision NegotiationDecision,
	now time.Time,
) error {
	if err := o.authorize(actor, ActionRespondNegotiation); err != nil {
		return err
	}
	n := o.findNegotiation(negotiationID)
	if n == nil {
		return errs.NewObjectNotFoundError("negotiationID", negotiationID)
	}
	if actor.Role != n.requesterRole.Counterparty() {
		return errs.Workflowf(errs.CodeUnauthorizedRole,
			"only the %s may answer a negotiation opened by the %s", n.requesterRole.Counterparty(), n.requesterRole)
	}
	if !n.IsPending() {
		return errs.Workflowf(errs.CodeAlreadyResolved, "negotiation %s is already %s", n.id, n.status)
	}
	if _, err := o.status.Transition(ActionRespondNegotiation, actor.Role); err != nil {
		return err
	}

	switch decision {
	case DecisionApprove:
		effect := &approvalEffect{order: o, negotiation: n, actor: actor, now: now}
		if err := n.payload.Accept(effect); err != nil {
			return err
		}
		n.resolve(NegotiationApproved, actor.Role, now)
		o.currentNegotiationID = nil
		effect.commit()
	case DecisionReject:
		n.resolve(NegotiationRejected, actor.Role, now)
		o.currentNegotiationID = nil
		o.restoreAfter(n, actor, ActionRespondNegotiation, now)
	default:
		return errs.Workflowf(errs.CodeInvalidPayload, "unknown negotiation decision %d", decision)
	}

	o.raise(o.resolvedEvent(n, now))
	return nil
}

// ExpireNegotiation closes the current negotiation once its TTL has passed.
// Expiry has the effect of a rejection, except for CANCEL_ORDER where
// policy.CancelExpiry decides between escalation, rejection and approval.
func (o *Order) ExpireNegotiation(actor Actor, policy Policy, now time.Time) error {
	if err := o.authorize(actor, ActionExpireNegotiation); err != nil {
		return err
	}
	n := o.CurrentNegotiation()
	if n == nil || !n.IsPending() {
		return errs.Workflowf(errs.CodeAlreadyResolved, "order %s has no pending negotiation", o.id)
	}
	if _, err := o.status.Transition(ActionExpireNegotiation, actor.Role); err != nil {
		return err
	}
	if !n.IsStale(now) {
		return errs.Workflowf(errs.CodeNotDue, "negotiation %s expires at %s", n.id, n.expiresAt.Format(time.RFC3339))
	}

	if n.Type() != CancelOrder {
		n.resolve(NegotiationExpired, RoleSystem, now)
		o.currentNegotiationID = nil
		o.restoreAfter(n, actor, ActionExpireNegotiation, now)
		o.raise(o.resolvedEvent(n, now))
		return nil
	}

	switch policy.CancelExpiry {
	case CancelExpiryApprove:
		n.resolve(NegotiationExpired, RoleSystem, now)
		o.currentNegotiationID = nil
		o.cancel(n, actor, RoleSystem, ActionExpireNegotiation, now)
		o.raise(o.resolvedEvent(n, now))
	case CancelExpiryReject:
		n.resolve(NegotiationExpired, RoleSystem, now)
		o.currentNegotiationID = nil
		o.restoreAfter(n, actor, ActionExpireNegotiation, now)
		o.raise(o.resolvedEvent(n, now))
	default:
		// openDispute expires the negotiation itself.
		o.openDispute(actor, "cancellation request expired without a response", now)
		o.moveTo(Disputed, actor, ActionExpireNegotiation, "cancellation request expired", now)
	}
	return nil
}

// restoreAfter returns a CANCEL_PENDING order to the status held when n was opened.
func (o *Order) restoreAfter(n *Negotiation, actor Actor, action Action, now time.Time) {
	next := o.status
	if o.status == CancelPending {
		next = n.returnStatus
	}
	o.moveTo(next, actor, action, n.status.String(), now)
}

func (o *Order) cancel(n *Negotiation, actor Actor, approvedBy Role, action Action, now time.Time) {
	cp, _ := n.payload.(CancelOrderPayload)
	o.cancellation = &CancellationDetails{
		NegotiationID: n.id,
		RequestedBy:   n.requesterRole,
		RequesterID:   n.requesterID,
		Reason:        cp.reason,
		ApprovedAt:    now,
		ApprovedBy:    approvedBy,
	}
	o.moveTo(Cancelled, actor, action, cp.reason, now)
	total := o.terms.pricing.Total()
	o.raise(OrderCancelled{
		EventMeta:   newMeta(o.id, now),
		CancelledBy: n.requesterRole,
		RequesterID: n.requesterID,
		Reason:      cp.reason,
		TotalAmount: total.Amount(),
		Currency:    total.Currency(),
	})
}

func (o *Order) resolvedEvent(n *Negotiation, now time.Time) NegotiationResolved {
	return NegotiationResolved{
		EventMeta:     newMeta(o.id, now),
		NegotiationID: n.id,
		Type:          n.Type().String(),
		Outcome:       n.status.String(),
		ResolvedBy:    n.resolvedBy,
	}
}

// approvalEffect computes the effect of an approved negotiation while
// visiting its payload and applies it in commit, so that a failing
// computation leaves the order untouched.
type approvalEffect struct {
	order       *Order
	negotiation *Negotiation
	actor       Actor
	now         time.Time
	commit      func()
}

func (e *approvalEffect) VisitExtendDelivery(p ExtendDeliveryPayload) error {
	o := e.order
	if o.dueDate == nil {
		return errs.NewWorkflowError(errs.CodeCorruptAggregate, "order in progress has no due date")
	}
	due := o.dueDate.Add(time.Duration(p.days) * 24 * time.Hour)
	e.commit = func() {
		o.dueDate = &due
		o.restoreAfter(e.negotiation, e.actor, ActionRespondNegotiation, e.now)
		o.raise(DueDateExtended{
			EventMeta:     newMeta(o.id, e.now),
			NegotiationID: e.negotiation.id,
			Days:          p.days,
			DueDate:       due,
		})
	}
	return nil
}

func (e *approvalEffect) VisitCancelOrder(CancelOrderPayload) error {
	e.commit = func() {
		e.order.cancel(e.negotiation, e.actor, e.actor.Role, ActionRespondNegotiation, e.now)
	}
	return nil
}

func (e *approvalEffect) VisitModifyOrder(p ModifyOrderPayload) error {
	o := e.order
	terms := o.terms
	if p.newPrice != nil {
		pricing, err := terms.pricing.WithPrice(*p.newPrice)
		if err != nil {
			return errs.NewWorkflowErrorWithCause(errs.CodeInvalidPayload, "new price cannot be applied", err)
		}
		terms = terms.withPricing(pricing)
	}
	if p.newScope != nil {
		terms = terms.withScope(*p.newScope)
	}
	e.commit = func() {
		o.terms = terms
		o.restoreAfter(e.negotiation, e.actor, ActionRespondNegotiation, e.now)
		total := terms.pricing.Total()
		o.raise(OrderModified{
			EventMeta:     newMeta(o.id, e.now),
			NegotiationID: e.negotiation.id,
			Price:         terms.pricing.Price().Amount(),
			TotalAmount:   total.Amount(),
			Currency:      total.Currency(),
			Scope:         terms.scope,
		})
	}
	return nil
}
