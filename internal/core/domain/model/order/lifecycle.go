package order

import (
	"strings"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

// ConfirmPayment activates a PENDING order once the payment collaborator has
// captured the funds.
func (o *Order) ConfirmPayment(actor Actor, now time.Time) error {
	if err := o.authorize(actor, ActionConfirmPayment); err != nil {
		return err
	}
	next, err := o.status.Transition(ActionConfirmPayment, actor.Role)
	if err != nil {
		return err
	}

	o.moveTo(next, actor, ActionConfirmPayment, "", now)
	o.raise(OrderActivated{EventMeta: newMeta(o.id, now), BuyerID: o.buyerID, SellerID: o.sellerID})
	return nil
}

// SubmitRequirements stores the buyer's answers and starts the work. The due
// date is set to now plus the agreed delivery days.
func (o *Order) SubmitRequirements(actor Actor, answers []RequirementAnswer, now time.Time) error {
	if err := o.authorize(actor, ActionSubmitRequirements); err != nil {
		return err
	}
	next, err := o.status.Transition(ActionSubmitRequirements, actor.Role)
	if err != nil {
		return err
	}

	byID := make(map[kernel.UUID]*RequirementAnswer, len(answers))
	for i := range answers {
		a := &answers[i]
		r := o.findRequirement(a.RequirementID)
		if r == nil {
			return errs.Workflowf(errs.CodeInvalidPayload, "requirement %s does not belong to order %s", a.RequirementID, o.id)
		}
		if _, dup := byID[a.RequirementID]; dup {
			return errs.Workflowf(errs.CodeInvalidPayload, "requirement %s answered twice", a.RequirementID)
		}
		byID[a.RequirementID] = a
	}
	for _, r := range o.requirements {
		if err := r.check(byID[r.id]); err != nil {
			return err
		}
	}

	for _, r := range o.requirements {
		r.apply(byID[r.id])
	}
	due := now.Add(time.Duration(o.terms.deliveryDays) * 24 * time.Hour)
	o.dueDate = &due
	o.moveTo(next, actor, ActionSubmitRequirements, "", now)
	o.raise(RequirementsSubmitted{EventMeta: newMeta(o.id, now), DueDate: due})
	return nil
}

// SubmitDelivery appends a pending delivery from the seller and moves the
// order to DELIVERED. The auto-approval deadline is persisted on the delivery.
func (o *Order) SubmitDelivery(actor Actor, message string, files []string, policy Policy, now time.Time) (*Delivery, error) {
	if err := o.authorize(actor, ActionDeliver); err != nil {
		return nil, err
	}
	next, err := o.status.Transition(ActionDeliver, actor.Role)
	if err != nil {
		return nil, err
	}
	d, err := newDelivery(message, files, now, policy.DeliveryGracePeriod)
	if err != nil {
		return nil, err
	}

	o.deliveries = append(o.deliveries, d)
	o.moveTo(next, actor, ActionDeliver, "", now)
	o.raise(DeliverySubmitted{EventMeta: newMeta(o.id, now), DeliveryID: d.id, AutoApproveAt: d.autoApproveAt})
	return d, nil
}

// RespondToDelivery applies the buyer's decision to a delivery. A zero
// deliveryID targets the latest delivery. A delivery that was already
// answered yields ALREADY_RESOLVED and nothing changes.
func (o *Order) RespondToDelivery(
	actor Actor,
	deliveryID kernel.UUID,
	decision DeliveryDecision,
	note string,
	now time.Time,
) error {
	var action Action
	switch decision {
	case DecisionApproveDelivery:
		action = ActionApproveDelivery
	case DecisionRequestRevision:
		action = ActionRequestRevision
	default:
		return errs.Workflowf(errs.CodeInvalidPayload, "unknown delivery decision %d", decision)
	}

	if err := o.authorize(actor, action); err != nil {
		return err
	}

	d := o.LatestDelivery()
	if !deliveryID.IsZero() {
		d = o.findDelivery(deliveryID)
		if d == nil {
			return errs.NewObjectNotFoundError("deliveryID", deliveryID)
		}
	}
	if d != nil && !d.IsPending() {
		return errs.Workflowf(errs.CodeAlreadyResolved, "delivery %s is already %s", d.id, d.approval)
	}

	next, err := o.status.Transition(action, actor.Role)
	if err != nil {
		return err
	}
	if d == nil {
		return errs.NewWorkflowError(errs.CodeCorruptAggregate, "order is DELIVERED without a delivery")
	}

	if decision == DecisionRequestRevision {
		if err := o.checkRevisionLimit(); err != nil {
			return err
		}
		d.resolve(ApprovalRevisionRequested, note, now)
		o.revisionCount++
		o.moveTo(next, actor, action, note, now)
		o.raise(RevisionRequested{EventMeta: newMeta(o.id, now), DeliveryID: d.id, RevisionCount: o.revisionCount})
		return nil
	}

	o.complete(d, next, actor, action, note, now)
	return nil
}

// AutoApproveDelivery approves the pending delivery once its grace period is
// over, exactly as if the buyer had approved it. Before the deadline it
// returns NOT_DUE; if the buyer answered first it returns ALREADY_RESOLVED.
func (o *Order) AutoApproveDelivery(actor Actor, now time.Time) error {
	if err := o.authorize(actor, ActionAutoApproveDelivery); err != nil {
		return err
	}

	d := o.LatestDelivery()
	if d == nil || !d.IsPending() {
		return errs.Workflowf(errs.CodeAlreadyResolved, "order %s has no delivery awaiting approval", o.id)
	}
	next, err := o.status.Transition(ActionAutoApproveDelivery, actor.Role)
	if err != nil {
		return err
	}
	if !d.IsDue(now) {
		return errs.Workflowf(errs.CodeNotDue, "delivery %s auto-approves at %s", d.id, d.autoApproveAt.Format(time.RFC3339))
	}

	o.raise(DeliveryAutoApproved{EventMeta: newMeta(o.id, now), DeliveryID: d.id})
	o.complete(d, next, actor, ActionAutoApproveDelivery, "approved after grace period", now)
	return nil
}

// complete approves d and finishes the order. A negotiation still pending
// against the finished order is closed as EXPIRED without its effect.
func (o *Order) complete(d *Delivery, next Status, actor Actor, action Action, note string, now time.Time) {
	d.resolve(ApprovalApproved, note, now)
	o.closeCurrentNegotiation(now)
	o.moveTo(next, actor, action, note, now)
	o.raise(OrderCompleted{EventMeta: newMeta(o.id, now), BuyerID: o.buyerID, SellerID: o.sellerID})
}

func (o *Order) checkRevisionLimit() error {
	maxRevision := o.terms.maxRevision
	if maxRevision != nil && o.revisionCount >= *maxRevision {
		return errs.Workflowf(errs.CodeRevisionLimitExceeded,
			"%d of %d revisions used", o.revisionCount, *maxRevision)
	}
	return nil
}

// EscalateDispute hands the order to support. A pending negotiation is closed
// as EXPIRED without applying its effect. Escalating a disputed order again is
// reported as ALREADY_RESOLVED.
func (o *Order) EscalateDispute(actor Actor, reason string, now time.Time) error {
	if err := o.authorize(actor, ActionEscalateDispute); err != nil {
		return err
	}
	if o.status == Disputed {
		return errs.Workflowf(errs.CodeAlreadyResolved, "order %s is already disputed", o.id)
	}
	next, err := o.status.Transition(ActionEscalateDispute, actor.Role)
	if err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return errs.Workflowf(errs.CodeInvalidPayload, "dispute reason is required")
	}

	o.openDispute(actor, reason, now)
	o.moveTo(next, actor, ActionEscalateDispute, reason, now)
	return nil
}

// openDispute closes any pending negotiation and stamps the dispute details.
// The caller moves the status.
func (o *Order) openDispute(actor Actor, reason string, now time.Time) {
	details := &DisputeDetails{
		Reason:     reason,
		RaisedBy:   actor.ID,
		RaisedAt:   now,
		FromStatus: o.status,
	}
	if n := o.closeCurrentNegotiation(now); n != nil {
		id := n.id
		details.NegotiationID = &id
		if o.status == CancelPending {
			details.FromStatus = n.returnStatus
		}
	}
	o.dispute = details
	o.raise(OrderDisputed{EventMeta: newMeta(o.id, now), Reason: reason, RaisedBy: actor.ID})
}

// closeCurrentNegotiation expires the pending negotiation on behalf of the
// system and returns it, or returns nil when none is open.
func (o *Order) closeCurrentNegotiation(now time.Time) *Negotiation {
	n := o.CurrentNegotiation()
	if n == nil {
		return nil
	}
	n.resolve(NegotiationExpired, RoleSystem, now)
	o.currentNegotiationID = nil
	o.raise(o.resolvedEvent(n, now))
	return n
}

func (o *Order) findRequirement(id kernel.UUID) *Requirement {
	for _, r := range o.requirements {
		if r.id.IsEqual(id) {
			return r
		}
	}
	return nil
}
