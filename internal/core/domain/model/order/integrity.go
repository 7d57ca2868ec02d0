package order

import (
	"fmt"

	"orderflow/internal/pkg/errs"
)

// CheckIntegrity verifies the cross-field invariants of the aggregate. It is
// run after every restore and before every write; a violation is reported as
// CORRUPT_AGGREGATE and the order must not be mutated further.
func (o *Order) CheckIntegrity() error {
	if err := o.Validate(); err != nil {
		return errs.NewWorkflowErrorWithCause(errs.CodeCorruptAggregate, "order is not constructed", err)
	}
	if err := o.status.Validate(); err != nil {
		return corrupt("status: %v", err)
	}
	if o.version < 0 {
		return corrupt("version %d is negative", o.version)
	}

	pending := 0
	for _, n := range o.negotiations {
		if n.IsPending() {
			pending++
		}
	}
	if pending > 1 {
		return corrupt("%d negotiations are pending", pending)
	}

	current := o.CurrentNegotiation()
	switch {
	case o.currentNegotiationID != nil && current == nil:
		return corrupt("current negotiation %s does not exist", *o.currentNegotiationID)
	case current != nil && !current.IsPending():
		return corrupt("current negotiation %s is %s", current.id, current.status)
	case current == nil && pending > 0:
		return corrupt("a pending negotiation is not referenced as current")
	}

	cancelPending := current != nil && current.Type() == CancelOrder
	if cancelPending != (o.status == CancelPending) {
		return corrupt("status %s does not match the open negotiation", o.status)
	}
	if current != nil && o.status.IsTerminal() {
		return corrupt("terminal order %s has an open negotiation", o.status)
	}

	if o.status == Cancelled && o.cancellation == nil {
		return corrupt("cancelled order has no cancellation details")
	}
	if o.status == Disputed && o.dispute == nil {
		return corrupt("disputed order has no dispute details")
	}
	if o.status != Pending && o.status != Active && o.dueDate == nil && len(o.deliveries) > 0 {
		return corrupt("order with deliveries has no due date")
	}

	pendingDeliveries := 0
	for i, d := range o.deliveries {
		if !d.IsPending() {
			continue
		}
		pendingDeliveries++
		if i != len(o.deliveries)-1 {
			return corrupt("delivery %s is pending but not the latest", d.id)
		}
	}
	if o.status == Delivered && pendingDeliveries == 0 {
		return corrupt("delivered order has no pending delivery")
	}
	if pendingDeliveries > 0 && (o.status == InProgress || o.status == Completed) {
		return corrupt("order is %s with a pending delivery", o.status)
	}

	if o.revisionCount < 0 {
		return corrupt("revision count %d is negative", o.revisionCount)
	}
	if mr := o.terms.maxRevision; mr != nil && o.revisionCount > *mr {
		return corrupt("revision count %d exceeds limit %d", o.revisionCount, *mr)
	}

	return nil
}

func corrupt(format string, args ...any) error {
	return errs.NewWorkflowError(errs.CodeCorruptAggregate, fmt.Sprintf(format, args...))
}
