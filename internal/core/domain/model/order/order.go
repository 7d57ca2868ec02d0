package order

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order was not created through
	// NewOrder or RestoreOrder.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder constructor")
	// ErrBuyerIsSeller is returned when both participants are the same account.
	ErrBuyerIsSeller = errs.NewValueIsInvalidErrorWithCause("sellerID", errors.New("buyer and seller must differ"))
)

// Order is the aggregate root of the workflow. It owns its requirements,
// deliveries, negotiation history and audit trail; none of them is persisted
// or changed on its own.
//
// Invariants:
//   - at most one negotiation is pending, and currentNegotiationID points at it
//   - CANCEL_PENDING holds exactly while a CANCEL_ORDER negotiation is pending
//   - COMPLETED and CANCELLED are final
//   - every successful mutation appends an audit entry and raises domain events
type Order struct {
	id       kernel.UUID
	gigID    kernel.UUID
	buyerID  kernel.UUID
	sellerID kernel.UUID

	terms         Terms
	status        Status
	dateOrdered   time.Time
	dueDate       *time.Time
	revisionCount int

	requirements         []*Requirement
	deliveries           []*Delivery
	negotiations         []*Negotiation
	currentNegotiationID *kernel.UUID
	audit                []AuditEntry

	cancellation *CancellationDetails
	dispute      *DisputeDetails

	version      int64
	domainEvents []DomainEvent

	guard guard.ConstructorGuard
}

// NewOrder creates an order in PENDING, as recorded when the buyer's payment
// is captured. CONFIRM_PAYMENT activates it.
func NewOrder(
	id, gigID, buyerID, sellerID kernel.UUID,
	terms Terms,
	requirements []*Requirement,
	now time.Time,
) (*Order, error) {
	o := &Order{
		status:      Pending,
		dateOrdered: now,
		guard:       guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		o.setID(id),
		o.setParticipants(gigID, buyerID, sellerID),
		o.setTerms(terms),
		o.setRequirements(requirements),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// RestoreOrder rebuilds an order from its persisted snapshot. It validates
// every field on its own; cross-field consistency is checked by
// CheckIntegrity.
func RestoreOrder(s Snapshot) (*Order, error) {
	o := &Order{
		status:        s.Status,
		dateOrdered:   s.DateOrdered,
		dueDate:       s.DueDate,
		revisionCount: s.RevisionCount,
		cancellation:  s.Cancellation,
		dispute:       s.Dispute,
		version:       s.Version,
		audit:         append([]AuditEntry(nil), s.Audit...),
		guard:         guard.NewConstructorGuard(),
	}

	var currentErr error
	if s.CurrentNegotiationID != nil {
		id := *s.CurrentNegotiationID
		if currentErr = id.Validate(); currentErr == nil {
			o.currentNegotiationID = &id
		}
	}

	var requirementErrs, deliveryErrs, negotiationErrs []error
	requirements := make([]*Requirement, 0, len(s.Requirements))
	for _, rs := range s.Requirements {
		r, err := RestoreRequirement(rs)
		requirementErrs = append(requirementErrs, err)
		requirements = append(requirements, r)
	}
	for _, ds := range s.Deliveries {
		d, err := RestoreDelivery(ds)
		deliveryErrs = append(deliveryErrs, err)
		o.deliveries = append(o.deliveries, d)
	}
	for _, ns := range s.Negotiations {
		n, err := RestoreNegotiation(ns)
		negotiationErrs = append(negotiationErrs, err)
		o.negotiations = append(o.negotiations, n)
	}

	if err := errors.Join(
		o.setID(s.ID),
		o.setParticipants(s.GigID, s.BuyerID, s.SellerID),
		o.setTerms(s.Terms),
		s.Status.Validate(),
		currentErr,
		errors.Join(requirementErrs...),
		errors.Join(deliveryErrs...),
		errors.Join(negotiationErrs...),
	); err != nil {
		return nil, err
	}
	o.requirements = requirements

	return o, nil
}

// Validate ensures the Order instance was properly constructed.
func (o *Order) Validate() error {
	if o == nil {
		return ErrOrderIsNotConstructed
	}
	return o.guard.Validate(ErrOrderIsNotConstructed)
}

func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id.IsEqual(other.id)
}

func (o *Order) ID() kernel.UUID                    { return o.id }
func (o *Order) GigID() kernel.UUID                 { return o.gigID }
func (o *Order) BuyerID() kernel.UUID               { return o.buyerID }
func (o *Order) SellerID() kernel.UUID              { return o.sellerID }
func (o *Order) Terms() Terms                       { return o.terms }
func (o *Order) Pricing() Pricing                   { return o.terms.pricing }
func (o *Order) Status() Status                     { return o.status }
func (o *Order) DateOrdered() time.Time             { return o.dateOrdered }
func (o *Order) DueDate() *time.Time                { return o.dueDate }
func (o *Order) RevisionCount() int                 { return o.revisionCount }
func (o *Order) CurrentNegotiationID() *kernel.UUID { return o.currentNegotiationID }
func (o *Order) Cancellation() *CancellationDetails { return o.cancellation }
func (o *Order) Dispute() *DisputeDetails           { return o.dispute }
func (o *Order) Version() int64                     { return o.version }
func (o *Order) Requirements() []*Requirement       { return slices.Clone(o.requirements) }
func (o *Order) Deliveries() []*Delivery            { return slices.Clone(o.deliveries) }
func (o *Order) Negotiations() []*Negotiation       { return slices.Clone(o.negotiations) }
func (o *Order) Audit() []AuditEntry                { return slices.Clone(o.audit) }

// IsParticipant reports whether id is the buyer or the seller.
func (o *Order) IsParticipant(id kernel.UUID) bool {
	return id.IsEqual(o.buyerID) || id.IsEqual(o.sellerID)
}

// CurrentNegotiation returns the pending negotiation, or nil.
func (o *Order) CurrentNegotiation() *Negotiation {
	if o.currentNegotiationID == nil {
		return nil
	}
	return o.findNegotiation(*o.currentNegotiationID)
}

// LatestDelivery returns the most recent delivery, or nil.
func (o *Order) LatestDelivery() *Delivery {
	if len(o.deliveries) == 0 {
		return nil
	}
	return o.deliveries[len(o.deliveries)-1]
}

// NextDeadline returns the earliest persisted deadline the scheduler has to
// act on: a pending delivery's auto-approval or the current negotiation's expiry.
func (o *Order) NextDeadline() *time.Time {
	var next *time.Time
	if d := o.LatestDelivery(); d != nil && d.IsPending() && o.status == Delivered {
		at := d.autoApproveAt
		next = &at
	}
	if n := o.CurrentNegotiation(); n != nil && (next == nil || n.expiresAt.Before(*next)) {
		at := n.expiresAt
		next = &at
	}
	return next
}

// DomainEvents returns the events raised since the last ClearDomainEvents.
func (o *Order) DomainEvents() []DomainEvent {
	return slices.Clone(o.domainEvents)
}

func (o *Order) ClearDomainEvents() {
	o.domainEvents = nil
}

// IncrementVersion is called by the repository after a successful write.
func (o *Order) IncrementVersion() {
	o.version++
}

func (o *Order) raise(events ...DomainEvent) {
	o.domainEvents = append(o.domainEvents, events...)
}

// authorize checks role authority for action and, for participant roles,
// that the actor is the participant holding that role on this order.
func (o *Order) authorize(actor Actor, action Action) error {
	if err := action.Authorize(actor.Role); err != nil {
		return err
	}
	switch actor.Role {
	case RoleBuyer:
		if !actor.ID.IsEqual(o.buyerID) {
			return errs.Workflowf(errs.CodeUnauthorizedRole, "actor %s is not the buyer of order %s", actor.ID, o.id)
		}
	case RoleSeller:
		if !actor.ID.IsEqual(o.sellerID) {
			return errs.Workflowf(errs.CodeUnauthorizedRole, "actor %s is not the seller of order %s", actor.ID, o.id)
		}
	case RoleSystem:
	}
	return nil
}

// moveTo records the transition in the audit trail and applies it.
func (o *Order) moveTo(next Status, actor Actor, action Action, note string, now time.Time) {
	o.audit = append(o.audit, AuditEntry{
		At:         now,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		FromStatus: o.status,
		ToStatus:   next,
		Note:       note,
	})
	o.status = next
}

func (o *Order) findDelivery(id kernel.UUID) *Delivery {
	for _, d := range o.deliveries {
		if d.id.IsEqual(id) {
			return d
		}
	}
	return nil
}

func (o *Order) findNegotiation(id kernel.UUID) *Negotiation {
	for _, n := range o.negotiations {
		if n.id.IsEqual(id) {
			return n
		}
	}
	return nil
}

func (o *Order) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.id = id
	return nil
}

func (o *Order) setParticipants(gigID, buyerID, sellerID kernel.UUID) error {
	if err := errors.Join(gigID.Validate(), buyerID.Validate(), sellerID.Validate()); err != nil {
		return err
	}
	if buyerID.IsEqual(sellerID) {
		return ErrBuyerIsSeller
	}
	o.gigID = gigID
	o.buyerID = buyerID
	o.sellerID = sellerID
	return nil
}

func (o *Order) setTerms(terms Terms) error {
	if err := terms.Validate(); err != nil {
		return err
	}
	o.terms = terms
	return nil
}

func (o *Order) setRequirements(requirements []*Requirement) error {
	for i, r := range requirements {
		if r == nil {
			return errs.NewValueIsRequiredError(fmt.Sprintf("requirements[%d]", i))
		}
	}
	o.requirements = slices.Clone(requirements)
	return nil
}
