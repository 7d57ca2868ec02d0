package order

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

// NegotiationType is the kind of change a negotiation proposes.
type NegotiationType int

const (
	UnknownNegotiationType NegotiationType = iota
	ExtendDelivery
	CancelOrder
	ModifyOrder
)

func (t NegotiationType) String() string {
	switch t {
	case ExtendDelivery:
		return "EXTEND_DELIVERY"
	case CancelOrder:
		return "CANCEL_ORDER"
	case ModifyOrder:
		return "MODIFY_ORDER"
	default:
		return "UNKNOWN"
	}
}

func ParseNegotiationType(s string) (NegotiationType, error) {
	for _, t := range []NegotiationType{ExtendDelivery, CancelOrder, ModifyOrder} {
		if t.String() == s {
			return t, nil
		}
	}
	return UnknownNegotiationType, errs.Workflowf(errs.CodeInvalidPayload, "%q is not a negotiation type", s)
}

// allowedFrom lists the order statuses in which a negotiation of this type may be opened.
func (t NegotiationType) allowedFrom() []Status {
	switch t {
	case ExtendDelivery:
		return []Status{InProgress}
	case CancelOrder:
		return []Status{InProgress, Delivered}
	case ModifyOrder:
		return []Status{Active, InProgress}
	default:
		return nil
	}
}

// Payload is the closed set of negotiation proposals. The only
// implementations are ExtendDeliveryPayload, CancelOrderPayload and
// ModifyOrderPayload; use a PayloadVisitor to branch on them.
type Payload interface {
	Type() NegotiationType
	Accept(v PayloadVisitor) error
	sealed()
}

// PayloadVisitor dispatches on the concrete payload.
type PayloadVisitor interface {
	VisitExtendDelivery(p ExtendDeliveryPayload) error
	VisitCancelOrder(p CancelOrderPayload) error
	VisitModifyOrder(p ModifyOrderPayload) error
}

// ExtendDeliveryPayload asks for more days. OriginalDueDate is stamped when
// the negotiation is opened.
type ExtendDeliveryPayload struct {
	days            int
	originalDueDate time.Time
}

// NewExtendDeliveryPayload requires a positive number of days.
func NewExtendDeliveryPayload(days int) (ExtendDeliveryPayload, error) {
	if days <= 0 {
		return ExtendDeliveryPayload{}, errs.Workflowf(errs.CodeInvalidPayload, "extension must be a positive number of days, got %d", days)
	}
	return ExtendDeliveryPayload{days: days}, nil
}

// RestoreExtendDeliveryPayload rebuilds a persisted payload.
func RestoreExtendDeliveryPayload(days int, originalDueDate time.Time) ExtendDeliveryPayload {
	return ExtendDeliveryPayload{days: days, originalDueDate: originalDueDate}
}

func (p ExtendDeliveryPayload) Days() int                  { return p.days }
func (p ExtendDeliveryPayload) OriginalDueDate() time.Time { return p.originalDueDate }
func (p ExtendDeliveryPayload) Type() NegotiationType      { return ExtendDelivery }
func (p ExtendDeliveryPayload) Accept(v PayloadVisitor) error {
	return v.VisitExtendDelivery(p)
}
func (ExtendDeliveryPayload) sealed() {}

// CancelOrderPayload carries the reason for a cancellation request.
type CancelOrderPayload struct {
	reason string
}

// NewCancelOrderPayload requires a non-blank reason. The minimum length is a
// policy and is checked when the negotiation is opened.
func NewCancelOrderPayload(reason string) (CancelOrderPayload, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return CancelOrderPayload{}, errs.Workflowf(errs.CodeInvalidPayload, "cancellation reason is required")
	}
	return CancelOrderPayload{reason: reason}, nil
}

func RestoreCancelOrderPayload(reason string) CancelOrderPayload {
	return CancelOrderPayload{reason: reason}
}

func (p CancelOrderPayload) Reason() string        { return p.reason }
func (p CancelOrderPayload) Type() NegotiationType { return CancelOrder }
func (p CancelOrderPayload) Accept(v PayloadVisitor) error {
	return v.VisitCancelOrder(p)
}
func (CancelOrderPayload) sealed() {}

// ModifyOrderPayload proposes a new unit price, a new scope, or both.
type ModifyOrderPayload struct {
	newPrice *kernel.Money
	newScope *string
}

// NewModifyOrderPayload requires at least one change. A price must be a
// constructed, positive amount; a scope must not be blank.
func NewModifyOrderPayload(newPrice *kernel.Money, newScope *string) (ModifyOrderPayload, error) {
	if newPrice == nil && newScope == nil {
		return ModifyOrderPayload{}, errs.Workflowf(errs.CodeInvalidPayload, "modification needs a new price or a new scope")
	}

	p := ModifyOrderPayload{}
	if newPrice != nil {
		if err := newPrice.Validate(); err != nil {
			return ModifyOrderPayload{}, errs.NewWorkflowErrorWithCause(errs.CodeInvalidPayload, "new price is invalid", err)
		}
		if newPrice.IsZero() {
			return ModifyOrderPayload{}, errs.Workflowf(errs.CodeInvalidPayload, "new price must be positive")
		}
		price := *newPrice
		p.newPrice = &price
	}
	if newScope != nil {
		scope := strings.TrimSpace(*newScope)
		if scope == "" {
			return ModifyOrderPayload{}, errs.Workflowf(errs.CodeInvalidPayload, "new scope must not be blank")
		}
		p.newScope = &scope
	}
	return p, nil
}

func RestoreModifyOrderPayload(newPrice *kernel.Money, newScope *string) ModifyOrderPayload {
	return ModifyOrderPayload{newPrice: newPrice, newScope: newScope}
}

func (p ModifyOrderPayload) NewPrice() *kernel.Money { return p.newPrice }
func (p ModifyOrderPayload) NewScope() *string       { return p.newScope }
func (p ModifyOrderPayload) Type() NegotiationType   { return ModifyOrder }
func (p ModifyOrderPayload) Accept(v PayloadVisitor) error {
	return v.VisitModifyOrder(p)
}
func (ModifyOrderPayload) sealed() {}

// payloadValidator checks a payload against the order it is opened on.
type payloadValidator struct {
	order  *Order
	policy Policy
}

func (v payloadValidator) VisitExtendDelivery(p ExtendDeliveryPayload) error {
	if p.days <= 0 {
		return errs.Workflowf(errs.CodeInvalidPayload, "extension must be a positive number of days, got %d", p.days)
	}
	return nil
}

func (v payloadValidator) VisitCancelOrder(p CancelOrderPayload) error {
	n := utf8.RuneCountInString(strings.TrimSpace(p.reason))
	if n < v.policy.MinCancelReasonLength {
		return errs.Workflowf(errs.CodeInvalidPayload,
			"cancellation reason must be at least %d characters, got %d", v.policy.MinCancelReasonLength, n)
	}
	return nil
}

func (v payloadValidator) VisitModifyOrder(p ModifyOrderPayload) error {
	if p.newPrice == nil && p.newScope == nil {
		return errs.Workflowf(errs.CodeInvalidPayload, "modification needs a new price or a new scope")
	}
	if p.newPrice != nil {
		if p.newPrice.Currency() != v.order.terms.pricing.Currency() {
			return errs.Workflowf(errs.CodeInvalidPayload, "new price currency %s differs from order currency %s",
				p.newPrice.Currency(), v.order.terms.pricing.Currency())
		}
		if p.newPrice.IsZero() {
			return errs.Workflowf(errs.CodeInvalidPayload, "new price must be positive")
		}
	}
	return nil
}

// PriceIncrease reports whether approving p would raise the order total, and
// the proposed total. It is used to ask the payment collaborator for an
// adjustment before the modification is committed.
func (p ModifyOrderPayload) PriceIncrease(current Pricing) (bool, kernel.Money, error) {
	if p.newPrice == nil {
		return false, current.Total(), nil
	}
	next, err := current.WithPrice(*p.newPrice)
	if err != nil {
		return false, kernel.Money{}, fmt.Errorf("recompute pricing: %w", err)
	}
	gt, err := next.Total().GreaterThan(current.Total())
	if err != nil {
		return false, kernel.Money{}, err
	}
	return gt, next.Total(), nil
}
