package order

import (
	"errors"
	"fmt"
	"strings"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var (
	ErrPricingIsNotConstructed = errs.NewValueIsRequiredError("pricing must be created via NewPricing")
	ErrTermsIsNotConstructed   = errs.NewValueIsRequiredError("terms must be created via NewTerms")
)

// Pricing is the commercial snapshot taken at purchase time. The total is
// always price * quantity + service fee, all in one currency.
type Pricing struct { //nolint:recvcheck //using for validation
	price      kernel.Money
	quantity   int
	serviceFee kernel.Money
	total      kernel.Money
	guard      guard.ConstructorGuard
}

func NewPricing(price kernel.Money, quantity int, serviceFee kernel.Money) (Pricing, error) {
	p := Pricing{guard: guard.NewConstructorGuard()}

	if err := errors.Join(p.setPrice(price), p.setQuantity(quantity), p.setServiceFee(serviceFee)); err != nil {
		return Pricing{}, err
	}

	subtotal, err := price.Mul(quantity)
	if err != nil {
		return Pricing{}, err
	}
	total, err := subtotal.Add(serviceFee)
	if err != nil {
		return Pricing{}, err
	}
	p.total = total

	return p, nil
}

// RestorePricing rebuilds a persisted snapshot and rejects a stored total that
// does not match its components.
func RestorePricing(price kernel.Money, quantity int, serviceFee, total kernel.Money) (Pricing, error) {
	p, err := NewPricing(price, quantity, serviceFee)
	if err != nil {
		return Pricing{}, err
	}
	if !p.total.IsEqual(total) {
		return Pricing{}, errs.NewValueIsInvalidErrorWithCause("total",
			fmt.Errorf("stored total %s does not match computed %s", total, p.total))
	}
	return p, nil
}

func (p Pricing) Validate() error {
	return p.guard.Validate(ErrPricingIsNotConstructed)
}

func (p Pricing) Price() kernel.Money      { return p.price }
func (p Pricing) Quantity() int            { return p.quantity }
func (p Pricing) ServiceFee() kernel.Money { return p.serviceFee }
func (p Pricing) Total() kernel.Money      { return p.total }
func (p Pricing) Currency() string         { return p.price.Currency() }

// WithPrice returns the pricing recomputed for a new unit price.
func (p Pricing) WithPrice(price kernel.Money) (Pricing, error) {
	return NewPricing(price, p.quantity, p.serviceFee)
}

func (p *Pricing) setPrice(price kernel.Money) error {
	if err := price.Validate(); err != nil {
		return err
	}
	p.price = price
	return nil
}

func (p *Pricing) setQuantity(quantity int) error {
	if quantity <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("quantity", fmt.Errorf("%d is not greater than 0", quantity))
	}
	p.quantity = quantity
	return nil
}

func (p *Pricing) setServiceFee(fee kernel.Money) error {
	if err := fee.Validate(); err != nil {
		return err
	}
	p.serviceFee = fee
	return nil
}

// Terms are the parts of an order a MODIFY_ORDER negotiation may change,
// together with the delivery window and revision allowance.
type Terms struct { //nolint:recvcheck //using for validation
	pricing      Pricing
	scope        string
	deliveryDays int
	maxRevision  *int
	guard        guard.ConstructorGuard
}

// NewTerms validates the purchase terms. A nil maxRevision means unlimited revisions.
func NewTerms(pricing Pricing, scope string, deliveryDays int, maxRevision *int) (Terms, error) {
	t := Terms{guard: guard.NewConstructorGuard()}

	if err := errors.Join(
		t.setPricing(pricing),
		t.setScope(scope),
		t.setDeliveryDays(deliveryDays),
		t.setMaxRevision(maxRevision),
	); err != nil {
		return Terms{}, err
	}

	return t, nil
}

func (t Terms) Validate() error {
	return t.guard.Validate(ErrTermsIsNotConstructed)
}

func (t Terms) Pricing() Pricing  { return t.pricing }
func (t Terms) Scope() string     { return t.scope }
func (t Terms) DeliveryDays() int { return t.deliveryDays }
func (t Terms) MaxRevision() *int { return t.maxRevision }

func (t Terms) withPricing(p Pricing) Terms {
	t.pricing = p
	return t
}

func (t Terms) withScope(scope string) Terms {
	t.scope = scope
	return t
}

func (t *Terms) setPricing(p Pricing) error {
	if err := p.Validate(); err != nil {
		return err
	}
	t.pricing = p
	return nil
}

func (t *Terms) setScope(scope string) error {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return errs.NewValueIsRequiredError("scope")
	}
	t.scope = scope
	return nil
}

func (t *Terms) setDeliveryDays(days int) error {
	if days <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("deliveryDays", fmt.Errorf("%d is not greater than 0", days))
	}
	t.deliveryDays = days
	return nil
}

func (t *Terms) setMaxRevision(maxRevision *int) error {
	if maxRevision == nil {
		t.maxRevision = nil
		return nil
	}
	if *maxRevision < 0 {
		return errs.NewValueIsInvalidErrorWithCause("maxRevision", fmt.Errorf("%d is negative", *maxRevision))
	}
	v := *maxRevision
	t.maxRevision = &v
	return nil
}
