package commands

import (
	"errors"
	"fmt"
	"strings"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var ErrCreateOrderCommandIsNotConstructed = errors.New(
	"CreateOrderCommand must be created via NewCreateOrderCommand constructor",
)

// RequirementSpec is a question the buyer must answer before work starts.
type RequirementSpec struct {
	Question string
	Required bool
	HasFile  bool
}

// CreateOrderCommand records an order whose payment was captured. The order
// starts PENDING; the payment service activates it with CONFIRM_PAYMENT.
//
// Example:
//
//	pricing, _ := order.NewPricing(price, 1, fee)
//	terms, _ := order.NewTerms(pricing, "Logo design", 5, nil)
//	cmd, err := NewCreateOrderCommand(orderID, gigID, buyerID, sellerID, terms, []RequirementSpec{
//	    {Question: "Brand colors?", Required: true},
//	})
//	if err != nil {
//	    return fmt.Errorf("invalid order data: %w", err)
//	}
//	if err := handler.Handle(ctx, cmd); err != nil {
//	    return fmt.Errorf("failed to create order: %w", err)
//	}
type CreateOrderCommand struct { //nolint:recvcheck //using for validation
	orderID      kernel.UUID
	gigID        kernel.UUID
	buyerID      kernel.UUID
	sellerID     kernel.UUID
	terms        order.Terms
	requirements []RequirementSpec

	guard guard.ConstructorGuard
}

func NewCreateOrderCommand(
	orderID, gigID, buyerID, sellerID kernel.UUID,
	terms order.Terms,
	requirements []RequirementSpec,
) (CreateOrderCommand, error) {
	orderCommand := CreateOrderCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		orderCommand.setOrderID(orderID),
		orderCommand.setParticipants(gigID, buyerID, sellerID),
		orderCommand.setTerms(terms),
		orderCommand.setRequirements(requirements),
	); err != nil {
		return CreateOrderCommand{}, err
	}

	return orderCommand, nil
}

// Validate ensures the command was created through the constructor.
func (c CreateOrderCommand) Validate() error {
	return c.guard.Validate(ErrCreateOrderCommandIsNotConstructed)
}

func (c CreateOrderCommand) OrderID() kernel.UUID  { return c.orderID }
func (c CreateOrderCommand) GigID() kernel.UUID    { return c.gigID }
func (c CreateOrderCommand) BuyerID() kernel.UUID  { return c.buyerID }
func (c CreateOrderCommand) SellerID() kernel.UUID { return c.sellerID }
func (c CreateOrderCommand) Terms() order.Terms    { return c.terms }

func (c CreateOrderCommand) Requirements() []RequirementSpec {
	return append([]RequirementSpec(nil), c.requirements...)
}

func (c *CreateOrderCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	c.orderID = orderID
	return nil
}

func (c *CreateOrderCommand) setParticipants(gigID, buyerID, sellerID kernel.UUID) error {
	if err := errors.Join(gigID.Validate(), buyerID.Validate(), sellerID.Validate()); err != nil {
		return err
	}

	c.gigID = gigID
	c.buyerID = buyerID
	c.sellerID = sellerID
	return nil
}

func (c *CreateOrderCommand) setTerms(terms order.Terms) error {
	if err := terms.Validate(); err != nil {
		return err
	}

	c.terms = terms
	return nil
}

func (c *CreateOrderCommand) setRequirements(requirements []RequirementSpec) error {
	for i, r := range requirements {
		if strings.TrimSpace(r.Question) == "" {
			return errs.NewValueIsRequiredError(fmt.Sprintf("requirements[%d].question", i))
		}
	}

	c.requirements = append([]RequirementSpec(nil), requirements...)
	return nil
}
