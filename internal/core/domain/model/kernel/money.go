package kernel

import (
	"errors"
	"fmt"
	"strings"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

// ErrMoneyIsNotConstructed is returned when a zero-value Money is used.
var ErrMoneyIsNotConstructed = errs.NewValueIsRequiredError("money must be created via NewMoney")

// ErrCurrencyMismatch is returned when combining amounts of different currencies.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// Money is an amount in minor units (cents) of a currency. Amounts are never
// negative; arithmetic between different currencies is rejected.
//
//	price, _ := kernel.NewMoney(2500, "USD") // 25.00 USD
//	total, _ := price.Mul(3)                 // 75.00 USD
type Money struct { //nolint:recvcheck //using for validation
	amount   int64
	currency string
	guard    guard.ConstructorGuard
}

// NewMoney validates the amount and normalizes the currency code to upper case.
func NewMoney(amount int64, currency string) (Money, error) {
	m := Money{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(m.setAmount(amount), m.setCurrency(currency)); err != nil {
		return Money{}, err
	}

	return m, nil
}

// ZeroMoney returns a zero amount in the given currency.
func ZeroMoney(currency string) (Money, error) {
	return NewMoney(0, currency)
}

func (m Money) Validate() error {
	return m.guard.Validate(ErrMoneyIsNotConstructed)
}

func (m Money) Amount() int64 {
	return m.amount
}

func (m Money) Currency() string {
	return m.currency
}

func (m Money) IsZero() bool {
	return m.amount == 0
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.amount/100, m.amount%100, m.currency)
}

func (m Money) IsEqual(other Money) bool {
	return m.amount == other.amount && m.currency == other.currency
}

// Add sums two amounts of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return NewMoney(m.amount+other.amount, m.currency)
}

// Mul multiplies the amount by a positive quantity.
func (m Money) Mul(quantity int) (Money, error) {
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	if quantity <= 0 {
		return Money{}, errs.NewValueIsInvalidErrorWithCause(
			"quantity", fmt.Errorf("%d is not greater than 0", quantity))
	}
	return NewMoney(m.amount*int64(quantity), m.currency)
}

// GreaterThan compares two amounts of the same currency.
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.amount > other.amount, nil
}

func (m Money) sameCurrency(other Money) error {
	if err := errors.Join(m.Validate(), other.Validate()); err != nil {
		return err
	}
	if m.currency != other.currency {
		return errs.NewValueIsInvalidErrorWithCause("currency",
			fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency))
	}
	return nil
}

func (m *Money) setAmount(amount int64) error {
	if amount < 0 {
		return errs.NewValueIsInvalidErrorWithCause("amount", fmt.Errorf("%d is negative", amount))
	}
	m.amount = amount
	return nil
}

func (m *Money) setCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return errs.NewValueIsRequiredError("currency")
	}
	if len(currency) != 3 {
		return errs.NewValueIsInvalidErrorWithCause("currency", fmt.Errorf("%q is not an ISO 4217 code", currency))
	}
	m.currency = currency
	return nil
}
