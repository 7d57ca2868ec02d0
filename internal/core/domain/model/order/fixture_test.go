package order_test

import (
	"testing"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	order  *order.Order
	buyer  order.Actor
	seller order.Actor
	system order.Actor
	policy order.Policy
	now    time.Time
}

func usd(t *testing.T, cents int64) kernel.Money {
	t.Helper()
	m, err := kernel.NewMoney(cents, "USD")
	require.NoError(t, err)
	return m
}

func intPtr(v int) *int { return &v }

func newTerms(t *testing.T, maxRevision *int) order.Terms {
	t.Helper()
	pricing, err := order.NewPricing(usd(t, 5000), 2, usd(t, 500))
	require.NoError(t, err)
	terms, err := order.NewTerms(pricing, "Logo design, three concepts", 5, maxRevision)
	require.NoError(t, err)
	return terms
}

// newFixture returns a PENDING order with one required requirement.
func newFixture(t *testing.T, maxRevision *int) *fixture {
	t.Helper()
	buyer := order.Actor{ID: kernel.NewUUID(), Role: order.RoleBuyer}
	seller := order.Actor{ID: kernel.NewUUID(), Role: order.RoleSeller}

	req, err := order.NewRequirement(kernel.NewUUID(), "Brand colors?", true, false)
	require.NoError(t, err)

	o, err := order.NewOrder(kernel.NewUUID(), kernel.NewUUID(), buyer.ID, seller.ID,
		newTerms(t, maxRevision), []*order.Requirement{req}, t0)
	require.NoError(t, err)

	return &fixture{
		order:  o,
		buyer:  buyer,
		seller: seller,
		system: order.SystemActor(),
		policy: order.DefaultPolicy(),
		now:    t0,
	}
}

func (f *fixture) tick(d time.Duration) time.Time {
	f.now = f.now.Add(d)
	return f.now
}

func (f *fixture) active(t *testing.T) *fixture {
	t.Helper()
	require.NoError(t, f.order.ConfirmPayment(f.system, f.tick(time.Minute)))
	return f
}

func (f *fixture) inProgress(t *testing.T) *fixture {
	t.Helper()
	f.active(t)
	answers := []order.RequirementAnswer{{RequirementID: f.order.Requirements()[0].ID(), Answer: "navy and gold"}}
	require.NoError(t, f.order.SubmitRequirements(f.buyer, answers, f.tick(time.Hour)))
	return f
}

func (f *fixture) delivered(t *testing.T) *fixture {
	t.Helper()
	if f.order.Status() != order.InProgress {
		f.inProgress(t)
	}
	_, err := f.order.SubmitDelivery(f.seller, "first draft", []string{"files/draft.png"}, f.policy, f.tick(24*time.Hour))
	require.NoError(t, err)
	return f
}

func eventNames(events []order.DomainEvent) []string {
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.EventName())
	}
	return names
}

func countEvents(events []order.DomainEvent, name string) int {
	n := 0
	for _, e := range events {
		if e.EventName() == name {
			n++
		}
	}
	return n
}

func mustExtend(t *testing.T, days int) order.ExtendDeliveryPayload {
	t.Helper()
	p, err := order.NewExtendDeliveryPayload(days)
	require.NoError(t, err)
	return p
}

func mustCancel(t *testing.T, reason string) order.CancelOrderPayload {
	t.Helper()
	p, err := order.NewCancelOrderPayload(reason)
	require.NoError(t, err)
	return p
}

func mustModify(t *testing.T, price *kernel.Money, scope *string) order.ModifyOrderPayload {
	t.Helper()
	p, err := order.NewModifyOrderPayload(price, scope)
	require.NoError(t, err)
	return p
}
