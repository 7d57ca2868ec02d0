package order_test

import (
	"slices"
	"testing"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_SubmitDelivery(t *testing.T) {
	t.Run("appends pending delivery with persisted deadline", func(t *testing.T) {
		f := newFixture(t, nil).inProgress(t)
		now := f.tick(2 * time.Hour)

		d, err := f.order.SubmitDelivery(f.seller, "final files", []string{"files/logo.svg"}, f.policy, now)

		require.NoError(t, err)
		assert.Equal(t, order.Delivered, f.order.Status())
		assert.Equal(t, order.ApprovalPending, d.Approval())
		assert.Equal(t, now.Add(72*time.Hour), d.AutoApproveAt())
		assert.Equal(t, d, f.order.LatestDelivery())
		assert.Equal(t, d.AutoApproveAt(), *f.order.NextDeadline())
		assert.Contains(t, eventNames(f.order.DomainEvents()), "DeliverySubmitted")
	})

	t.Run("delivering before requirements is an invalid transition", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.order.SubmitDelivery(f.seller, "too early", nil, f.policy, f.now)

		require.ErrorIs(t, err, errs.ErrInvalidTransition)
		assert.Equal(t, order.Pending, f.order.Status())
		assert.Empty(t, f.order.Deliveries())
	})

	t.Run("buyer cannot deliver", func(t *testing.T) {
		f := newFixture(t, nil).inProgress(t)

		_, err := f.order.SubmitDelivery(f.buyer, "hi", nil, f.policy, f.now)

		require.ErrorIs(t, err, errs.ErrUnauthorizedRole)
	})

	t.Run("another seller cannot deliver", func(t *testing.T) {
		f := newFixture(t, nil).inProgress(t)
		other := order.Actor{ID: kernel.NewUUID(), Role: order.RoleSeller}

		_, err := f.order.SubmitDelivery(other, "hi", nil, f.policy, f.now)

		require.ErrorIs(t, err, errs.ErrUnauthorizedRole)
		assert.Equal(t, order.InProgress, f.order.Status())
	})

	t.Run("empty delivery is invalid", func(t *testing.T) {
		f := newFixture(t, nil).inProgress(t)

		_, err := f.order.SubmitDelivery(f.seller, "  ", nil, f.policy, f.now)

		require.ErrorIs(t, err, errs.ErrInvalidPayload)
		assert.Equal(t, order.InProgress, f.order.Status())
	})
}

func TestOrder_ApproveDelivery(t *testing.T) {
	t.Run("completes the order once", func(t *testing.T) {
		f := newFixture(t, nil).delivered(t)
		f.order.ClearDomainEvents()

		err := f.order.RespondToDelivery(f.buyer, kernel.UUID{}, order.DecisionApproveDelivery, "great", f.tick(time.Hour))

		require.NoError(t, err)
		assert.Equal(t, order.Completed, f.order.Status())
		assert.Equal(t, order.ApprovalApproved, f.order.LatestDelivery().Approval())
		assert.Equal(t, []string{"OrderCompleted"}, eventNames(f.order.DomainEvents()))
		completed := f.order.DomainEvents()[0].(order.OrderCompleted)
		assert.True(t, completed.BuyerID.IsEqual(f.buyer.ID))
		assert.True(t, completed.SellerID.IsEqual(f.seller.ID))
	})

	t.Run("answering an approved delivery is already resolved", func(t *testing.T) {
		f := newFixture(t, nil).delivered(t)
		deliveryID := f.order.LatestDelivery().ID()
		require.NoError(t, f.order.RespondToDelivery(f.buyer, deliveryID, order.DecisionApproveDelivery, "", f.now))
		before := f.order.Snapshot()
		f.order.ClearDomainEvents()

		err := f.order.RespondToDelivery(f.buyer, deliveryID, order.DecisionApproveDelivery, "", f.tick(time.Minute))

		require.ErrorIs(t, err, errs.ErrAlreadyResolved)
		assert.Equal(t, errs.CategoryIdempotent, errs.CategoryOf(err))
		assert.Equal(t, before, f.order.Snapshot())
		assert.Empty(t, f.order.DomainEvents())
	})

	t.Run("seller cannot approve", func(t *testing.T) {
		f := newFixture(t, nil).delivered(t)

		err := f.order.RespondToDelivery(f.seller, kernel.UUID{}, order.DecisionApproveDelivery, "", f.now)

		require.ErrorIs(t, err, errs.ErrUnauthorizedRole)
	})

	t.Run("unknown delivery", func(t *testing.T) {
		f := newFixture(t, nil).delivered(t)

		err := f.order.RespondToDelivery(f.buyer, kernel.NewUUID(), order.DecisionApproveDelivery, "", f.now)

		require.ErrorIs(t, err, errs.ErrObjectNotFound)
	})
}

func TestOrder_RequestRevision(t *testing.T) {
	t.Run("revision limit is enforced before mutation", func(t *testing.T) {
		const maxRevision = 3
		f := newFixture(t, intPtr(maxRevision))

		for i := 1; i <= maxRevision; i++ {
			f.delivered(t)
			err := f.order.RespondToDelivery(f.buyer, kernel.UUID{}, order.DecisionRequestRevision, "more contrast", f.tick(time.Hour))

			require.NoError(t, err)
			assert.Equal(t, i, f.order.RevisionCount())
			assert.Equal(t, order.InProgress, f.order.Status())
		}

		f.delivered(t)
		before := f.order.Snapshot()
		err := f.order.RespondToDelivery(f.buyer, kernel.UUID{}, order.DecisionRequestRevision, "one more", f.tick(time.Hour))

		require.ErrorIs(t, err, errs.ErrRevisionLimitExceeded)
		assert.Equal(t, maxRevision, f.order.RevisionCount())
		assert.Equal(t, order.Delivered, f.order.Status())
		assert.Equal(t, before, f.order.Snapshot())
	})

	t.Run("unlimited revisions when no limit is set", func(t *testing.T) {
		f := newFixture(t, nil)
		for range 5 {
			f.delivered(t)
			require.NoError(t, f.order.RespondToDelivery(f.buyer, kernel.UUID{}, order.DecisionRequestRevision, "", f.tick(time.Hour)))
		}
		assert.Equal(t, 5, f.order.RevisionCount())
	})

	t.Run("raises revision requested", func(t *testing.T) {
		f := newFixture(t, nil).delivered(t)
		f.order.ClearDomainEvents()

		require.NoError(t, f.order.RespondToDelivery(f.buyer, kernel.UUID{}, order.DecisionRequestRevision, "", f.now))

		events := f.order.DomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, 1, events[0].(order.RevisionRequested).RevisionCount)
		assert.Equal(t, order.ApprovalRevisionRequested, f.order.LatestDelivery().Approval())
	})
}

func TestOrder_AutoApproveDelivery(t *testing.T) {
	t.Run("not due before grace period", func(t *testing.T) {
		f := newFixture(t, nil).delivered(t)

		err := f.order.AutoApproveDelivery(f.system, f.tick(71*time.Hour))

		require.ErrorIs(t, err, errs.ErrNotDue)
		assert.Equal(t, order.Delivered, f.order.Status())
	})

	t.Run("approves after grace period", func(t *testing.T) {
		f := newFixture(t, nil).delivered(t)
		f.order.ClearDomainEvents()

		err := f.order.AutoApproveDelivery(f.system, f.tick(72*time.Hour))

		require.NoError(t, err)
		assert.Equal(t, order.Completed, f.order.Status())
		assert.Equal(t, []string{"DeliveryAutoApproved", "OrderCompleted"}, eventNames(f.order.DomainEvents()))
	})

	t.Run("loses the race against a manual approval", func(t *testing.T) {
		f := newFixture(t, nil).delivered(t)
		require.NoError(t, f.order.RespondToDelivery(f.buyer, kernel.UUID{}, order.DecisionApproveDelivery, "", f.tick(72*time.Hour)))

		err := f.order.AutoApproveDelivery(f.system, f.now)

		require.ErrorIs(t, err, errs.ErrAlreadyResolved)
		assert.Equal(t, 1, countEvents(f.order.DomainEvents(), "OrderCompleted"))
	})

	t.Run("manual approval loses the race against the scheduler", func(t *testing.T) {
		f := newFixture(t, nil).delivered(t)
		require.NoError(t, f.order.AutoApproveDelivery(f.system, f.tick(72*time.Hour)))

		err := f.order.RespondToDelivery(f.buyer, kernel.UUID{}, order.DecisionApproveDelivery, "", f.now)

		require.ErrorIs(t, err, errs.ErrAlreadyResolved)
		assert.Equal(t, 1, countEvents(f.order.DomainEvents(), "OrderCompleted"))
	})

	t.Run("only the scheduler may auto approve", func(t *testing.T) {
		f := newFixture(t, nil).delivered(t)

		require.ErrorIs(t, f.order.AutoApproveDelivery(f.buyer, f.tick(72*time.Hour)), errs.ErrUnauthorizedRole)
	})

	t.Run("cancel pending blocks auto approval", func(t *testing.T) {
		f := newFixture(t, nil).delivered(t)
		_, err := f.order.OpenNegotiation(f.buyer, mustCancel(t, "no longer needed for launch"), "", f.policy, f.now)
		require.NoError(t, err)

		err = f.order.AutoApproveDelivery(f.system, f.tick(72*time.Hour))

		require.ErrorIs(t, err, errs.ErrInvalidTransition)
		assert.Equal(t, order.CancelPending, f.order.Status())
	})
}

func TestOrder_DeliveryStepsWithPendingNegotiation(t *testing.T) {
	widerScope := "Logo design, five concepts"

	negotiations := []struct {
		name    string
		payload func(t *testing.T) order.Payload
	}{
		{"extend delivery", func(t *testing.T) order.Payload { return mustExtend(t, 3) }},
		{"modify scope", func(t *testing.T) order.Payload { return mustModify(t, nil, &widerScope) }},
		{"modify price", func(t *testing.T) order.Payload {
			price := usd(t, 6500)
			return mustModify(t, &price, nil)
		}},
	}

	steps := []struct {
		name      string
		apply     func(f *fixture) error
		status    order.Status
		completes bool
	}{
		{
			name: "buyer approval",
			apply: func(f *fixture) error {
				return f.order.RespondToDelivery(f.buyer, kernel.UUID{}, order.DecisionApproveDelivery, "", f.tick(time.Hour))
			},
			status:    order.Completed,
			completes: true,
		},
		{
			name: "auto approval",
			apply: func(f *fixture) error {
				return f.order.AutoApproveDelivery(f.system, f.tick(f.policy.DeliveryGracePeriod))
			},
			status:    order.Completed,
			completes: true,
		},
		{
			name: "revision request",
			apply: func(f *fixture) error {
				return f.order.RespondToDelivery(f.buyer, kernel.UUID{}, order.DecisionRequestRevision, "darker", f.tick(time.Hour))
			},
			status: order.InProgress,
		},
	}

	for _, neg := range negotiations {
		for _, step := range steps {
			t.Run(neg.name+" then "+step.name, func(t *testing.T) {
				f := newFixture(t, nil).inProgress(t)
				n, err := f.order.OpenNegotiation(f.seller, neg.payload(t), "", f.policy, f.tick(time.Hour))
				require.NoError(t, err)

				f.delivered(t)
				require.NoError(t, f.order.CheckIntegrity())
				require.NotNil(t, f.order.CurrentNegotiationID())
				f.order.ClearDomainEvents()

				require.NoError(t, step.apply(f))

				assert.Equal(t, step.status, f.order.Status())
				require.NoError(t, f.order.CheckIntegrity())
				if !step.completes {
					assert.Equal(t, n.ID(), *f.order.CurrentNegotiationID())
					assert.Equal(t, order.NegotiationPending, n.Status())
					return
				}

				assert.Nil(t, f.order.CurrentNegotiationID())
				assert.Equal(t, order.NegotiationExpired, n.Status())
				events := eventNames(f.order.DomainEvents())
				assert.Equal(t, 1, countEvents(f.order.DomainEvents(), "OrderCompleted"))
				assert.Less(t, slices.Index(events, "NegotiationResolved"), slices.Index(events, "OrderCompleted"))
				assert.NotEqual(t, -1, slices.Index(events, "NegotiationResolved"))

				err = f.order.RespondToNegotiation(f.buyer, n.ID(), order.DecisionApprove, f.tick(time.Minute))
				require.ErrorIs(t, err, errs.ErrAlreadyResolved)
				assert.Equal(t, order.Completed, f.order.Status())
			})
		}
	}

	t.Run("pending cancellation blocks every delivery step", func(t *testing.T) {
		f := newFixture(t, nil).inProgress(t)
		_, err := f.order.OpenNegotiation(f.buyer, mustCancel(t, "found another designer"), "", f.policy, f.tick(time.Hour))
		require.NoError(t, err)

		_, err = f.order.SubmitDelivery(f.seller, "final", nil, f.policy, f.tick(time.Hour))
		require.ErrorIs(t, err, errs.ErrInvalidTransition)

		err = f.order.AutoApproveDelivery(f.system, f.tick(f.policy.DeliveryGracePeriod))
		require.ErrorIs(t, err, errs.ErrAlreadyResolved)

		assert.Equal(t, order.CancelPending, f.order.Status())
		require.NoError(t, f.order.CheckIntegrity())
	})
}
