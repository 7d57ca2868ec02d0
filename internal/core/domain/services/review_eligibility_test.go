package services_test

import (
	"testing"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedOrder(t *testing.T) (*order.Order, participants) {
	t.Helper()
	w := newWorkflow(t)
	o, p := newOrder(t)
	require.NoError(t, w.Apply(o, order.SystemActor(), services.ConfirmPayment{}, now))
	require.NoError(t, w.Apply(o, p.buyer, services.SubmitRequirements{}, now))
	require.NoError(t, w.Apply(o, p.seller, services.SubmitDelivery{Message: "done"}, now))
	require.NoError(t, w.Apply(o, p.buyer, services.RespondToDelivery{Decision: order.DecisionApproveDelivery}, now))
	return o, p
}

func TestEvaluateReviewEligibility(t *testing.T) {
	t.Run("completed and not reviewed", func(t *testing.T) {
		o, p := completedOrder(t)

		for _, actor := range []order.Actor{p.buyer, p.seller} {
			got, err := services.EvaluateReviewEligibility(o, actor, false)
			require.NoError(t, err)
			assert.True(t, got.Eligible)
			assert.Equal(t, actor.Role, got.Role)
		}
	})

	t.Run("already reviewed", func(t *testing.T) {
		o, p := completedOrder(t)

		got, err := services.EvaluateReviewEligibility(o, p.buyer, true)

		require.NoError(t, err)
		assert.False(t, got.Eligible)
		assert.Equal(t, "already reviewed", got.Reason)
	})

	t.Run("not completed", func(t *testing.T) {
		o, p := newOrder(t)

		got, err := services.EvaluateReviewEligibility(o, p.seller, false)

		require.NoError(t, err)
		assert.False(t, got.Eligible)
		assert.Equal(t, "order is PENDING", got.Reason)
	})

	t.Run("stranger", func(t *testing.T) {
		o, _ := completedOrder(t)
		stranger := order.Actor{ID: kernel.NewUUID(), Role: order.RoleBuyer}

		_, err := services.EvaluateReviewEligibility(o, stranger, false)

		require.ErrorIs(t, err, errs.ErrNotParticipant)
	})

	t.Run("system", func(t *testing.T) {
		o, _ := completedOrder(t)

		_, err := services.EvaluateReviewEligibility(o, order.SystemActor(), false)

		require.ErrorIs(t, err, errs.ErrUnauthorizedRole)
	})
}

func TestAuthorizeParticipant(t *testing.T) {
	o, p := newOrder(t)

	require.NoError(t, services.AuthorizeParticipant(o, p.buyer))
	require.NoError(t, services.AuthorizeParticipant(o, p.seller))
	require.NoError(t, services.AuthorizeParticipant(o, order.SystemActor()))
	require.ErrorIs(t,
		services.AuthorizeParticipant(o, order.Actor{ID: kernel.NewUUID(), Role: order.RoleSeller}),
		errs.ErrNotParticipant)
}
