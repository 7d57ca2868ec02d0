package commands_test

import (
	"testing"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreateOrderCommand_ValidInput(t *testing.T) {
	id, gig, buyer, seller := kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID()
	specs := []commands.RequirementSpec{{Question: "Brand colors?", Required: true}}

	cmd, err := commands.NewCreateOrderCommand(id, gig, buyer, seller, newTerms(t), specs)

	require.NoError(t, err)
	require.NoError(t, cmd.Validate())
	assert.Equal(t, id, cmd.OrderID())
	assert.Equal(t, buyer, cmd.BuyerID())
	assert.Equal(t, seller, cmd.SellerID())
	assert.Equal(t, specs, cmd.Requirements())
}

func TestNewCreateOrderCommand_InvalidInput(t *testing.T) {
	terms := newTerms(t)

	t.Run("order id", func(t *testing.T) {
		_, err := commands.NewCreateOrderCommand(kernel.UUID{}, kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(), terms, nil)
		require.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)
	})

	t.Run("seller", func(t *testing.T) {
		_, err := commands.NewCreateOrderCommand(kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(), kernel.UUID{}, terms, nil)
		require.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)
	})

	t.Run("terms", func(t *testing.T) {
		_, err := commands.NewCreateOrderCommand(kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(), order.Terms{}, nil)
		require.Error(t, err)
	})

	t.Run("blank question", func(t *testing.T) {
		specs := []commands.RequirementSpec{{Question: "Logo text?"}, {Question: "  "}}
		_, err := commands.NewCreateOrderCommand(kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(), terms, specs)
		require.ErrorIs(t, err, errs.ErrValueIsRequired)
		assert.ErrorContains(t, err, "requirements[1].question")
	})
}

func TestCreateOrderCommand_ZeroValueIsNotConstructed(t *testing.T) {
	var cmd commands.CreateOrderCommand
	require.ErrorIs(t, cmd.Validate(), commands.ErrCreateOrderCommandIsNotConstructed)
}
