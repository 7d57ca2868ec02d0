// Package ports defines the contracts between the workflow core and its
// infrastructure: persistence, the event outbox and the external
// collaborators reached after commit.
package ports

import (
	"context"
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
)

// ErrQuarantined is the cause carried by the CORRUPT_AGGREGATE error returned
// when loading a quarantined order.
var ErrQuarantined = errors.New("order is quarantined")

// OrderRepository defines the persistence contract for order aggregates.
// The aggregate is always written as a whole, child entities included.
type OrderRepository interface {
	// Add persists a new order aggregate.
	Add(ctx context.Context, aggregate *order.Order) error

	// Update persists an existing aggregate if its stored version still
	// equals aggregate.Version(), and bumps the version. A lost race is
	// reported as errs.ErrConcurrencyConflict.
	Update(ctx context.Context, aggregate *order.Order) error

	// Get loads an order aggregate. It returns errs.ErrOrderNotFound for an
	// unknown id and errs.ErrCorruptAggregate for a quarantined order or a
	// row that cannot be restored.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// GetDueForAutoApproval returns DELIVERED orders whose pending delivery
	// reached its auto-approval deadline at now, oldest deadline first.
	GetDueForAutoApproval(ctx context.Context, now time.Time, limit int) ([]kernel.UUID, error)

	// GetWithStaleNegotiations returns orders whose pending negotiation
	// expired at now, oldest first.
	GetWithStaleNegotiations(ctx context.Context, now time.Time, limit int) ([]kernel.UUID, error)

	// Quarantine marks an order so that every later load fails until an
	// operator releases it.
	Quarantine(ctx context.Context, id kernel.UUID, reason string, at time.Time) error

	// ReleaseQuarantine clears the quarantine mark.
	ReleaseQuarantine(ctx context.Context, id kernel.UUID) error
}
