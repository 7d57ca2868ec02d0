package ports

import (
	"context"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
)

// EventPublisher delivers outbox messages to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, msg OutboxMessage) error
	Close() error
}

// PaymentAuthorizer asks the payment service whether the buyer's payment
// may be raised to newTotal.
type PaymentAuthorizer interface {
	AuthorizeAdjustment(ctx context.Context, orderID, buyerID kernel.UUID, newTotal kernel.Money) error
}

// ReviewLookup answers whether a participant has already reviewed an order.
type ReviewLookup interface {
	HasReview(ctx context.Context, orderID kernel.UUID, role order.Role) (bool, error)
}

// Metrics receives workflow measurements.
type Metrics interface {
	ActionExecuted(action order.Action, outcome string)
	ConcurrencyRetried(action order.Action)
	AggregateQuarantined()
	TickProcessed(job string, processed, failed int)
	OutboxRelayed(published, failed int)
}
