package ports

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
)

// OutboxMessage is a domain event stored in the same transaction as the
// aggregate change that raised it.
type OutboxMessage struct {
	ID          kernel.UUID
	AggregateID kernel.UUID
	EventName   string
	Payload     []byte
	OccurredAt  time.Time
	Attempts    int
}

// OutboxRepository stores domain events and tracks their delivery.
type OutboxRepository interface {
	// Add stores events as unpublished messages.
	Add(ctx context.Context, events ...order.DomainEvent) error

	// GetUnpublished returns messages ready for an attempt at now, in the
	// order they were raised.
	GetUnpublished(ctx context.Context, now time.Time, limit int) ([]OutboxMessage, error)

	MarkPublished(ctx context.Context, id kernel.UUID, at time.Time) error

	// MarkFailed records a failed attempt made at at. When giveUp is set the
	// message is parked at that time and never retried.
	MarkFailed(ctx context.Context, id kernel.UUID, at time.Time, cause string, nextAttemptAt time.Time, giveUp bool) error
}
