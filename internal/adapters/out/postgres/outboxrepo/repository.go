package outboxrepo

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormOutboxRepository struct {
	db *gorm.DB
}

func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

func (r *GormOutboxRepository) Add(ctx context.Context, events ...order.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	dtos := make([]MessageDTO, 0, len(events))
	for _, e := range events {
		dto, err := fromEvent(e)
		if err != nil {
			return err
		}
		dtos = append(dtos, dto)
	}

	return r.db.WithContext(ctx).Create(&dtos).Error
}

// GetUnpublished locks the returned rows until the transaction ends; rows
// locked by another relay are skipped. A message waits while an earlier
// message of the same order is still backing off.
func (r *GormOutboxRepository) GetUnpublished(ctx context.Context, now time.Time, limit int) ([]ports.OutboxMessage, error) {
	var dtos []MessageDTO
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("published_at IS NULL AND failed_at IS NULL AND next_attempt_at <= ?", now).
		Where(`NOT EXISTS (
			SELECT 1 FROM outbox_messages earlier
			WHERE earlier.aggregate_id = outbox_messages.aggregate_id
			  AND earlier.published_at IS NULL AND earlier.failed_at IS NULL
			  AND earlier.occurred_at < outbox_messages.occurred_at
			  AND earlier.next_attempt_at > ?)`, now).
		Order("occurred_at").
		Limit(limit).
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}

	messages := make([]ports.OutboxMessage, 0, len(dtos))
	for _, dto := range dtos {
		messages = append(messages, toMessage(dto))
	}
	return messages, nil
}

func (r *GormOutboxRepository) MarkPublished(ctx context.Context, id kernel.UUID, at time.Time) error {
	return r.update(ctx, id, map[string]any{"published_at": at})
}

func (r *GormOutboxRepository) MarkFailed(
	ctx context.Context,
	id kernel.UUID,
	at time.Time,
	cause string,
	nextAttemptAt time.Time,
	giveUp bool,
) error {
	values := map[string]any{
		"attempts":        gorm.Expr("attempts + 1"),
		"last_error":      cause,
		"next_attempt_at": nextAttemptAt,
	}
	if giveUp {
		values["failed_at"] = at
	}
	return r.update(ctx, id, values)
}

func (r *GormOutboxRepository) update(ctx context.Context, id kernel.UUID, values map[string]any) error {
	result := r.db.WithContext(ctx).Model(&MessageDTO{}).Where("id = ?", id.Bytes()).Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NewObjectNotFoundError("outbox message", id.String())
	}
	return nil
}
