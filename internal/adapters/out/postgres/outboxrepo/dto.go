// Package outboxrepo stores domain events next to the order changes that
// raised them and lets the relay claim them for publishing.
package outboxrepo

import (
	"encoding/json"
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"

	"github.com/google/uuid"
)

type MessageDTO struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	AggregateID   uuid.UUID  `gorm:"type:uuid;not null"`
	EventName     string     `gorm:"type:varchar(64);not null"`
	Payload       []byte     `gorm:"type:jsonb;not null"`
	OccurredAt    time.Time  `gorm:"not null"`
	Attempts      int        `gorm:"not null"`
	NextAttemptAt time.Time  `gorm:"not null"`
	LastError     string     `gorm:"type:text;not null"`
	PublishedAt   *time.Time `gorm:"type:timestamptz"`
	FailedAt      *time.Time `gorm:"type:timestamptz"`
}

func (MessageDTO) TableName() string {
	return "outbox_messages"
}

func fromEvent(e order.DomainEvent) (MessageDTO, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return MessageDTO{}, fmt.Errorf("encode %s: %w", e.EventName(), err)
	}
	return MessageDTO{
		ID:            e.EventID().Bytes(),
		AggregateID:   e.AggregateID().Bytes(),
		EventName:     e.EventName(),
		Payload:       payload,
		OccurredAt:    e.OccurredAt(),
		NextAttemptAt: e.OccurredAt(),
	}, nil
}

func toMessage(dto MessageDTO) ports.OutboxMessage {
	return ports.OutboxMessage{
		ID:          kernel.UUIDFromGoogle(dto.ID),
		AggregateID: kernel.UUIDFromGoogle(dto.AggregateID),
		EventName:   dto.EventName,
		Payload:     dto.Payload,
		OccurredAt:  dto.OccurredAt,
		Attempts:    dto.Attempts,
	}
}
