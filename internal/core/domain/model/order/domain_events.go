package order

import (
	"time"

	"orderflow/internal/core/domain/model/kernel"
)

// DomainEvent is a fact raised by the order aggregate. Events are collected
// on the aggregate and written to the outbox in the same transaction as the
// state change that produced them.
type DomainEvent interface {
	EventID() kernel.UUID
	EventName() string
	AggregateID() kernel.UUID
	OccurredAt() time.Time
}

// EventMeta is embedded in every event.
type EventMeta struct {
	ID      kernel.UUID `json:"eventId"`
	OrderID kernel.UUID `json:"orderId"`
	At      time.Time   `json:"occurredAt"`
}

func newMeta(orderID kernel.UUID, at time.Time) EventMeta {
	return EventMeta{ID: kernel.NewUUID(), OrderID: orderID, At: at}
}

func (m EventMeta) EventID() kernel.UUID     { return m.ID }
func (m EventMeta) AggregateID() kernel.UUID { return m.OrderID }
func (m EventMeta) OccurredAt() time.Time    { return m.At }

type OrderActivated struct {
	EventMeta
	BuyerID  kernel.UUID `json:"buyerId"`
	SellerID kernel.UUID `json:"sellerId"`
}

type RequirementsSubmitted struct {
	EventMeta
	DueDate time.Time `json:"dueDate"`
}

type DeliverySubmitted struct {
	EventMeta
	DeliveryID    kernel.UUID `json:"deliveryId"`
	AutoApproveAt time.Time   `json:"autoApproveAt"`
}

type RevisionRequested struct {
	EventMeta
	DeliveryID    kernel.UUID `json:"deliveryId"`
	RevisionCount int         `json:"revisionCount"`
}

type DeliveryAutoApproved struct {
	EventMeta
	DeliveryID kernel.UUID `json:"deliveryId"`
}

type OrderCompleted struct {
	EventMeta
	BuyerID  kernel.UUID `json:"buyerId"`
	SellerID kernel.UUID `json:"sellerId"`
}

type OrderCancelled struct {
	EventMeta
	CancelledBy Role        `json:"cancelledBy"`
	RequesterID kernel.UUID `json:"requesterId"`
	Reason      string      `json:"reason"`
	TotalAmount int64       `json:"totalAmount"`
	Currency    string      `json:"currency"`
}

type NegotiationOpened struct {
	EventMeta
	NegotiationID kernel.UUID `json:"negotiationId"`
	Type          string      `json:"type"`
	RequesterRole Role        `json:"requesterRole"`
	ExpiresAt     time.Time   `json:"expiresAt"`
}

type NegotiationResolved struct {
	EventMeta
	NegotiationID kernel.UUID `json:"negotiationId"`
	Type          string      `json:"type"`
	Outcome       string      `json:"outcome"`
	ResolvedBy    Role        `json:"resolvedBy"`
}

type OrderModified struct {
	EventMeta
	NegotiationID kernel.UUID `json:"negotiationId"`
	Price         int64       `json:"price"`
	TotalAmount   int64       `json:"totalAmount"`
	Currency      string      `json:"currency"`
	Scope         string      `json:"scope"`
}

type DueDateExtended struct {
	EventMeta
	NegotiationID kernel.UUID `json:"negotiationId"`
	Days          int         `json:"days"`
	DueDate       time.Time   `json:"dueDate"`
}

type OrderDisputed struct {
	EventMeta
	Reason   string      `json:"reason"`
	RaisedBy kernel.UUID `json:"raisedBy"`
}

func (OrderActivated) EventName() string        { return "OrderActivated" }
func (RequirementsSubmitted) EventName() string { return "RequirementsSubmitted" }
func (DeliverySubmitted) EventName() string     { return "DeliverySubmitted" }
func (RevisionRequested) EventName() string     { return "RevisionRequested" }
func (DeliveryAutoApproved) EventName() string  { return "DeliveryAutoApproved" }
func (OrderCompleted) EventName() string        { return "OrderCompleted" }
func (OrderCancelled) EventName() string        { return "OrderCancelled" }
func (NegotiationOpened) EventName() string     { return "NegotiationOpened" }
func (NegotiationResolved) EventName() string   { return "NegotiationResolved" }
func (OrderModified) EventName() string         { return "OrderModified" }
func (DueDateExtended) EventName() string       { return "DueDateExtended" }
func (OrderDisputed) EventName() string         { return "OrderDisputed" }
