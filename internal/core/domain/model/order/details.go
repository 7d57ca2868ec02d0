package order

import (
	"time"

	"orderflow/internal/core/domain/model/kernel"
)

// CancellationDetails is stamped when an order reaches CANCELLED.
type CancellationDetails struct {
	NegotiationID kernel.UUID
	RequestedBy   Role
	RequesterID   kernel.UUID
	Reason        string
	ApprovedAt    time.Time
	// ApprovedBy is the counterparty role, or SYSTEM when approved on expiry.
	ApprovedBy Role
}

// DisputeDetails is stamped when an order is escalated to DISPUTED.
type DisputeDetails struct {
	Reason        string
	RaisedBy      kernel.UUID
	RaisedAt      time.Time
	FromStatus    Status
	NegotiationID *kernel.UUID
}

// AuditEntry is one line of the append-only transition trail.
type AuditEntry struct {
	At         time.Time
	ActorID    kernel.UUID
	ActorRole  Role
	Action     Action
	FromStatus Status
	ToStatus   Status
	Note       string
}
