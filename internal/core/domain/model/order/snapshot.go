package order

import (
	"time"

	"orderflow/internal/core/domain/model/kernel"
)

// Snapshot is a detached copy of the aggregate state. Repositories restore
// orders from it and read models render it; mutating it never affects the
// order it was taken from.
type Snapshot struct {
	ID                   kernel.UUID
	GigID                kernel.UUID
	BuyerID              kernel.UUID
	SellerID             kernel.UUID
	Terms                Terms
	Status               Status
	DateOrdered          time.Time
	DueDate              *time.Time
	RevisionCount        int
	Requirements         []RequirementSnapshot
	Deliveries           []DeliverySnapshot
	Negotiations         []NegotiationSnapshot
	CurrentNegotiationID *kernel.UUID
	Audit                []AuditEntry
	Cancellation         *CancellationDetails
	Dispute              *DisputeDetails
	Version              int64
}

type RequirementSnapshot struct {
	ID       kernel.UUID
	Question string
	Required bool
	HasFile  bool
	Answered bool
	Answer   string
	Files    []string
}

type DeliverySnapshot struct {
	ID            kernel.UUID
	Message       string
	Files         []string
	DeliveredAt   time.Time
	AutoApproveAt time.Time
	Approval      Approval
	RespondedAt   *time.Time
	ResponseNote  string
}

type NegotiationSnapshot struct {
	ID            kernel.UUID
	Status        NegotiationStatus
	RequesterID   kernel.UUID
	RequesterRole Role
	Payload       Payload
	Message       string
	CreatedAt     time.Time
	ExpiresAt     time.Time
	RespondedAt   *time.Time
	ResolvedBy    Role
	ReturnStatus  Status
}

// Snapshot copies the current state of the order.
func (o *Order) Snapshot() Snapshot {
	s := Snapshot{
		ID:            o.id,
		GigID:         o.gigID,
		BuyerID:       o.buyerID,
		SellerID:      o.sellerID,
		Terms:         o.terms,
		Status:        o.status,
		DateOrdered:   o.dateOrdered,
		DueDate:       copyTime(o.dueDate),
		RevisionCount: o.revisionCount,
		Audit:         append([]AuditEntry(nil), o.audit...),
		Version:       o.version,
	}
	if o.currentNegotiationID != nil {
		id := *o.currentNegotiationID
		s.CurrentNegotiationID = &id
	}
	if o.cancellation != nil {
		c := *o.cancellation
		s.Cancellation = &c
	}
	if o.dispute != nil {
		d := *o.dispute
		s.Dispute = &d
	}
	for _, r := range o.requirements {
		s.Requirements = append(s.Requirements, r.Snapshot())
	}
	for _, d := range o.deliveries {
		s.Deliveries = append(s.Deliveries, d.Snapshot())
	}
	for _, n := range o.negotiations {
		s.Negotiations = append(s.Negotiations, n.Snapshot())
	}
	return s
}

func (r *Requirement) Snapshot() RequirementSnapshot {
	return RequirementSnapshot{
		ID:       r.id,
		Question: r.question,
		Required: r.required,
		HasFile:  r.hasFile,
		Answered: r.answered,
		Answer:   r.answer,
		Files:    append([]string(nil), r.files...),
	}
}

func (d *Delivery) Snapshot() DeliverySnapshot {
	return DeliverySnapshot{
		ID:            d.id,
		Message:       d.message,
		Files:         append([]string(nil), d.files...),
		DeliveredAt:   d.deliveredAt,
		AutoApproveAt: d.autoApproveAt,
		Approval:      d.approval,
		RespondedAt:   copyTime(d.respondedAt),
		ResponseNote:  d.responseNote,
	}
}

func (n *Negotiation) Snapshot() NegotiationSnapshot {
	return NegotiationSnapshot{
		ID:            n.id,
		Status:        n.status,
		RequesterID:   n.requesterID,
		RequesterRole: n.requesterRole,
		Payload:       n.payload,
		Message:       n.message,
		CreatedAt:     n.createdAt,
		ExpiresAt:     n.expiresAt,
		RespondedAt:   copyTime(n.respondedAt),
		ResolvedBy:    n.resolvedBy,
		ReturnStatus:  n.returnStatus,
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
