package http

import (
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
)

// OrderView is the JSON rendering of an order snapshot.
type OrderView struct {
	ID                   string            `json:"id"`
	GigID                string            `json:"gigId"`
	BuyerID              string            `json:"buyerId"`
	SellerID             string            `json:"sellerId"`
	Status               string            `json:"status"`
	Price                Money             `json:"price"`
	Quantity             int               `json:"quantity"`
	ServiceFee           Money             `json:"serviceFee"`
	Total                Money             `json:"total"`
	Scope                string            `json:"scope"`
	DeliveryDays         int               `json:"deliveryDays"`
	MaxRevision          *int              `json:"maxRevision"`
	RevisionCount        int               `json:"revisionCount"`
	DateOrdered          time.Time         `json:"dateOrdered"`
	DueDate              *time.Time        `json:"dueDate"`
	NextDeadline         *time.Time        `json:"nextDeadline,omitempty"`
	Requirements         []RequirementView `json:"requirements"`
	Deliveries           []DeliveryView    `json:"deliveries"`
	Negotiations         []NegotiationView `json:"negotiations"`
	CurrentNegotiationID *string           `json:"currentNegotiationId"`
	Cancellation         *CancellationView `json:"cancellation,omitempty"`
	Dispute              *DisputeView      `json:"dispute,omitempty"`
	Audit                []AuditEntryView  `json:"audit"`
	Version              int64             `json:"version"`
}

type RequirementView struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Required bool     `json:"required"`
	HasFile  bool     `json:"hasFile"`
	Answered bool     `json:"answered"`
	Answer   string   `json:"answer,omitempty"`
	Files    []string `json:"files,omitempty"`
}

type DeliveryView struct {
	ID            string     `json:"id"`
	Message       string     `json:"message"`
	Files         []string   `json:"files,omitempty"`
	DeliveredAt   time.Time  `json:"deliveredAt"`
	AutoApproveAt time.Time  `json:"autoApproveAt"`
	Approval      string     `json:"approval"`
	RespondedAt   *time.Time `json:"respondedAt,omitempty"`
	ResponseNote  string     `json:"responseNote,omitempty"`
}

type NegotiationView struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Status        string         `json:"status"`
	RequesterID   string         `json:"requesterId"`
	RequesterRole string         `json:"requesterRole"`
	Payload       map[string]any `json:"payload"`
	Message       string         `json:"message,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	ExpiresAt     time.Time      `json:"expiresAt"`
	RespondedAt   *time.Time     `json:"respondedAt,omitempty"`
	ResolvedBy    string         `json:"resolvedBy,omitempty"`
}

type CancellationView struct {
	NegotiationID string    `json:"negotiationId"`
	RequestedBy   string    `json:"requestedBy"`
	Reason        string    `json:"reason"`
	ApprovedAt    time.Time `json:"approvedAt"`
	ApprovedBy    string    `json:"approvedBy"`
}

type DisputeView struct {
	Reason     string    `json:"reason"`
	RaisedBy   string    `json:"raisedBy"`
	RaisedAt   time.Time `json:"raisedAt"`
	FromStatus string    `json:"fromStatus"`
}

type AuditEntryView struct {
	At         time.Time `json:"at"`
	ActorID    string    `json:"actorId"`
	ActorRole  string    `json:"actorRole"`
	Action     string    `json:"action"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	Note       string    `json:"note,omitempty"`
}

func moneyView(m kernel.Money) Money {
	return Money{Amount: m.Amount(), Currency: m.Currency()}
}

func newOrderView(s order.Snapshot, nextDeadline *time.Time) OrderView {
	pricing := s.Terms.Pricing()
	v := OrderView{
		ID:            s.ID.String(),
		GigID:         s.GigID.String(),
		BuyerID:       s.BuyerID.String(),
		SellerID:      s.SellerID.String(),
		Status:        s.Status.String(),
		Price:         moneyView(pricing.Price()),
		Quantity:      pricing.Quantity(),
		ServiceFee:    moneyView(pricing.ServiceFee()),
		Total:         moneyView(pricing.Total()),
		Scope:         s.Terms.Scope(),
		DeliveryDays:  s.Terms.DeliveryDays(),
		MaxRevision:   s.Terms.MaxRevision(),
		RevisionCount: s.RevisionCount,
		DateOrdered:   s.DateOrdered,
		DueDate:       s.DueDate,
		NextDeadline:  nextDeadline,
		Requirements:  make([]RequirementView, 0, len(s.Requirements)),
		Deliveries:    make([]DeliveryView, 0, len(s.Deliveries)),
		Negotiations:  make([]NegotiationView, 0, len(s.Negotiations)),
		Audit:         make([]AuditEntryView, 0, len(s.Audit)),
		Version:       s.Version,
	}

	for _, r := range s.Requirements {
		v.Requirements = append(v.Requirements, RequirementView{
			ID: r.ID.String(), Question: r.Question, Required: r.Required, HasFile: r.HasFile,
			Answered: r.Answered, Answer: r.Answer, Files: r.Files,
		})
	}
	for _, d := range s.Deliveries {
		v.Deliveries = append(v.Deliveries, DeliveryView{
			ID: d.ID.String(), Message: d.Message, Files: d.Files, DeliveredAt: d.DeliveredAt,
			AutoApproveAt: d.AutoApproveAt, Approval: d.Approval.String(), RespondedAt: d.RespondedAt,
			ResponseNote: d.ResponseNote,
		})
	}
	for _, n := range s.Negotiations {
		nv := NegotiationView{
			ID: n.ID.String(), Type: n.Payload.Type().String(), Status: n.Status.String(),
			RequesterID: n.RequesterID.String(), RequesterRole: n.RequesterRole.String(),
			Payload: payloadView(n.Payload), Message: n.Message, CreatedAt: n.CreatedAt,
			ExpiresAt: n.ExpiresAt, RespondedAt: n.RespondedAt,
		}
		if n.ResolvedBy != "" {
			nv.ResolvedBy = n.ResolvedBy.String()
		}
		v.Negotiations = append(v.Negotiations, nv)
	}
	if s.CurrentNegotiationID != nil {
		id := s.CurrentNegotiationID.String()
		v.CurrentNegotiationID = &id
	}
	if c := s.Cancellation; c != nil {
		v.Cancellation = &CancellationView{
			NegotiationID: c.NegotiationID.String(), RequestedBy: c.RequestedBy.String(),
			Reason: c.Reason, ApprovedAt: c.ApprovedAt, ApprovedBy: c.ApprovedBy.String(),
		}
	}
	if d := s.Dispute; d != nil {
		v.Dispute = &DisputeView{
			Reason: d.Reason, RaisedBy: d.RaisedBy.String(), RaisedAt: d.RaisedAt, FromStatus: d.FromStatus.String(),
		}
	}
	for _, a := range s.Audit {
		v.Audit = append(v.Audit, AuditEntryView{
			At: a.At, ActorID: a.ActorID.String(), ActorRole: a.ActorRole.String(), Action: a.Action.String(),
			FromStatus: a.FromStatus.String(), ToStatus: a.ToStatus.String(), Note: a.Note,
		})
	}
	return v
}

// payloadRenderer flattens a negotiation payload into JSON fields.
type payloadRenderer struct {
	fields map[string]any
}

func (r *payloadRenderer) VisitExtendDelivery(p order.ExtendDeliveryPayload) error {
	r.fields["days"] = p.Days()
	if !p.OriginalDueDate().IsZero() {
		r.fields["originalDueDate"] = p.OriginalDueDate()
	}
	return nil
}

func (r *payloadRenderer) VisitCancelOrder(p order.CancelOrderPayload) error {
	r.fields["reason"] = p.Reason()
	return nil
}

func (r *payloadRenderer) VisitModifyOrder(p order.ModifyOrderPayload) error {
	if p.NewPrice() != nil {
		r.fields["newPrice"] = moneyView(*p.NewPrice())
	}
	if p.NewScope() != nil {
		r.fields["newScope"] = *p.NewScope()
	}
	return nil
}

func payloadView(p order.Payload) map[string]any {
	r := &payloadRenderer{fields: map[string]any{}}
	_ = p.Accept(r)
	return r.fields
}
