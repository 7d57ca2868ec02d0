// Package orderrepo persists the order aggregate: one orders row plus child
// tables for requirements, deliveries, negotiations and the audit trail.
package orderrepo

import (
	"errors"
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/google/uuid"
)

// OrderDTO is the orders row. Statuses and enums are stored by name so the
// tables stay readable from psql and from the read side.
type OrderDTO struct {
	ID                   uuid.UUID        `gorm:"type:uuid;primaryKey"`
	GigID                uuid.UUID        `gorm:"type:uuid;not null"`
	BuyerID              uuid.UUID        `gorm:"type:uuid;not null;index"`
	SellerID             uuid.UUID        `gorm:"type:uuid;not null;index"`
	Status               string           `gorm:"type:varchar(32);not null"`
	Currency             string           `gorm:"type:char(3);not null"`
	PriceAmount          int64            `gorm:"not null"`
	Quantity             int              `gorm:"not null"`
	ServiceFeeAmount     int64            `gorm:"not null"`
	TotalAmount          int64            `gorm:"not null"`
	Scope                string           `gorm:"type:text;not null"`
	DeliveryDays         int              `gorm:"not null"`
	MaxRevision          *int             `gorm:"type:int"`
	DateOrdered          time.Time        `gorm:"not null"`
	DueDate              *time.Time       `gorm:"type:timestamptz"`
	RevisionCount        int              `gorm:"not null"`
	CurrentNegotiationID *uuid.UUID       `gorm:"type:uuid"`
	Cancellation         *CancellationDTO `gorm:"type:jsonb;serializer:json"`
	Dispute              *DisputeDTO      `gorm:"type:jsonb;serializer:json"`
	Version              int64            `gorm:"not null"`
	QuarantinedAt        *time.Time       `gorm:"type:timestamptz"`
	QuarantineReason     *string          `gorm:"type:text"`
	UpdatedAt            time.Time

	Requirements []RequirementDTO `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Deliveries   []DeliveryDTO    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Negotiations []NegotiationDTO `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Audit        []AuditEntryDTO  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (OrderDTO) TableName() string {
	return "orders"
}

type CancellationDTO struct {
	NegotiationID uuid.UUID `json:"negotiationId"`
	RequestedBy   string    `json:"requestedBy"`
	RequesterID   uuid.UUID `json:"requesterId"`
	Reason        string    `json:"reason"`
	ApprovedAt    time.Time `json:"approvedAt"`
	ApprovedBy    string    `json:"approvedBy"`
}

type DisputeDTO struct {
	Reason        string     `json:"reason"`
	RaisedBy      uuid.UUID  `json:"raisedBy"`
	RaisedAt      time.Time  `json:"raisedAt"`
	FromStatus    string     `json:"fromStatus"`
	NegotiationID *uuid.UUID `json:"negotiationId,omitempty"`
}

type RequirementDTO struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Position int       `gorm:"not null"`
	Question string    `gorm:"type:text;not null"`
	Required bool      `gorm:"not null"`
	HasFile  bool      `gorm:"not null"`
	Answered bool      `gorm:"not null"`
	Answer   string    `gorm:"type:text;not null"`
	Files    []string  `gorm:"type:jsonb;serializer:json;not null"`
}

func (RequirementDTO) TableName() string {
	return "order_requirements"
}

type DeliveryDTO struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OrderID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	Position      int        `gorm:"not null"`
	Message       string     `gorm:"type:text;not null"`
	Files         []string   `gorm:"type:jsonb;serializer:json;not null"`
	DeliveredAt   time.Time  `gorm:"not null"`
	AutoApproveAt time.Time  `gorm:"not null"`
	Approval      string     `gorm:"type:varchar(32);not null"`
	RespondedAt   *time.Time `gorm:"type:timestamptz"`
	ResponseNote  string     `gorm:"type:text;not null"`
}

func (DeliveryDTO) TableName() string {
	return "order_deliveries"
}

type NegotiationDTO struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OrderID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	Position      int        `gorm:"not null"`
	Type          string     `gorm:"type:varchar(32);not null"`
	Status        string     `gorm:"type:varchar(32);not null"`
	RequesterID   uuid.UUID  `gorm:"type:uuid;not null"`
	RequesterRole string     `gorm:"type:varchar(16);not null"`
	Payload       PayloadDTO `gorm:"type:jsonb;serializer:json;not null"`
	Message       string     `gorm:"type:text;not null"`
	ReturnStatus  string     `gorm:"type:varchar(32);not null"`
	CreatedAt     time.Time  `gorm:"not null"`
	ExpiresAt     time.Time  `gorm:"not null"`
	RespondedAt   *time.Time `gorm:"type:timestamptz"`
	ResolvedBy    string     `gorm:"type:varchar(16);not null"`
}

func (NegotiationDTO) TableName() string {
	return "order_negotiations"
}

// PayloadDTO is the JSON form of a negotiation payload. Which fields are set
// depends on the negotiation type stored next to it.
type PayloadDTO struct {
	Days            int        `json:"days,omitempty"`
	OriginalDueDate *time.Time `json:"originalDueDate,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	NewPrice        *int64     `json:"newPrice,omitempty"`
	Currency        string     `json:"currency,omitempty"`
	NewScope        *string    `json:"newScope,omitempty"`
}

type AuditEntryDTO struct {
	OrderID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Position   int       `gorm:"primaryKey;autoIncrement:false"`
	At         time.Time `gorm:"not null"`
	ActorID    uuid.UUID `gorm:"type:uuid;not null"`
	ActorRole  string    `gorm:"type:varchar(16);not null"`
	Action     string    `gorm:"type:varchar(32);not null"`
	FromStatus string    `gorm:"type:varchar(32);not null"`
	ToStatus   string    `gorm:"type:varchar(32);not null"`
	Note       string    `gorm:"type:text;not null"`
}

func (AuditEntryDTO) TableName() string {
	return "order_audit_entries"
}

// fromDomain flattens the aggregate into its rows.
func fromDomain(o *order.Order) (OrderDTO, error) {
	s := o.Snapshot()
	orderID := s.ID.Bytes()
	pricing := s.Terms.Pricing()

	dto := OrderDTO{
		ID:               orderID,
		GigID:            s.GigID.Bytes(),
		BuyerID:          s.BuyerID.Bytes(),
		SellerID:         s.SellerID.Bytes(),
		Status:           s.Status.String(),
		Currency:         pricing.Currency(),
		PriceAmount:      pricing.Price().Amount(),
		Quantity:         pricing.Quantity(),
		ServiceFeeAmount: pricing.ServiceFee().Amount(),
		TotalAmount:      pricing.Total().Amount(),
		Scope:            s.Terms.Scope(),
		DeliveryDays:     s.Terms.DeliveryDays(),
		MaxRevision:      s.Terms.MaxRevision(),
		DateOrdered:      s.DateOrdered,
		DueDate:          s.DueDate,
		RevisionCount:    s.RevisionCount,
		Version:          s.Version,
	}
	if s.CurrentNegotiationID != nil {
		raw := s.CurrentNegotiationID.Bytes()
		dto.CurrentNegotiationID = &raw
	}
	if c := s.Cancellation; c != nil {
		dto.Cancellation = &CancellationDTO{
			NegotiationID: c.NegotiationID.Bytes(),
			RequestedBy:   c.RequestedBy.String(),
			RequesterID:   c.RequesterID.Bytes(),
			Reason:        c.Reason,
			ApprovedAt:    c.ApprovedAt,
			ApprovedBy:    c.ApprovedBy.String(),
		}
	}
	if d := s.Dispute; d != nil {
		dto.Dispute = &DisputeDTO{
			Reason:     d.Reason,
			RaisedBy:   d.RaisedBy.Bytes(),
			RaisedAt:   d.RaisedAt,
			FromStatus: d.FromStatus.String(),
		}
		if d.NegotiationID != nil {
			raw := d.NegotiationID.Bytes()
			dto.Dispute.NegotiationID = &raw
		}
	}

	for i, r := range s.Requirements {
		dto.Requirements = append(dto.Requirements, RequirementDTO{
			ID:       r.ID.Bytes(),
			OrderID:  orderID,
			Position: i,
			Question: r.Question,
			Required: r.Required,
			HasFile:  r.HasFile,
			Answered: r.Answered,
			Answer:   r.Answer,
			Files:    nonNil(r.Files),
		})
	}
	for i, d := range s.Deliveries {
		dto.Deliveries = append(dto.Deliveries, DeliveryDTO{
			ID:            d.ID.Bytes(),
			OrderID:       orderID,
			Position:      i,
			Message:       d.Message,
			Files:         nonNil(d.Files),
			DeliveredAt:   d.DeliveredAt,
			AutoApproveAt: d.AutoApproveAt,
			Approval:      d.Approval.String(),
			RespondedAt:   d.RespondedAt,
			ResponseNote:  d.ResponseNote,
		})
	}
	for i, n := range s.Negotiations {
		var enc payloadEncoder
		if err := n.Payload.Accept(&enc); err != nil {
			return OrderDTO{}, err
		}
		dto.Negotiations = append(dto.Negotiations, NegotiationDTO{
			ID:            n.ID.Bytes(),
			OrderID:       orderID,
			Position:      i,
			Type:          n.Payload.Type().String(),
			Status:        n.Status.String(),
			RequesterID:   n.RequesterID.Bytes(),
			RequesterRole: n.RequesterRole.String(),
			Payload:       enc.dto,
			Message:       n.Message,
			ReturnStatus:  n.ReturnStatus.String(),
			CreatedAt:     n.CreatedAt,
			ExpiresAt:     n.ExpiresAt,
			RespondedAt:   n.RespondedAt,
			ResolvedBy:    n.ResolvedBy.String(),
		})
	}
	for i, a := range s.Audit {
		dto.Audit = append(dto.Audit, AuditEntryDTO{
			OrderID:    orderID,
			Position:   i,
			At:         a.At,
			ActorID:    a.ActorID.Bytes(),
			ActorRole:  a.ActorRole.String(),
			Action:     a.Action.String(),
			FromStatus: a.FromStatus.String(),
			ToStatus:   a.ToStatus.String(),
			Note:       a.Note,
		})
	}

	return dto, nil
}

// toDomain rebuilds the aggregate. Child rows must be loaded ordered by position.
func toDomain(dto OrderDTO) (*order.Order, error) {
	s := order.Snapshot{
		ID:            kernel.UUIDFromGoogle(dto.ID),
		GigID:         kernel.UUIDFromGoogle(dto.GigID),
		BuyerID:       kernel.UUIDFromGoogle(dto.BuyerID),
		SellerID:      kernel.UUIDFromGoogle(dto.SellerID),
		DateOrdered:   dto.DateOrdered,
		DueDate:       dto.DueDate,
		RevisionCount: dto.RevisionCount,
		Version:       dto.Version,
	}

	var err error
	if s.Terms, err = termsFromDTO(dto); err != nil {
		return nil, err
	}
	if s.Status, err = order.ParseStatus(dto.Status); err != nil {
		return nil, err
	}
	if dto.CurrentNegotiationID != nil {
		id := kernel.UUIDFromGoogle(*dto.CurrentNegotiationID)
		s.CurrentNegotiationID = &id
	}
	if c := dto.Cancellation; c != nil {
		s.Cancellation = &order.CancellationDetails{
			NegotiationID: kernel.UUIDFromGoogle(c.NegotiationID),
			RequestedBy:   order.Role(c.RequestedBy),
			RequesterID:   kernel.UUIDFromGoogle(c.RequesterID),
			Reason:        c.Reason,
			ApprovedAt:    c.ApprovedAt,
			ApprovedBy:    order.Role(c.ApprovedBy),
		}
	}
	if d := dto.Dispute; d != nil {
		from, parseErr := order.ParseStatus(d.FromStatus)
		if parseErr != nil {
			return nil, parseErr
		}
		s.Dispute = &order.DisputeDetails{
			Reason:     d.Reason,
			RaisedBy:   kernel.UUIDFromGoogle(d.RaisedBy),
			RaisedAt:   d.RaisedAt,
			FromStatus: from,
		}
		if d.NegotiationID != nil {
			id := kernel.UUIDFromGoogle(*d.NegotiationID)
			s.Dispute.NegotiationID = &id
		}
	}

	for _, r := range dto.Requirements {
		s.Requirements = append(s.Requirements, order.RequirementSnapshot{
			ID:       kernel.UUIDFromGoogle(r.ID),
			Question: r.Question,
			Required: r.Required,
			HasFile:  r.HasFile,
			Answered: r.Answered,
			Answer:   r.Answer,
			Files:    r.Files,
		})
	}
	for _, d := range dto.Deliveries {
		approval, parseErr := order.ParseApproval(d.Approval)
		if parseErr != nil {
			return nil, parseErr
		}
		s.Deliveries = append(s.Deliveries, order.DeliverySnapshot{
			ID:            kernel.UUIDFromGoogle(d.ID),
			Message:       d.Message,
			Files:         d.Files,
			DeliveredAt:   d.DeliveredAt,
			AutoApproveAt: d.AutoApproveAt,
			Approval:      approval,
			RespondedAt:   d.RespondedAt,
			ResponseNote:  d.ResponseNote,
		})
	}
	for _, n := range dto.Negotiations {
		ns, parseErr := negotiationFromDTO(n)
		if parseErr != nil {
			return nil, parseErr
		}
		s.Negotiations = append(s.Negotiations, ns)
	}
	for _, a := range dto.Audit {
		from, fromErr := order.ParseStatus(a.FromStatus)
		to, toErr := order.ParseStatus(a.ToStatus)
		if err = errors.Join(fromErr, toErr); err != nil {
			return nil, err
		}
		s.Audit = append(s.Audit, order.AuditEntry{
			At:         a.At,
			ActorID:    kernel.UUIDFromGoogle(a.ActorID),
			ActorRole:  order.Role(a.ActorRole),
			Action:     order.Action(a.Action),
			FromStatus: from,
			ToStatus:   to,
			Note:       a.Note,
		})
	}

	return order.RestoreOrder(s)
}

func termsFromDTO(dto OrderDTO) (order.Terms, error) {
	price, priceErr := kernel.NewMoney(dto.PriceAmount, dto.Currency)
	fee, feeErr := kernel.NewMoney(dto.ServiceFeeAmount, dto.Currency)
	total, totalErr := kernel.NewMoney(dto.TotalAmount, dto.Currency)
	if err := errors.Join(priceErr, feeErr, totalErr); err != nil {
		return order.Terms{}, err
	}

	pricing, err := order.RestorePricing(price, dto.Quantity, fee, total)
	if err != nil {
		return order.Terms{}, err
	}
	return order.NewTerms(pricing, dto.Scope, dto.DeliveryDays, dto.MaxRevision)
}

func negotiationFromDTO(n NegotiationDTO) (order.NegotiationSnapshot, error) {
	status, statusErr := order.ParseNegotiationStatus(n.Status)
	returnStatus, returnErr := order.ParseStatus(n.ReturnStatus)
	typ, typeErr := order.ParseNegotiationType(n.Type)
	if err := errors.Join(statusErr, returnErr, typeErr); err != nil {
		return order.NegotiationSnapshot{}, err
	}

	payload, err := payloadFromDTO(typ, n.Payload)
	if err != nil {
		return order.NegotiationSnapshot{}, err
	}

	return order.NegotiationSnapshot{
		ID:            kernel.UUIDFromGoogle(n.ID),
		Status:        status,
		RequesterID:   kernel.UUIDFromGoogle(n.RequesterID),
		RequesterRole: order.Role(n.RequesterRole),
		Payload:       payload,
		Message:       n.Message,
		CreatedAt:     n.CreatedAt,
		ExpiresAt:     n.ExpiresAt,
		RespondedAt:   n.RespondedAt,
		ResolvedBy:    order.Role(n.ResolvedBy),
		ReturnStatus:  returnStatus,
	}, nil
}

func payloadFromDTO(typ order.NegotiationType, p PayloadDTO) (order.Payload, error) {
	switch typ {
	case order.ExtendDelivery:
		var due time.Time
		if p.OriginalDueDate != nil {
			due = *p.OriginalDueDate
		}
		return order.RestoreExtendDeliveryPayload(p.Days, due), nil
	case order.CancelOrder:
		return order.RestoreCancelOrderPayload(p.Reason), nil
	case order.ModifyOrder:
		var price *kernel.Money
		if p.NewPrice != nil {
			m, err := kernel.NewMoney(*p.NewPrice, p.Currency)
			if err != nil {
				return nil, err
			}
			price = &m
		}
		return order.RestoreModifyOrderPayload(price, p.NewScope), nil
	default:
		return nil, fmt.Errorf("unsupported negotiation type %s", typ)
	}
}

// payloadEncoder fills a PayloadDTO from whichever payload accepts it.
type payloadEncoder struct {
	dto PayloadDTO
}

func (e *payloadEncoder) VisitExtendDelivery(p order.ExtendDeliveryPayload) error {
	e.dto.Days = p.Days()
	if due := p.OriginalDueDate(); !due.IsZero() {
		e.dto.OriginalDueDate = &due
	}
	return nil
}

func (e *payloadEncoder) VisitCancelOrder(p order.CancelOrderPayload) error {
	e.dto.Reason = p.Reason()
	return nil
}

func (e *payloadEncoder) VisitModifyOrder(p order.ModifyOrderPayload) error {
	if price := p.NewPrice(); price != nil {
		amount := price.Amount()
		e.dto.NewPrice = &amount
		e.dto.Currency = price.Currency()
	}
	e.dto.NewScope = p.NewScope()
	return nil
}

func nonNil(files []string) []string {
	if files == nil {
		return []string{}
	}
	return files
}
