package order

import (
	"fmt"
	"strings"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

// Approval is the buyer's disposition of a delivery.
type Approval int

const (
	UnknownApproval Approval = iota
	// ApprovalPending deliveries wait for the buyer or the auto-approval deadline.
	ApprovalPending
	ApprovalApproved
	ApprovalRevisionRequested
)

func (a Approval) String() string {
	switch a {
	case ApprovalPending:
		return "PENDING"
	case ApprovalApproved:
		return "APPROVED"
	case ApprovalRevisionRequested:
		return "REVISION_REQUESTED"
	default:
		return "UNKNOWN"
	}
}

func ParseApproval(s string) (Approval, error) {
	for _, a := range []Approval{ApprovalPending, ApprovalApproved, ApprovalRevisionRequested} {
		if a.String() == s {
			return a, nil
		}
	}
	return UnknownApproval, errs.NewValueIsInvalidErrorWithCause("approval", fmt.Errorf("%q is not a valid approval", s))
}

// DeliveryDecision is the buyer's answer to a delivery.
type DeliveryDecision int

const (
	DecisionApproveDelivery DeliveryDecision = iota + 1
	DecisionRequestRevision
)

func (d DeliveryDecision) String() string {
	switch d {
	case DecisionApproveDelivery:
		return "APPROVE_DELIVERY"
	case DecisionRequestRevision:
		return "REQUEST_REVISION"
	default:
		return "UNKNOWN"
	}
}

func ParseDeliveryDecision(s string) (DeliveryDecision, error) {
	switch s {
	case "APPROVE_DELIVERY":
		return DecisionApproveDelivery, nil
	case "REQUEST_REVISION":
		return DecisionRequestRevision, nil
	default:
		return 0, errs.Workflowf(errs.CodeInvalidPayload, "%q is not a delivery decision", s)
	}
}

// Delivery is one submission of work by the seller.
type Delivery struct {
	id            kernel.UUID
	message       string
	files         []string
	deliveredAt   time.Time
	autoApproveAt time.Time
	approval      Approval
	respondedAt   *time.Time
	responseNote  string
}

func newDelivery(message string, files []string, now time.Time, grace time.Duration) (*Delivery, error) {
	message = strings.TrimSpace(message)
	if message == "" && len(files) == 0 {
		return nil, errs.Workflowf(errs.CodeInvalidPayload, "delivery needs a message or at least one file")
	}
	for _, f := range files {
		if strings.TrimSpace(f) == "" {
			return nil, errs.Workflowf(errs.CodeInvalidPayload, "delivery file reference must not be blank")
		}
	}
	return &Delivery{
		id:            kernel.NewUUID(),
		message:       message,
		files:         append([]string(nil), files...),
		deliveredAt:   now,
		autoApproveAt: now.Add(grace),
		approval:      ApprovalPending,
	}, nil
}

// RestoreDelivery rebuilds a persisted delivery.
func RestoreDelivery(s DeliverySnapshot) (*Delivery, error) {
	if err := s.ID.Validate(); err != nil {
		return nil, err
	}
	if s.Approval < ApprovalPending || s.Approval > ApprovalRevisionRequested {
		return nil, errs.NewValueIsInvalidErrorWithCause("approval", fmt.Errorf("%d is not a valid approval", s.Approval))
	}
	return &Delivery{
		id:            s.ID,
		message:       s.Message,
		files:         append([]string(nil), s.Files...),
		deliveredAt:   s.DeliveredAt,
		autoApproveAt: s.AutoApproveAt,
		approval:      s.Approval,
		respondedAt:   s.RespondedAt,
		responseNote:  s.ResponseNote,
	}, nil
}

func (d *Delivery) ID() kernel.UUID          { return d.id }
func (d *Delivery) Message() string          { return d.message }
func (d *Delivery) Files() []string          { return append([]string(nil), d.files...) }
func (d *Delivery) DeliveredAt() time.Time   { return d.deliveredAt }
func (d *Delivery) AutoApproveAt() time.Time { return d.autoApproveAt }
func (d *Delivery) Approval() Approval       { return d.approval }
func (d *Delivery) RespondedAt() *time.Time  { return d.respondedAt }
func (d *Delivery) ResponseNote() string     { return d.responseNote }

func (d *Delivery) IsPending() bool {
	return d.approval == ApprovalPending
}

// IsDue reports whether the auto-approval deadline has passed at now.
func (d *Delivery) IsDue(now time.Time) bool {
	return !now.Before(d.autoApproveAt)
}

func (d *Delivery) resolve(approval Approval, note string, now time.Time) {
	d.approval = approval
	d.respondedAt = &now
	d.responseNote = strings.TrimSpace(note)
}
