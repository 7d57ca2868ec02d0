package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

// NegotiationStatus is the resolution state of a negotiation.
type NegotiationStatus int

const (
	UnknownNegotiationStatus NegotiationStatus = iota
	NegotiationPending
	NegotiationApproved
	NegotiationRejected
	NegotiationExpired
)

func (s NegotiationStatus) String() string {
	switch s {
	case NegotiationPending:
		return "PENDING"
	case NegotiationApproved:
		return "APPROVED"
	case NegotiationRejected:
		return "REJECTED"
	case NegotiationExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

func ParseNegotiationStatus(s string) (NegotiationStatus, error) {
	for _, st := range []NegotiationStatus{NegotiationPending, NegotiationApproved, NegotiationRejected, NegotiationExpired} {
		if st.String() == s {
			return st, nil
		}
	}
	return UnknownNegotiationStatus, errs.NewValueIsInvalidErrorWithCause("negotiation status",
		fmt.Errorf("%q is not a valid negotiation status", s))
}

// NegotiationDecision is the counterparty's answer to a negotiation.
type NegotiationDecision int

const (
	DecisionApprove NegotiationDecision = iota + 1
	DecisionReject
)

func (d NegotiationDecision) String() string {
	switch d {
	case DecisionApprove:
		return "APPROVE"
	case DecisionReject:
		return "REJECT"
	default:
		return "UNKNOWN"
	}
}

func ParseNegotiationDecision(s string) (NegotiationDecision, error) {
	switch s {
	case "APPROVE":
		return DecisionApprove, nil
	case "REJECT":
		return DecisionReject, nil
	default:
		return 0, errs.Workflowf(errs.CodeInvalidPayload, "%q is not a negotiation decision", s)
	}
}

// Negotiation is a proposal that needs the counterparty's consent. Once it
// leaves NegotiationPending it never changes again.
type Negotiation struct {
	id            kernel.UUID
	status        NegotiationStatus
	requesterID   kernel.UUID
	requesterRole Role
	payload       Payload
	message       string
	createdAt     time.Time
	expiresAt     time.Time
	respondedAt   *time.Time
	resolvedBy    Role
	returnStatus  Status
}

func newNegotiation(requester Actor, payload Payload, message string, returnStatus Status, now time.Time, ttl time.Duration) *Negotiation {
	return &Negotiation{
		id:            kernel.NewUUID(),
		status:        NegotiationPending,
		requesterID:   requester.ID,
		requesterRole: requester.Role,
		payload:       payload,
		message:       strings.TrimSpace(message),
		createdAt:     now,
		expiresAt:     now.Add(ttl),
		returnStatus:  returnStatus,
	}
}

// RestoreNegotiation rebuilds a persisted negotiation.
func RestoreNegotiation(s NegotiationSnapshot) (*Negotiation, error) {
	var payloadErr error
	if s.Payload == nil {
		payloadErr = errs.NewValueIsRequiredError("payload")
	}
	var statusErr error
	if s.Status < NegotiationPending || s.Status > NegotiationExpired {
		statusErr = errs.NewValueIsInvalidErrorWithCause("negotiation status", fmt.Errorf("%d is not valid", s.Status))
	}
	var requesterErr error
	if s.RequesterRole != RoleBuyer && s.RequesterRole != RoleSeller {
		requesterErr = errs.NewValueIsInvalidErrorWithCause("requesterRole",
			fmt.Errorf("%q cannot open negotiations", string(s.RequesterRole)))
	}
	if err := errors.Join(
		s.ID.Validate(),
		s.RequesterID.Validate(),
		payloadErr,
		statusErr,
		requesterErr,
		s.ReturnStatus.Validate(),
	); err != nil {
		return nil, err
	}

	return &Negotiation{
		id:            s.ID,
		status:        s.Status,
		requesterID:   s.RequesterID,
		requesterRole: s.RequesterRole,
		payload:       s.Payload,
		message:       s.Message,
		createdAt:     s.CreatedAt,
		expiresAt:     s.ExpiresAt,
		respondedAt:   s.RespondedAt,
		resolvedBy:    s.ResolvedBy,
		returnStatus:  s.ReturnStatus,
	}, nil
}

func (n *Negotiation) ID() kernel.UUID           { return n.id }
func (n *Negotiation) Type() NegotiationType     { return n.payload.Type() }
func (n *Negotiation) Status() NegotiationStatus { return n.status }
func (n *Negotiation) RequesterID() kernel.UUID  { return n.requesterID }
func (n *Negotiation) RequesterRole() Role       { return n.requesterRole }
func (n *Negotiation) Payload() Payload          { return n.payload }
func (n *Negotiation) Message() string           { return n.message }
func (n *Negotiation) CreatedAt() time.Time      { return n.createdAt }
func (n *Negotiation) ExpiresAt() time.Time      { return n.expiresAt }
func (n *Negotiation) RespondedAt() *time.Time   { return n.respondedAt }
func (n *Negotiation) ResolvedBy() Role          { return n.resolvedBy }
func (n *Negotiation) ReturnStatus() Status      { return n.returnStatus }

func (n *Negotiation) IsPending() bool {
	return n.status == NegotiationPending
}

// IsStale reports whether a pending negotiation has outlived its TTL at now.
func (n *Negotiation) IsStale(now time.Time) bool {
	return n.IsPending() && !now.Before(n.expiresAt)
}

func (n *Negotiation) resolve(status NegotiationStatus, by Role, now time.Time) {
	n.status = status
	n.resolvedBy = by
	n.respondedAt = &now
}
