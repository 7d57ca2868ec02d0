package order

import (
	"errors"
	"fmt"
	"time"

	"orderflow/internal/pkg/errs"
)

// CancelExpiryPolicy decides what happens to a CANCEL_ORDER negotiation the
// counterparty never answered.
type CancelExpiryPolicy string

const (
	// CancelExpiryEscalate moves the order to DISPUTED for support to decide.
	CancelExpiryEscalate CancelExpiryPolicy = "ESCALATE"
	// CancelExpiryReject treats silence as a refusal and restores the prior status.
	CancelExpiryReject CancelExpiryPolicy = "REJECT"
	// CancelExpiryApprove treats silence as consent and cancels the order.
	CancelExpiryApprove CancelExpiryPolicy = "APPROVE"
)

func (p CancelExpiryPolicy) Validate() error {
	switch p {
	case CancelExpiryEscalate, CancelExpiryReject, CancelExpiryApprove:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause("cancelExpiry", fmt.Errorf("%q is not a valid policy", string(p)))
	}
}

const (
	DefaultDeliveryGracePeriod   = 72 * time.Hour
	DefaultNegotiationTTL        = 7 * 24 * time.Hour
	DefaultMinCancelReasonLength = 10
)

// Policy holds the tunable rules of the workflow.
type Policy struct {
	DeliveryGracePeriod   time.Duration
	NegotiationTTL        time.Duration
	MinCancelReasonLength int
	CancelExpiry          CancelExpiryPolicy
}

func DefaultPolicy() Policy {
	return Policy{
		DeliveryGracePeriod:   DefaultDeliveryGracePeriod,
		NegotiationTTL:        DefaultNegotiationTTL,
		MinCancelReasonLength: DefaultMinCancelReasonLength,
		CancelExpiry:          CancelExpiryEscalate,
	}
}

func (p Policy) Validate() error {
	var graceErr, ttlErr, reasonErr error
	if p.DeliveryGracePeriod <= 0 {
		graceErr = errs.NewValueIsInvalidErrorWithCause("deliveryGracePeriod", fmt.Errorf("%s is not positive", p.DeliveryGracePeriod))
	}
	if p.NegotiationTTL <= 0 {
		ttlErr = errs.NewValueIsInvalidErrorWithCause("negotiationTTL", fmt.Errorf("%s is not positive", p.NegotiationTTL))
	}
	if p.MinCancelReasonLength < 1 {
		reasonErr = errs.NewValueIsOutOfRangeError("minCancelReasonLength", p.MinCancelReasonLength, 1, "unbounded")
	}
	return errors.Join(graceErr, ttlErr, reasonErr, p.CancelExpiry.Validate())
}
