package order

import (
	"fmt"

	"orderflow/internal/pkg/errs"
)

// Status represents the lifecycle state of an order.
//
// State transitions:
//
//	Pending ──> Active ──> InProgress ──> Delivered ──> Completed
//	                          ^  │            │
//	                          └──┼────────────┘ (revision)
//	                             v            v
//	                         CancelPending ──> Cancelled
//
// Disputed can be entered from any non-terminal state by escalation and has
// no internal way out. Completed and Cancelled are terminal.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	Unknown Status = iota
	// Pending orders wait for payment confirmation.
	Pending
	// Active orders are paid and wait for the buyer's requirements.
	Active
	// InProgress orders are being worked on by the seller.
	InProgress
	// Delivered orders have a delivery awaiting the buyer's response.
	Delivered
	// Completed orders were approved by the buyer or the scheduler.
	Completed
	// CancelPending orders have an open cancellation negotiation.
	CancelPending
	// Cancelled orders were cancelled by mutual agreement.
	Cancelled
	// Disputed orders were escalated to support.
	Disputed
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:       "UNKNOWN",
		Pending:       "PENDING",
		Active:        "ACTIVE",
		InProgress:    "IN_PROGRESS",
		Delivered:     "DELIVERED",
		Completed:     "COMPLETED",
		CancelPending: "CANCEL_PENDING",
		Cancelled:     "CANCELLED",
		Disputed:      "DISPUTED",
	}
}

// Validate rejects Unknown and any value outside the declared set.
func (s Status) Validate() error {
	if s <= Unknown || s > Disputed {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the wire name of the status, e.g. "IN_PROGRESS".
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "UNKNOWN"
}

// ParseStatus is the inverse of String for valid statuses.
func ParseStatus(s string) (Status, error) {
	for status, str := range getStatusStrings() {
		if str == s && status != Unknown {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%q is not a valid status", s))
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == Completed || s == Cancelled
}

// Transition checks whether role may perform action from s and returns the
// resulting status. For actions that do not move the order, such as opening a
// non-cancel negotiation, s itself is returned.
//
// Checks run in a fixed order: role authority (UNAUTHORIZED_ROLE), terminal
// state (TERMINAL_STATE), then legality from s (INVALID_TRANSITION).
func (s Status) Transition(action Action, role Role) (Status, error) {
	r, err := action.rule()
	if err != nil {
		return Unknown, err
	}
	if err := r.authorize(action, role); err != nil {
		return Unknown, err
	}
	if s.IsTerminal() {
		return Unknown, errs.Workflowf(errs.CodeTerminalState, "order is %s, %s is not possible", s, action)
	}
	if !r.allowedFrom(s) {
		return Unknown, errs.Workflowf(errs.CodeInvalidTransition, "%s is not allowed from %s", action, s)
	}
	if r.to == Unknown {
		return s, nil
	}
	return r.to, nil
}
