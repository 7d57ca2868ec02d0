package order

import (
	"errors"
	"fmt"
	"slices"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

// Role is the capacity in which an actor calls the workflow.
type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleSeller Role = "SELLER"
	RoleSystem Role = "SYSTEM"
)

func (r Role) Validate() error {
	switch r {
	case RoleBuyer, RoleSeller, RoleSystem:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause("role", fmt.Errorf("%q is not a valid role", string(r)))
	}
}

// Counterparty returns the other participant role. SYSTEM has none.
func (r Role) Counterparty() Role {
	switch r {
	case RoleBuyer:
		return RoleSeller
	case RoleSeller:
		return RoleBuyer
	default:
		return ""
	}
}

func (r Role) String() string {
	return string(r)
}

// SystemActorID identifies the scheduler and support tooling in audit entries.
var SystemActorID = kernel.MustUUIDFromString("00000000-0000-4000-8000-000000000001")

// Actor is the authenticated caller of a workflow operation.
type Actor struct {
	ID   kernel.UUID
	Role Role
}

func NewActor(id kernel.UUID, role Role) (Actor, error) {
	if err := errors.Join(id.Validate(), role.Validate()); err != nil {
		return Actor{}, err
	}
	return Actor{ID: id, Role: role}, nil
}

// SystemActor is the actor used for scheduler ticks.
func SystemActor() Actor {
	return Actor{ID: SystemActorID, Role: RoleSystem}
}

// Action names a workflow operation.
type Action string

const (
	ActionConfirmPayment      Action = "CONFIRM_PAYMENT"
	ActionSubmitRequirements  Action = "SUBMIT_REQUIREMENTS"
	ActionDeliver             Action = "DELIVER"
	ActionApproveDelivery     Action = "APPROVE_DELIVERY"
	ActionRequestRevision     Action = "REQUEST_REVISION"
	ActionAutoApproveDelivery Action = "AUTO_APPROVE_DELIVERY"
	ActionOpenNegotiation     Action = "OPEN_NEGOTIATION"
	ActionRespondNegotiation  Action = "RESPOND_NEGOTIATION"
	ActionExpireNegotiation   Action = "EXPIRE_NEGOTIATION"
	ActionEscalateDispute     Action = "ESCALATE_DISPUTE"
)

func (a Action) String() string {
	return string(a)
}

func (a Action) Validate() error {
	_, err := a.rule()
	return err
}

// Authorize reports UNAUTHORIZED_ROLE when role may never perform a.
func (a Action) Authorize(role Role) error {
	r, err := a.rule()
	if err != nil {
		return err
	}
	return r.authorize(a, role)
}

type transitionRule struct {
	roles []Role
	from  []Status
	// to is Unknown when the action leaves the status as it is.
	to Status
}

var nonTerminal = []Status{Pending, Active, InProgress, Delivered, CancelPending, Disputed}

var transitionTable = map[Action]transitionRule{
	ActionConfirmPayment:      {roles: []Role{RoleSystem}, from: []Status{Pending}, to: Active},
	ActionSubmitRequirements:  {roles: []Role{RoleBuyer}, from: []Status{Active}, to: InProgress},
	ActionDeliver:             {roles: []Role{RoleSeller}, from: []Status{InProgress}, to: Delivered},
	ActionApproveDelivery:     {roles: []Role{RoleBuyer}, from: []Status{Delivered}, to: Completed},
	ActionRequestRevision:     {roles: []Role{RoleBuyer}, from: []Status{Delivered}, to: InProgress},
	ActionAutoApproveDelivery: {roles: []Role{RoleSystem}, from: []Status{Delivered}, to: Completed},
	ActionOpenNegotiation:     {roles: []Role{RoleBuyer, RoleSeller}, from: nonTerminal},
	ActionRespondNegotiation:  {roles: []Role{RoleBuyer, RoleSeller}, from: nonTerminal},
	ActionExpireNegotiation:   {roles: []Role{RoleSystem}, from: nonTerminal},
	ActionEscalateDispute: {
		roles: []Role{RoleSystem},
		from:  []Status{Pending, Active, InProgress, Delivered, CancelPending},
		to:    Disputed,
	},
}

func (a Action) rule() (transitionRule, error) {
	r, ok := transitionTable[a]
	if !ok {
		return transitionRule{}, errs.NewValueIsInvalidErrorWithCause("action", fmt.Errorf("%q is not a valid action", string(a)))
	}
	return r, nil
}

func (r transitionRule) authorize(a Action, role Role) error {
	if !slices.Contains(r.roles, role) {
		return errs.Workflowf(errs.CodeUnauthorizedRole, "%s may not perform %s", role, a)
	}
	return nil
}

func (r transitionRule) allowedFrom(s Status) bool {
	return slices.Contains(r.from, s)
}
