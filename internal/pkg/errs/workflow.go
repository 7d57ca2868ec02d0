package errs

import (
	"errors"
	"fmt"
)

// Code is the stable machine-readable identifier carried by every workflow error.
type Code string

const (
	CodeInvalidTransition      Code = "INVALID_TRANSITION"
	CodeUnauthorizedRole       Code = "UNAUTHORIZED_ROLE"
	CodeNotParticipant         Code = "NOT_PARTICIPANT"
	CodeTerminalState          Code = "TERMINAL_STATE"
	CodeNegotiationAlreadyOpen Code = "NEGOTIATION_ALREADY_OPEN"
	CodeInvalidPayload         Code = "INVALID_PAYLOAD"
	CodeInvalidStateForType    Code = "INVALID_STATE_FOR_TYPE"
	CodeRevisionLimitExceeded  Code = "REVISION_LIMIT_EXCEEDED"
	CodeAlreadyResolved        Code = "ALREADY_RESOLVED"
	CodeNotDue                 Code = "NOT_DUE"
	CodeConcurrencyConflict    Code = "CONCURRENCY_CONFLICT"
	CodeCorruptAggregate       Code = "CORRUPT_AGGREGATE"
	CodePaymentNotAuthorized   Code = "PAYMENT_NOT_AUTHORIZED"
	CodeOrderNotFound          Code = "ORDER_NOT_FOUND"
)

// Category groups codes by how callers are expected to react to them.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryValidation
	CategoryAuthorization
	CategoryStateConflict
	CategoryConcurrency
	CategoryFatal
	CategoryIdempotent
	CategoryNotFound
)

func (c Category) String() string {
	switch c {
	case CategoryValidation:
		return "validation"
	case CategoryAuthorization:
		return "authorization"
	case CategoryStateConflict:
		return "state_conflict"
	case CategoryConcurrency:
		return "concurrency"
	case CategoryFatal:
		return "fatal"
	case CategoryIdempotent:
		return "idempotent"
	case CategoryNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

var codeCategories = map[Code]Category{
	CodeInvalidPayload:         CategoryValidation,
	CodeUnauthorizedRole:       CategoryAuthorization,
	CodeNotParticipant:         CategoryAuthorization,
	CodeInvalidTransition:      CategoryStateConflict,
	CodeTerminalState:          CategoryStateConflict,
	CodeNegotiationAlreadyOpen: CategoryStateConflict,
	CodeInvalidStateForType:    CategoryStateConflict,
	CodeRevisionLimitExceeded:  CategoryStateConflict,
	CodePaymentNotAuthorized:   CategoryStateConflict,
	CodeConcurrencyConflict:    CategoryConcurrency,
	CodeCorruptAggregate:       CategoryFatal,
	CodeAlreadyResolved:        CategoryIdempotent,
	CodeNotDue:                 CategoryIdempotent,
	CodeOrderNotFound:          CategoryNotFound,
}

// Category returns the handling category of the code.
func (c Code) Category() Category {
	return codeCategories[c]
}

var (
	ErrInvalidTransition      = &WorkflowError{Code: CodeInvalidTransition, Message: "action is not legal in the current state"}
	ErrUnauthorizedRole       = &WorkflowError{Code: CodeUnauthorizedRole, Message: "role may not perform this action"}
	ErrNotParticipant         = &WorkflowError{Code: CodeNotParticipant, Message: "actor is not a participant of the order"}
	ErrTerminalState          = &WorkflowError{Code: CodeTerminalState, Message: "order is in a terminal state"}
	ErrNegotiationAlreadyOpen = &WorkflowError{Code: CodeNegotiationAlreadyOpen, Message: "a negotiation is already open"}
	ErrInvalidPayload         = &WorkflowError{Code: CodeInvalidPayload, Message: "payload is invalid"}
	ErrInvalidStateForType    = &WorkflowError{Code: CodeInvalidStateForType, Message: "negotiation type is not allowed in the current state"}
	ErrRevisionLimitExceeded  = &WorkflowError{Code: CodeRevisionLimitExceeded, Message: "revision limit reached"}
	ErrAlreadyResolved        = &WorkflowError{Code: CodeAlreadyResolved, Message: "already resolved"}
	ErrNotDue                 = &WorkflowError{Code: CodeNotDue, Message: "deadline not reached"}
	ErrConcurrencyConflict    = &WorkflowError{Code: CodeConcurrencyConflict, Message: "order was modified concurrently"}
	ErrCorruptAggregate       = &WorkflowError{Code: CodeCorruptAggregate, Message: "order aggregate is inconsistent"}
	ErrPaymentNotAuthorized   = &WorkflowError{Code: CodePaymentNotAuthorized, Message: "payment adjustment was not authorized"}
	ErrOrderNotFound          = &WorkflowError{Code: CodeOrderNotFound, Message: "order not found"}
)

// WorkflowError is a coded error raised by the order workflow. Two workflow
// errors match under errors.Is when their codes are equal, so the package
// level sentinels can be used as targets.
type WorkflowError struct {
	Code    Code
	Message string
	Cause   error
}

// NewWorkflowError creates a workflow error with a specific message.
func NewWorkflowError(code Code, message string) *WorkflowError {
	return &WorkflowError{Code: code, Message: message}
}

// NewWorkflowErrorWithCause creates a workflow error wrapping cause.
func NewWorkflowErrorWithCause(code Code, message string, cause error) *WorkflowError {
	return &WorkflowError{Code: code, Message: message, Cause: cause}
}

// Workflowf builds a workflow error with a formatted message.
func Workflowf(code Code, format string, args ...any) *WorkflowError {
	return &WorkflowError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *WorkflowError) Error() string {
	return withCause(fmt.Sprintf("%s: %s", e.Code, e.Message), e.Cause)
}

func (e *WorkflowError) Unwrap() error {
	return e.Cause
}

func (e *WorkflowError) Is(target error) bool {
	var t *WorkflowError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Category returns the handling category of the error code.
func (e *WorkflowError) Category() Category {
	return e.Code.Category()
}

// CodeOf extracts the workflow code from err, if any.
func CodeOf(err error) (Code, bool) {
	var we *WorkflowError
	if errors.As(err, &we) {
		return we.Code, true
	}
	return "", false
}

// CategoryOf classifies err. Errors from the generic value errors above are
// treated as validation failures and object lookups as not found.
func CategoryOf(err error) Category {
	if code, ok := CodeOf(err); ok {
		return code.Category()
	}
	switch {
	case errors.Is(err, ErrValueIsInvalid),
		errors.Is(err, ErrValueIsRequired),
		errors.Is(err, ErrValueIsOutOfRange):
		return CategoryValidation
	case errors.Is(err, ErrObjectNotFound):
		return CategoryNotFound
	case errors.Is(err, ErrVersionIsInvalid):
		return CategoryConcurrency
	default:
		return CategoryUnknown
	}
}
