// Package errs provides standardized error types for the order workflow service.
// It implements a consistent pattern for error creation, formatting, and unwrapping
// that is used throughout the application.
//
// The package includes two families of errors:
//   - Value errors (ValueIsRequiredError, ValueIsInvalidError, ValueIsOutOfRangeError,
//     ObjectNotFoundError, VersionIsInvalidError) used by constructors and repositories
//   - WorkflowError, a coded error with a stable machine-readable Code and a Category
//     (validation, authorization, state conflict, concurrency, fatal, idempotent)
//
// Each value error type follows a consistent pattern:
//   - A sentinel error variable (e.g., ErrValueIsRequired)
//   - A struct type with fields for error details
//   - Constructor functions with and without cause
//   - Error() method for formatting the error message
//   - Unwrap() method for error wrapping/unwrapping support
//
// Workflow errors match each other by code, so callers test them with
// errors.Is(err, errs.ErrInvalidTransition) regardless of the message.
package errs
