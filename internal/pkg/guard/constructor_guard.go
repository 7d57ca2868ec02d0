// Package guard holds the constructor guard used by value objects, entities
// and commands to tell a constructed instance from a zero value.
package guard

import "errors"

// ErrDefaultConstructorGuard is returned by Validate on a zero guard when the
// caller passes no error of its own.
var ErrDefaultConstructorGuard = errors.New("object must be created via its constructor")

// ConstructorGuard marks a struct as built by its constructor. Embed it in a
// type and call Validate before trusting the instance:
//
//	var ErrExecuteCommandIsNotConstructed = errors.New("ExecuteCommand must be created via NewExecuteCommand")
//
//	type ExecuteCommand struct {
//	    orderID kernel.UUID
//	    guard   guard.ConstructorGuard
//	}
//
//	func (c ExecuteCommand) Validate() error {
//	    return c.guard.Validate(ErrExecuteCommandIsNotConstructed)
//	}
//
// The guard is a plain value, safe to copy and to share between goroutines.
type ConstructorGuard struct {
	isConstructed bool
}

// NewConstructorGuard returns a guard that passes validation.
func NewConstructorGuard() ConstructorGuard {
	return ConstructorGuard{isConstructed: true}
}

// Validate returns nil for a constructed guard. For a zero guard it returns
// validationError, or ErrDefaultConstructorGuard when validationError is nil.
func (g ConstructorGuard) Validate(validationError error) error {
	if g.isConstructed {
		return nil
	}
	if validationError == nil {
		return ErrDefaultConstructorGuard
	}
	return validationError
}
