// SPDX-License-Identifier: MPL-2.0

package classpath

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeNotFound is the sentinel error wrapped by TypeNotFoundError.
	ErrTypeNotFound = errors.New("type not found")
	// ErrInvocationTarget is the sentinel error wrapped by InvocationTargetError.
	ErrInvocationTarget = errors.New("invocation target failed")
	// ErrInstantiation is the sentinel error wrapped by InstantiationError.
	ErrInstantiation = errors.New("instantiation failed")
	// ErrAccess is the sentinel error wrapped by AccessError.
	ErrAccess = errors.New("member not accessible")
	// ErrElementNotFound is the sentinel error wrapped by ElementNotFoundError.
	ErrElementNotFound = errors.New("classpath element not found")
)

type (
	// TypeNotFoundError is returned when a type name is not defined by any
	// element of the classpath.
	TypeNotFoundError struct {
		Name     string
		Elements []string
	}

	// InvocationTargetError is returned when the invoked constructor or method
	// itself failed, either by returning a non-nil error or by panicking.
	InvocationTargetError struct {
		Class  string
		Member string
		Cause  error
	}

	// InstantiationError is returned when a type could not be instantiated:
	// no constructor matches the requested signature, or the constructor
	// produced no instance.
	InstantiationError struct {
		Class  string
		Reason string
	}

	// AccessError is returned when a member cannot be invoked: it is
	// unexported, absent, or the call does not match its signature.
	AccessError struct {
		Class  string
		Member string
		Reason string
	}

	// ElementNotFoundError is returned by Assemble when a classpath element
	// has no registered provider.
	ElementNotFoundError struct {
		Element   string
		Available []string
	}

	// DefinitionError is returned by Builder.Define when a provider tries to
	// register an invalid type definition.
	DefinitionError struct {
		Name   string
		Reason string
	}
)

// Error implements the error interface.
func (e *TypeNotFoundError) Error() string {
	return fmt.Sprintf("type %q not found on classpath %v", e.Name, e.Elements)
}

// Unwrap returns ErrTypeNotFound so callers can use errors.Is for programmatic detection.
func (e *TypeNotFoundError) Unwrap() error { return ErrTypeNotFound }

// Error implements the error interface.
func (e *InvocationTargetError) Error() string {
	return fmt.Sprintf("%s.%s failed: %v", e.Class, e.Member, e.Cause)
}

// Unwrap returns both the sentinel and the underlying cause, so errors.Is
// matches ErrInvocationTarget and errors.As reaches the callee's error.
func (e *InvocationTargetError) Unwrap() []error {
	return []error{ErrInvocationTarget, e.Cause}
}

// Error implements the error interface.
func (e *InstantiationError) Error() string {
	return fmt.Sprintf("cannot instantiate %s: %s", e.Class, e.Reason)
}

// Unwrap returns ErrInstantiation so callers can use errors.Is for programmatic detection.
func (e *InstantiationError) Unwrap() error { return ErrInstantiation }

// Error implements the error interface.
func (e *AccessError) Error() string {
	return fmt.Sprintf("cannot access %s.%s: %s", e.Class, e.Member, e.Reason)
}

// Unwrap returns ErrAccess so callers can use errors.Is for programmatic detection.
func (e *AccessError) Unwrap() error { return ErrAccess }

// Error implements the error interface.
func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("classpath element %q has no registered provider (available: %v)", e.Element, e.Available)
}

// Unwrap returns ErrElementNotFound so callers can use errors.Is for programmatic detection.
func (e *ElementNotFoundError) Unwrap() error { return ErrElementNotFound }

// Error implements the error interface.
func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid type definition %q: %s", e.Name, e.Reason)
}

// IsReflectiveError reports whether err carries one of the four resolution
// or invocation kinds.
func IsReflectiveError(err error) bool {
	return errors.Is(err, ErrTypeNotFound) ||
		errors.Is(err, ErrInvocationTarget) ||
		errors.Is(err, ErrInstantiation) ||
		errors.Is(err, ErrAccess)
}
