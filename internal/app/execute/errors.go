// SPDX-License-Identifier: MPL-2.0

package execute

import (
	"errors"
	"fmt"
)

var (
	// ErrBuild is the sentinel error wrapped by BuildError.
	ErrBuild = errors.New("build error")
	// ErrBuildFailure is the sentinel error wrapped by BuildFailureError.
	ErrBuildFailure = errors.New("build failure")
)

type (
	// BuildError is an environmental failure outside per-script evaluation:
	// the runtime or one of its members could not be resolved, instantiated
	// or invoked during setup. It is never continued past.
	BuildError struct {
		// Op names what was being attempted, e.g. "instantiate sh.Shell".
		Op    string
		Cause error
	}

	// BuildFailureError is a per-script failure that halted the run because
	// continuing was not enabled.
	BuildFailureError struct {
		// Ordinal is the 1-based position of the failing script.
		Ordinal int
		Cause   error
	}
)

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Cause)
}

// Unwrap returns ErrBuild and the cause.
func (e *BuildError) Unwrap() []error { return []error{ErrBuild, e.Cause} }

// Error implements the error interface.
func (e *BuildFailureError) Error() string {
	return fmt.Sprintf("error occurred executing script ordinal %d: %v", e.Ordinal, e.Cause)
}

// Unwrap returns ErrBuildFailure and the cause.
func (e *BuildFailureError) Unwrap() []error { return []error{ErrBuildFailure, e.Cause} }
