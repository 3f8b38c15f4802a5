// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/invowk/scriptexec/internal/classpath"
)

const (
	// SystemType is the classpath type that reports the runtime version.
	SystemType = "sh.System"
	// ShellType is the classpath type scripts are evaluated against.
	ShellType = "sh.Shell"
	// StubGeneratorType is the classpath type that derives test stubs.
	StubGeneratorType = "sh.StubGenerator"

	// ActionExecute is the capability to evaluate scripts.
	ActionExecute Action = "execute"
	// ActionGenerateStubs is the capability to generate test stubs.
	ActionGenerateStubs Action = "generate-stubs"
)

var (
	// ErrRuntimeNotFound is returned when no runtime is present on the classpath.
	ErrRuntimeNotFound = errors.New("script runtime not found on classpath")
	// ErrInvalidVersion is the sentinel error wrapped by InvalidVersionError.
	ErrInvalidVersion = errors.New("invalid runtime version")
	// ErrInvalidAction is the sentinel error wrapped by InvalidActionError.
	ErrInvalidAction = errors.New("invalid runtime action")

	//nolint:gochecknoglobals // Static minimum versions per action.
	minimumVersions = map[Action]string{
		ActionExecute:       "v3.0.0",
		ActionGenerateStubs: "v3.1.0",
	}
)

type (
	// Action names something the orchestrator may ask a runtime to do.
	Action string

	// InvalidActionError is returned when an Action is not one of the known actions.
	InvalidActionError struct {
		Value Action
	}

	// InvalidVersionError is returned when a version string is not valid semver.
	InvalidVersionError struct {
		Value string
	}

	// RuntimeNotFoundError is returned when the version-reporting type is
	// absent from the classpath.
	RuntimeNotFoundError struct {
		Type     string
		Elements []string
		Cause    error
	}

	// Capability is the outcome of comparing the detected runtime version
	// with the minimum an action requires.
	Capability struct {
		Action    Action
		Detected  string
		Minimum   string
		Supported bool
	}

	// Locator answers capability questions about the runtime found on a
	// classpath. It is read-only.
	Locator struct {
		cp    *classpath.Classpath
		floor string
	}
)

// Error implements the error interface.
func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid runtime action %q (valid: %s, %s)", e.Value, ActionExecute, ActionGenerateStubs)
}

// Unwrap returns ErrInvalidAction so callers can use errors.Is for programmatic detection.
func (e *InvalidActionError) Unwrap() error { return ErrInvalidAction }

// Error implements the error interface.
func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid runtime version %q: not a semantic version", e.Value)
}

// Unwrap returns ErrInvalidVersion so callers can use errors.Is for programmatic detection.
func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }

// Error implements the error interface.
func (e *RuntimeNotFoundError) Error() string {
	return fmt.Sprintf("no script runtime on classpath %v: %s is not defined", e.Elements, e.Type)
}

// Unwrap returns ErrRuntimeNotFound and the resolution failure.
func (e *RuntimeNotFoundError) Unwrap() []error {
	return []error{ErrRuntimeNotFound, e.Cause}
}

// String returns the action name.
func (a Action) String() string { return string(a) }

// IsValid returns whether the Action is known, and a list of validation
// errors if it is not.
func (a Action) IsValid() (bool, []error) {
	if _, ok := minimumVersions[a]; !ok {
		return false, []error{&InvalidActionError{Value: a}}
	}
	return true, nil
}

// MinimumVersion returns the lowest runtime version that supports the action.
func (a Action) MinimumVersion() string {
	return minimumVersions[a]
}

// String describes the capability for logs.
func (c Capability) String() string {
	if c.Supported {
		return fmt.Sprintf("%s supported by runtime %s (minimum %s)", c.Action, c.Detected, c.Minimum)
	}
	return fmt.Sprintf("%s not supported by runtime %s (minimum %s)", c.Action, c.Detected, c.Minimum)
}

// NewLocator returns a Locator for cp. A non-empty minVersion raises the
// minimum of every action whose static minimum is lower; it never lowers one.
func NewLocator(cp *classpath.Classpath, minVersion string) (*Locator, error) {
	l := &Locator{cp: cp}
	if strings.TrimSpace(minVersion) != "" {
		norm, err := NormalizeVersion(minVersion)
		if err != nil {
			return nil, err
		}
		l.floor = norm
	}
	return l, nil
}

// Classpath returns the classpath the locator inspects.
func (l *Locator) Classpath() *classpath.Classpath { return l.cp }

// DetectedVersion resolves the runtime's System type and asks it for its
// version. When the type is missing the error wraps ErrRuntimeNotFound;
// every other failure is one of the classpath error kinds.
func (l *Locator) DetectedVersion() (string, error) {
	class, err := l.cp.ResolveType(SystemType)
	if err != nil {
		if errors.Is(err, classpath.ErrTypeNotFound) {
			return "", &RuntimeNotFoundError{Type: SystemType, Elements: l.cp.Elements(), Cause: err}
		}
		return "", err
	}

	ctor, err := class.Constructor()
	if err != nil {
		return "", err
	}
	system, err := classpath.New(ctor)
	if err != nil {
		return "", err
	}
	version, err := class.Method("Version")
	if err != nil {
		return "", err
	}
	results, err := classpath.Invoke(version, system)
	if err != nil {
		return "", err
	}
	if len(results) != 1 {
		return "", &classpath.AccessError{Class: SystemType, Member: "Version()", Reason: "expected a single result"}
	}
	v, ok := results[0].(string)
	if !ok {
		return "", &classpath.AccessError{
			Class:  SystemType,
			Member: "Version()",
			Reason: fmt.Sprintf("result has type %T, want string", results[0]),
		}
	}
	return v, nil
}

// Minimum returns the effective minimum version for action.
func (l *Locator) Minimum(action Action) string {
	minimum := action.MinimumVersion()
	if l.floor != "" && semver.Compare(l.floor, minimum) > 0 {
		return l.floor
	}
	return minimum
}

// Supports reports whether the detected runtime can perform action.
func (l *Locator) Supports(action Action) (Capability, error) {
	if ok, errs := action.IsValid(); !ok {
		return Capability{}, errors.Join(errs...)
	}

	detected, err := l.DetectedVersion()
	if err != nil {
		return Capability{}, err
	}

	capability := Capability{
		Action:   action,
		Detected: detected,
		Minimum:  l.Minimum(action),
	}

	norm, err := NormalizeVersion(detected)
	if err != nil {
		// Unparseable versions are reported as unsupported.
		return capability, nil
	}
	capability.Supported = semver.Compare(norm, capability.Minimum) >= 0
	return capability, nil
}

// NormalizeVersion adds the "v" prefix the semver package requires and
// validates the result.
func NormalizeVersion(v string) (string, error) {
	norm := strings.TrimSpace(v)
	if !strings.HasPrefix(norm, "v") {
		norm = "v" + norm
	}
	if !semver.IsValid(norm) {
		return "", &InvalidVersionError{Value: v}
	}
	return norm, nil
}
