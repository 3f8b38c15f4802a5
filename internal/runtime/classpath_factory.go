// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"slices"

	"github.com/invowk/scriptexec/internal/classpath"
	"github.com/invowk/scriptexec/internal/config"
)

const (
	// CodeDefaultClasspath indicates no classpath was configured and the
	// built-in sh element was used.
	CodeDefaultClasspath InitDiagnosticCode = "default_classpath"
	// CodeMissingRuntimeType indicates a well-known runtime type is absent
	// from the assembled classpath.
	CodeMissingRuntimeType InitDiagnosticCode = "missing_runtime_type"
)

// ErrInvalidInitDiagnosticCode is the sentinel error wrapped by InvalidInitDiagnosticCodeError.
var ErrInvalidInitDiagnosticCode = errors.New("invalid init diagnostic code")

type (
	// BuildClasspathOptions configures classpath assembly.
	BuildClasspathOptions struct {
		// Config supplies the classpath elements and the configured minimum
		// runtime version.
		Config *config.Config
	}

	// InitDiagnosticCode categorizes non-fatal classpath assembly diagnostics.
	InitDiagnosticCode string

	// InvalidInitDiagnosticCodeError is returned when an InitDiagnosticCode value
	// is not one of the defined diagnostic codes.
	InvalidInitDiagnosticCodeError struct {
		Value InitDiagnosticCode
	}

	// InitDiagnostic reports non-fatal classpath assembly details.
	InitDiagnostic struct {
		Code    InitDiagnosticCode
		Message string
	}

	// ClasspathBuildResult contains the assembled classpath, a Locator over it
	// and any diagnostics collected along the way.
	ClasspathBuildResult struct {
		Classpath   *classpath.Classpath
		Locator     *Locator
		Diagnostics []InitDiagnostic
	}
)

// Error implements the error interface.
func (e *InvalidInitDiagnosticCodeError) Error() string {
	return fmt.Sprintf("invalid init diagnostic code %q (valid: %s, %s)",
		e.Value, CodeDefaultClasspath, CodeMissingRuntimeType)
}

// Unwrap returns ErrInvalidInitDiagnosticCode so callers can use errors.Is for programmatic detection.
func (e *InvalidInitDiagnosticCodeError) Unwrap() error { return ErrInvalidInitDiagnosticCode }

// String returns the string representation of the InitDiagnosticCode.
func (c InitDiagnosticCode) String() string { return string(c) }

// Validate returns nil if the InitDiagnosticCode is one of the defined diagnostic codes,
// or a validation error if it is not.
func (c InitDiagnosticCode) Validate() error {
	switch c {
	case CodeDefaultClasspath, CodeMissingRuntimeType:
		return nil
	default:
		return &InvalidInitDiagnosticCodeError{Value: c}
	}
}

// BuildClasspath assembles the configured classpath and a Locator for it.
// Unknown elements and an invalid minimum version are errors; a classpath
// that lacks some runtime types is reported through Diagnostics so the
// capability check can produce the user-facing failure.
func BuildClasspath(opts BuildClasspathOptions) (ClasspathBuildResult, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	var result ClasspathBuildResult

	elements := cfg.Runtime.Classpath
	if len(elements) == 0 {
		elements = []string{ElementSh}
		result.Diagnostics = append(result.Diagnostics, InitDiagnostic{
			Code:    CodeDefaultClasspath,
			Message: fmt.Sprintf("no runtime classpath configured, using [%s]", ElementSh),
		})
	}

	cp, err := classpath.Assemble(elements...)
	if err != nil {
		return ClasspathBuildResult{}, err
	}

	locator, err := NewLocator(cp, cfg.Runtime.MinVersion)
	if err != nil {
		return ClasspathBuildResult{}, fmt.Errorf("runtime.min_version: %w", err)
	}

	names := cp.Names()
	for _, typ := range []string{SystemType, ShellType, StubGeneratorType} {
		if !slices.Contains(names, typ) {
			result.Diagnostics = append(result.Diagnostics, InitDiagnostic{
				Code:    CodeMissingRuntimeType,
				Message: fmt.Sprintf("classpath %v does not define %s", elements, typ),
			})
		}
	}

	result.Classpath = cp
	result.Locator = locator
	return result, nil
}
