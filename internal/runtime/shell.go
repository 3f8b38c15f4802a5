// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/invowk/scriptexec/internal/exittrap"
	"github.com/invowk/scriptexec/pkg/types"
)

// hostEnvPrefix marks configuration overrides that must not leak into scripts.
const hostEnvPrefix = "SCRIPTEXEC_"

// ErrScriptFailed is the sentinel error wrapped by ScriptError.
var ErrScriptFailed = errors.New("script failed")

type (
	// Shell is a persistent mvdan/sh interpreter. Variables bound with
	// SetProperty and state created by one Evaluate call are visible to the
	// next. A Shell is not safe for concurrent use.
	Shell struct {
		runner   *interp.Runner
		parser   *syntax.Parser
		stdout   *switchWriter
		bindings []string
		// owners maps each bound shell identifier to the name that claimed it.
		owners map[string]string
	}

	// ScriptError describes a script that could not be parsed or finished
	// with a non-zero status.
	ScriptError struct {
		Phase    string
		ExitCode types.ExitCode
		Cause    error
	}

	// switchWriter forwards to dst unless a capture buffer is installed.
	switchWriter struct {
		dst     io.Writer
		capture *strings.Builder
	}
)

// Error implements the error interface.
func (e *ScriptError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("script %s failed: %v", e.Phase, e.Cause)
	}
	return fmt.Sprintf("script %s failed with exit status %s", e.Phase, e.ExitCode)
}

// Unwrap returns ErrScriptFailed and the underlying cause.
func (e *ScriptError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrScriptFailed}
	}
	return []error{ErrScriptFailed, e.Cause}
}

func (w *switchWriter) Write(p []byte) (int, error) {
	if w.capture != nil {
		return w.capture.Write(p)
	}
	if w.dst == nil {
		return len(p), nil
	}
	return w.dst.Write(p)
}

// NewShell returns a Shell wired to the process's standard streams.
func NewShell() (*Shell, error) {
	return NewShellWithIO(os.Stdin, os.Stdout, os.Stderr)
}

// NewShellWithIO returns a Shell reading from in and writing to out and errOut.
// Any of them may be nil.
func NewShellWithIO(in io.Reader, out, errOut io.Writer) (*Shell, error) {
	if errOut == nil {
		errOut = io.Discard
	}
	stdout := &switchWriter{dst: out}

	runner, err := interp.New(
		interp.Env(expand.ListEnviron(filterHostEnv(os.Environ())...)),
		interp.StdIO(in, stdout, errOut),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create interpreter: %w", err)
	}

	return &Shell{
		runner: runner,
		parser: syntax.NewParser(),
		stdout: stdout,
		owners: make(map[string]string),
	}, nil
}

// SetProperty binds value to a shell variable named after name. Scalars
// become plain variables, slices indexed arrays and maps associative arrays.
// Characters that cannot appear in a shell identifier are replaced with '_'.
// Rebinding a name replaces its value, but two distinct names that map to the
// same identifier are rejected with an *InvalidBindingError.
func (s *Shell) SetProperty(name string, value any) error {
	decl, err := declaration(name, value)
	if err != nil {
		return err
	}
	ident := identifier(name)
	if owner, ok := s.owners[ident]; ok && owner != name {
		return &InvalidBindingError{
			Name:   name,
			Reason: fmt.Sprintf("shell variable %s is already bound from %q", ident, owner),
		}
	}
	if err := s.run(decl, "binding"); err != nil {
		return fmt.Errorf("bind %q: %w", name, err)
	}
	s.owners[ident] = name
	s.bindings = append(s.bindings, decl)
	return nil
}

// Evaluate parses and runs script. A parse failure or a non-zero final
// status is returned as a *ScriptError. An exit requested by the script is
// routed through the process exit trap; when the trap refuses it, the shell
// is reset to its bound state and the refusal is returned.
func (s *Shell) Evaluate(script string) error {
	prog, err := s.parser.Parse(strings.NewReader(script), "script")
	if err != nil {
		return &ScriptError{Phase: "parse", Cause: err}
	}

	runErr := s.runner.Run(context.Background(), prog)

	if s.runner.Exited() {
		if exitErr := exittrap.Exit(exitCodeOf(runErr)); exitErr != nil {
			if resetErr := s.reset(); resetErr != nil {
				return errors.Join(exitErr, resetErr)
			}
			return exitErr
		}
		return nil
	}

	if runErr != nil {
		var status interp.ExitStatus
		if errors.As(runErr, &status) {
			return &ScriptError{Phase: "execution", ExitCode: types.ExitCode(status)}
		}
		return &ScriptError{Phase: "execution", ExitCode: 1, Cause: runErr}
	}
	return nil
}

// Property reports the string value of the variable bound under name.
func (s *Shell) Property(name string) (string, bool) {
	ident := identifier(name)
	if ident == "" {
		return "", false
	}

	var buf strings.Builder
	s.stdout.capture = &buf
	defer func() { s.stdout.capture = nil }()

	probe := fmt.Sprintf(`printf '%%s:%%s' "${%s+set}" "${%s}"`, ident, ident)
	if err := s.run(probe, "probe"); err != nil {
		return "", false
	}
	marker, value, _ := strings.Cut(buf.String(), ":")
	return value, marker == "set"
}

func (s *Shell) run(src, name string) error {
	prog, err := s.parser.Parse(strings.NewReader(src), name)
	if err != nil {
		return err
	}
	return s.runner.Run(context.Background(), prog)
}

// reset clears interpreter state and replays the bindings made so far.
func (s *Shell) reset() error {
	s.runner.Reset()
	for _, decl := range s.bindings {
		if err := s.run(decl, "binding"); err != nil {
			return fmt.Errorf("rebind after reset: %w", err)
		}
	}
	return nil
}

func exitCodeOf(err error) types.ExitCode {
	if err == nil {
		return types.ExitSuccess
	}
	var status interp.ExitStatus
	if errors.As(err, &status) {
		return types.ExitCode(status)
	}
	return types.ExitCode(1)
}

// filterHostEnv drops configuration overrides from the inherited environment.
func filterHostEnv(environ []string) []string {
	filtered := make([]string, 0, len(environ))
	for _, entry := range environ {
		if strings.HasPrefix(entry, hostEnvPrefix) {
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered
}
