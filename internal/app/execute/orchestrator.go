// SPDX-License-Identifier: MPL-2.0

package execute

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/invowk/scriptexec/internal/classpath"
	"github.com/invowk/scriptexec/internal/exittrap"
	"github.com/invowk/scriptexec/internal/runtime"
	"github.com/invowk/scriptexec/internal/scriptsource"
)

// runMu serializes runs. The exit trap is a single process-wide slot, so two
// overlapping runs would race on install and restore.
var runMu sync.Mutex

type (
	// RuntimeLocator answers capability questions about the classpath runtime.
	RuntimeLocator interface {
		Supports(action runtime.Action) (runtime.Capability, error)
		Classpath() *classpath.Classpath
	}

	// ScriptResolver materializes one script entry.
	ScriptResolver interface {
		Resolve(ctx context.Context, entry string) (scriptsource.Source, error)
	}

	// Request describes one run.
	Request struct {
		// Scripts are evaluated in order.
		Scripts []string
		// ContinueExecuting logs per-script failures and moves on instead of
		// halting the run.
		ContinueExecuting bool
		// BindSeparately binds every entry of Bindings as its own variable.
		// Otherwise Bindings is bound as one associative array named
		// "properties".
		BindSeparately bool
		// AllowSystemExits skips the exit trap so scripts may end the process.
		AllowSystemExits bool
		Bindings         BindingSet
	}

	// Summary reports what a run did.
	Summary struct {
		// Skipped is set when the run ended before the first script, either
		// because the runtime is unsupported or no scripts were given.
		Skipped bool
		// Attempted counts entries that reached resolution.
		Attempted int
		// Succeeded counts entries evaluated without error.
		Succeeded int
		// Failed counts per-script failures, continued past or not.
		Failed int
		// Empty counts fetched entries with no content, which are not evaluated.
		Empty int
	}

	// Option configures an Orchestrator.
	Option func(*Orchestrator)

	// Orchestrator executes script lists. Runs are serialized process-wide.
	Orchestrator struct {
		locator  RuntimeLocator
		resolver ScriptResolver
		logger   *log.Logger
		stdin    io.Reader
		stdout   io.Writer
		stderr   io.Writer
	}

	// session is the Shell instance of one run with its resolved members.
	session struct {
		shell       any
		setProperty *classpath.Callable
		evaluate    *classpath.Callable
	}
)

// WithLogger sets the logger for run progress.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithIO sets the standard streams handed to the Shell.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(o *Orchestrator) {
		o.stdin, o.stdout, o.stderr = in, out, errOut
	}
}

// New returns an Orchestrator wired to the process's standard streams.
func New(locator RuntimeLocator, resolver ScriptResolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		locator:  locator,
		resolver: resolver,
		logger:   log.New(io.Discard),
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute runs req. An unsupported runtime or an empty script list is logged
// and reported as a skipped Summary with a nil error. Setup failures return a
// *BuildError; a per-script failure that is not continued past returns a
// *BuildFailureError. The exit policy in force before the call is restored
// on every return path.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (Summary, error) {
	runMu.Lock()
	defer runMu.Unlock()

	capability, err := o.locator.Supports(runtime.ActionExecute)
	if err != nil {
		return Summary{}, &BuildError{Op: "locate script runtime", Cause: err}
	}
	if !capability.Supported {
		o.logger.Errorf("Your script runtime version (%s) doesn't support script execution. The minimum version is %s.",
			capability.Detected, capability.Minimum)
		return Summary{Skipped: true}, nil
	}
	o.logger.Infof("Using script runtime %s to perform execute.", capability.Detected)
	o.logger.Debug("Resolved classpath.", "elements", o.locator.Classpath().Elements())

	if len(req.Scripts) == 0 {
		o.logger.Info("No scripts specified for execution. Skipping.")
		return Summary{Skipped: true}, nil
	}

	release, err := exittrap.Guard(req.AllowSystemExits)
	if err != nil {
		return Summary{}, &BuildError{Op: "install exit trap", Cause: err}
	}
	defer release()

	s, err := o.setup(req)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	for i, entry := range req.Scripts {
		ordinal := i + 1
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("execution canceled before script ordinal %d: %w", ordinal, err)
		}

		summary.Attempted++
		empty, err := o.run(ctx, s, entry)
		switch {
		case err == nil && empty:
			summary.Empty++
			continue
		case err == nil:
			summary.Succeeded++
			continue
		case !perScript(err):
			return summary, &BuildError{Op: fmt.Sprintf("evaluate script ordinal %d", ordinal), Cause: err}
		}

		summary.Failed++
		if !req.ContinueExecuting {
			return summary, &BuildFailureError{Ordinal: ordinal, Cause: err}
		}
		o.logger.Error(fmt.Sprintf("Error occurred executing script ordinal %d. Continuing.", ordinal), "error", err)
	}
	return summary, nil
}

// setup builds the Shell for one run and binds req.Bindings into it.
func (o *Orchestrator) setup(req Request) (*session, error) {
	cp := o.locator.Classpath()

	class, err := cp.ResolveType(runtime.ShellType)
	if err != nil {
		return nil, &BuildError{Op: "resolve " + runtime.ShellType, Cause: err}
	}

	ctor, err := class.Constructor(
		classpath.TypeOf[io.Reader](),
		classpath.TypeOf[io.Writer](),
		classpath.TypeOf[io.Writer](),
	)
	if err != nil {
		return nil, &BuildError{Op: "resolve " + runtime.ShellType + " constructor", Cause: err}
	}
	shell, err := classpath.New(ctor, o.stdin, o.stdout, o.stderr)
	if err != nil {
		return nil, &BuildError{Op: "instantiate " + runtime.ShellType, Cause: err}
	}

	setProperty, err := class.Method("SetProperty", classpath.TypeOf[string](), classpath.TypeOf[any]())
	if err != nil {
		return nil, &BuildError{Op: "resolve " + runtime.ShellType + ".SetProperty", Cause: err}
	}
	evaluate, err := class.Method("Evaluate", classpath.TypeOf[string]())
	if err != nil {
		return nil, &BuildError{Op: "resolve " + runtime.ShellType + ".Evaluate", Cause: err}
	}

	s := &session{shell: shell, setProperty: setProperty, evaluate: evaluate}
	if err := s.bind(req.Bindings, req.BindSeparately); err != nil {
		return nil, &BuildError{Op: "bind properties into " + runtime.ShellType, Cause: err}
	}
	return s, nil
}

// run resolves and evaluates one entry. It reports empty when a fetched
// source had no content and so was not evaluated.
func (o *Orchestrator) run(ctx context.Context, s *session, entry string) (empty bool, err error) {
	src, err := o.resolver.Resolve(ctx, entry)
	if err != nil {
		return false, err
	}
	if src.Empty {
		o.logger.Debug("Fetched script is empty, nothing to evaluate.", "ref", src.Ref)
		return true, nil
	}
	_, err = classpath.Invoke(s.evaluate, s.shell, src.Text)
	return false, err
}

func (s *session) bind(bindings BindingSet, separately bool) error {
	if !separately {
		_, err := classpath.Invoke(s.setProperty, s.shell, PropertiesVariable, map[string]any(bindings))
		return err
	}
	for _, name := range slices.Sorted(maps.Keys(bindings)) {
		if _, err := classpath.Invoke(s.setProperty, s.shell, name, bindings[name]); err != nil {
			return err
		}
	}
	return nil
}

// perScript reports whether err is a failure of one script that the continue
// flag may skip past: a fetch failure or a failure raised by the evaluation.
func perScript(err error) bool {
	return errors.Is(err, scriptsource.ErrFetch) || errors.Is(err, classpath.ErrInvocationTarget)
}
