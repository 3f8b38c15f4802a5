// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{"operation only", &ActionableError{Operation: "load configuration"}, "failed to load configuration"},
		{
			"with resource",
			&ActionableError{Operation: "load configuration", Resource: "./scriptexec.cue"},
			"failed to load configuration: ./scriptexec.cue",
		},
		{
			"with cause",
			&ActionableError{Operation: "fetch script", Cause: errors.New("connection refused")},
			"failed to fetch script: connection refused",
		},
		{
			"full context",
			&ActionableError{
				Operation: "load configuration",
				Resource:  "./scriptexec.cue",
				Cause:     errors.New("execute.scripts: conflicting values"),
			},
			"failed to load configuration: ./scriptexec.cue: execute.scripts: conflicting values",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("sentinel")
	err := WrapWithOperation(fmt.Errorf("middle: %w", sentinel), "evaluate script")
	if !errors.Is(err, sentinel) {
		t.Error("errors.Is() did not find the wrapped sentinel")
	}
	if (&ActionableError{Operation: "x"}).Unwrap() != nil {
		t.Error("Unwrap() without cause should be nil")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	root := errors.New("no such host")
	err := &ActionableError{
		Operation:   "fetch script",
		Resource:    "https://example.invalid/a.sh",
		Suggestions: []string{"Check the URL", "Raise execute.fetch_timeout"},
		Cause:       fmt.Errorf("dial: %w", root),
	}

	tests := []struct {
		name    string
		verbose bool
		want    []string
		absent  []string
	}{
		{
			name:   "concise",
			want:   []string{"failed to fetch script", "\n  • Check the URL", "\n  • Raise execute.fetch_timeout"},
			absent: []string{"Error chain:"},
		},
		{
			name:    "verbose",
			verbose: true,
			want:    []string{"Error chain:", "\n  1. dial: no such host", "\n  2. no such host"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := err.Format(tt.verbose)
			for _, s := range tt.want {
				if !strings.Contains(got, s) {
					t.Errorf("Format(%v) missing %q:\n%s", tt.verbose, s, got)
				}
			}
			for _, s := range tt.absent {
				if strings.Contains(got, s) {
					t.Errorf("Format(%v) should not contain %q:\n%s", tt.verbose, s, got)
				}
			}
		})
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	got := NewErrorContext().
		WithOperation("generate test stubs").
		WithResource("test/a.sh").
		WithSuggestion("one").
		WithSuggestions("two", "three").
		WithIssue(StubGenerationFailedId).
		Wrap(cause).
		Build()

	if got.Operation != "generate test stubs" || got.Resource != "test/a.sh" {
		t.Errorf("Build() = %+v", got)
	}
	if strings.Join(got.Suggestions, ",") != "one,two,three" {
		t.Errorf("Suggestions = %v", got.Suggestions)
	}
	if got.Issue != StubGenerationFailedId || !errors.Is(got, cause) {
		t.Errorf("Build() lost issue or cause: %+v", got)
	}
	if !got.HasSuggestions() {
		t.Error("HasSuggestions() = false")
	}
}

func TestErrorContext_BuildWithoutOperation(t *testing.T) {
	t.Parallel()

	c := NewErrorContext().WithResource("x")
	if c.Build() != nil {
		t.Error("Build() without operation should be nil")
	}
	if err := c.BuildError(); err != nil {
		t.Errorf("BuildError() = %v, want untyped nil", err)
	}
}

func TestErrorContext_ReuseKeepsSuggestionsApart(t *testing.T) {
	t.Parallel()

	c := NewErrorContext().WithOperation("process").WithSuggestion("first")
	a := c.Wrap(errors.New("a")).Build()
	b := c.WithSuggestion("second").Wrap(errors.New("b")).Build()

	if len(a.Suggestions) != 1 {
		t.Errorf("earlier Build() saw later suggestion: %v", a.Suggestions)
	}
	if a.Cause.Error() == b.Cause.Error() || len(b.Suggestions) != 2 {
		t.Errorf("reused context: a=%+v b=%+v", a, b)
	}
}

func TestWrapHelpersNil(t *testing.T) {
	t.Parallel()

	if WrapWithOperation(nil, "op") != nil {
		t.Error("WrapWithOperation(nil) should be nil")
	}
	if WrapWithContext(nil, "op", "res") != nil {
		t.Error("WrapWithContext(nil) should be nil")
	}
	if got := WrapWithContext(errors.New("c"), "op", "res"); got.Resource != "res" {
		t.Errorf("WrapWithContext() = %+v", got)
	}
	if got := NewActionableError("op"); got.Operation != "op" || got.Cause != nil {
		t.Errorf("NewActionableError() = %+v", got)
	}
}

func TestIssueOf(t *testing.T) {
	t.Parallel()

	linked := NewErrorContext().WithOperation("inner").WithIssue(ExitBlockedId).BuildError()
	tests := []struct {
		name string
		err  error
		want Id
	}{
		{"nil", nil, 0},
		{"plain error", errors.New("x"), 0},
		{"no issue", NewActionableError("op"), 0},
		{"direct", linked, ExitBlockedId},
		{"nested under unlinked", WrapWithOperation(fmt.Errorf("ctx: %w", linked), "outer"), ExitBlockedId},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := IssueOf(tt.err)
			switch {
			case tt.want == 0 && got != nil:
				t.Errorf("IssueOf() = %d, want nil", got.Id())
			case tt.want != 0 && (got == nil || got.Id() != tt.want):
				t.Errorf("IssueOf() = %v, want issue %d", got, tt.want)
			}
		})
	}
}
