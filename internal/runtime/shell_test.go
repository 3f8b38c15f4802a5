// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/invowk/scriptexec/internal/exittrap"
)

func newTestShell(t *testing.T) (*Shell, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	sh, err := NewShellWithIO(nil, &out, &out)
	if err != nil {
		t.Fatalf("NewShellWithIO() error: %v", err)
	}
	return sh, &out
}

func TestShell_Evaluate(t *testing.T) {
	t.Parallel()

	sh, out := newTestShell(t)
	if err := sh.Evaluate("echo hi"); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if out.String() != "hi\n" {
		t.Errorf("output = %q, want %q", out.String(), "hi\n")
	}
}

func TestShell_StatePersistsAcrossEvaluations(t *testing.T) {
	t.Parallel()

	sh, out := newTestShell(t)
	if err := sh.Evaluate("greeting=hello"); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if err := sh.Evaluate(`echo "$greeting"`); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if out.String() != "hello\n" {
		t.Errorf("output = %q, want %q", out.String(), "hello\n")
	}
}

func TestShell_EvaluateFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		script    string
		wantPhase string
		wantCode  int
	}{
		{"syntax error", "bogus(", "parse", 0},
		{"non-zero status", "false", "execution", 1},
		{"explicit status", "(exit 4)", "execution", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sh, _ := newTestShell(t)
			err := sh.Evaluate(tt.script)
			if !errors.Is(err, ErrScriptFailed) {
				t.Fatalf("Evaluate(%q) error = %v, want ErrScriptFailed", tt.script, err)
			}
			var se *ScriptError
			if !errors.As(err, &se) {
				t.Fatalf("error should be *ScriptError, got %T", err)
			}
			if se.Phase != tt.wantPhase {
				t.Errorf("Phase = %q, want %q", se.Phase, tt.wantPhase)
			}
			if tt.wantPhase == "execution" && int(se.ExitCode) != tt.wantCode {
				t.Errorf("ExitCode = %d, want %d", se.ExitCode, tt.wantCode)
			}
		})
	}
}

func TestShell_FlattenedBindings(t *testing.T) {
	t.Parallel()

	sh, _ := newTestShell(t)
	for k, v := range map[string]any{"a": 1, "b": 2} {
		if err := sh.SetProperty(k, v); err != nil {
			t.Fatalf("SetProperty(%q) error: %v", k, err)
		}
	}

	if err := sh.Evaluate(`[ "$a" = 1 ] && [ "$b" = 2 ]`); err != nil {
		t.Errorf("bound variables not visible to script: %v", err)
	}
	if v, ok := sh.Property("a"); !ok || v != "1" {
		t.Errorf("Property(a) = %q, %v; want %q, true", v, ok, "1")
	}
	if _, ok := sh.Property("properties"); ok {
		t.Error("flattened bindings should not define properties")
	}
}

func TestShell_NamespacedBindings(t *testing.T) {
	t.Parallel()

	sh, _ := newTestShell(t)
	if err := sh.SetProperty("properties", map[string]any{"a": 1, "b": 2}); err != nil {
		t.Fatalf("SetProperty(properties) error: %v", err)
	}

	script := `[ "${properties[a]}" = 1 ] && [ "${properties[b]}" = 2 ] && [ "${#properties[@]}" = 2 ]`
	if err := sh.Evaluate(script); err != nil {
		t.Errorf("properties map not visible to script: %v", err)
	}
	if _, ok := sh.Property("a"); ok {
		t.Error("namespaced bindings should not define a top-level a")
	}
}

func TestShell_BindsDottedNamesAndSlices(t *testing.T) {
	t.Parallel()

	sh, _ := newTestShell(t)
	if err := sh.SetProperty("project.basedir", "/work/my project"); err != nil {
		t.Fatalf("SetProperty() error: %v", err)
	}
	if err := sh.SetProperty("project.classpath", []string{"sh", "extra"}); err != nil {
		t.Fatalf("SetProperty() error: %v", err)
	}

	if v, ok := sh.Property("project.basedir"); !ok || v != "/work/my project" {
		t.Errorf("Property(project.basedir) = %q, %v", v, ok)
	}
	if err := sh.Evaluate(`[ "${project_classpath[1]}" = extra ] && [ "${#project_classpath[@]}" = 2 ]`); err != nil {
		t.Errorf("slice binding not visible as indexed array: %v", err)
	}
}

func TestShell_SetPropertyRejectsEmptyName(t *testing.T) {
	t.Parallel()

	sh, _ := newTestShell(t)
	if err := sh.SetProperty("", "x"); !errors.Is(err, ErrInvalidBinding) {
		t.Errorf("SetProperty(\"\") error = %v, want ErrInvalidBinding", err)
	}
}

func TestShell_SetPropertyRejectsIdentifierCollision(t *testing.T) {
	t.Parallel()

	sh, _ := newTestShell(t)
	if err := sh.SetProperty("a.b", "dotted"); err != nil {
		t.Fatalf("SetProperty(a.b) error: %v", err)
	}
	if err := sh.SetProperty("a.b", "again"); err != nil {
		t.Errorf("rebinding the same name should succeed: %v", err)
	}

	err := sh.SetProperty("a_b", "underscored")
	var bindErr *InvalidBindingError
	if !errors.As(err, &bindErr) {
		t.Fatalf("SetProperty(a_b) error = %v, want *InvalidBindingError", err)
	}
	if bindErr.Name != "a_b" || !strings.Contains(bindErr.Reason, `"a.b"`) {
		t.Errorf("InvalidBindingError = %+v, want it to name both keys", bindErr)
	}
	if v, _ := sh.Property("a.b"); v != "again" {
		t.Errorf("Property(a.b) = %q, the rejected binding must not overwrite it", v)
	}
}

// Not parallel: installs the process-wide exit trap.
func TestShell_ExitBlockedByTrap(t *testing.T) {
	sh, out := newTestShell(t)
	if err := sh.SetProperty("keep", "yes"); err != nil {
		t.Fatalf("SetProperty() error: %v", err)
	}

	release, err := exittrap.Guard(false)
	if err != nil {
		t.Fatalf("Guard() error: %v", err)
	}
	err = sh.Evaluate("scratch=1; exit 3; echo unreachable")
	release()

	if !errors.Is(err, exittrap.ErrExitBlocked) {
		t.Fatalf("Evaluate() error = %v, want ErrExitBlocked", err)
	}
	if bytes.Contains(out.Bytes(), []byte("unreachable")) {
		t.Error("script continued after exit")
	}

	// The shell is reset to its bound state and stays usable.
	if err := sh.Evaluate(`[ "$keep" = yes ] && [ -z "${scratch+x}" ]`); err != nil {
		t.Errorf("shell state after blocked exit: %v", err)
	}
}
