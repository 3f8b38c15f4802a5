// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"testing"

	"github.com/invowk/scriptexec/internal/classpath"
	"github.com/invowk/scriptexec/internal/config"
)

func TestInitDiagnosticCode_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		code    InitDiagnosticCode
		wantErr bool
	}{
		{"default_classpath", CodeDefaultClasspath, false},
		{"missing_runtime_type", CodeMissingRuntimeType, false},
		{"empty", InitDiagnosticCode(""), true},
		{"unknown", InitDiagnosticCode("unknown_code"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.code.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("InitDiagnosticCode(%q).Validate() returned nil, want error", tt.code)
				}
				if !errors.Is(err, ErrInvalidInitDiagnosticCode) {
					t.Errorf("error should wrap ErrInvalidInitDiagnosticCode, got: %v", err)
				}
			} else if err != nil {
				t.Errorf("InitDiagnosticCode(%q).Validate() returned unexpected error: %v", tt.code, err)
			}
		})
	}
}

func TestBuildClasspath_DefaultsToSh(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Runtime.Classpath = nil

	result, err := BuildClasspath(BuildClasspathOptions{Config: cfg})
	if err != nil {
		t.Fatalf("BuildClasspath() error: %v", err)
	}
	if got := result.Classpath.Elements(); len(got) != 1 || got[0] != ElementSh {
		t.Errorf("Elements() = %v, want [%s]", got, ElementSh)
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Code != CodeDefaultClasspath {
		t.Errorf("Diagnostics = %+v, want one %s", result.Diagnostics, CodeDefaultClasspath)
	}
	if result.Locator == nil {
		t.Fatal("Locator should be non-nil")
	}
}

func TestBuildClasspath_NilConfigUsesDefaults(t *testing.T) {
	t.Parallel()

	result, err := BuildClasspath(BuildClasspathOptions{})
	if err != nil {
		t.Fatalf("BuildClasspath() error: %v", err)
	}
	for _, d := range result.Diagnostics {
		if d.Code == CodeMissingRuntimeType {
			t.Errorf("default classpath should define every runtime type, got diagnostic: %s", d.Message)
		}
	}
}

func TestBuildClasspath_UnknownElement(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Runtime.Classpath = []string{"no-such-runtime"}

	_, err := BuildClasspath(BuildClasspathOptions{Config: cfg})
	if !errors.Is(err, classpath.ErrElementNotFound) {
		t.Errorf("BuildClasspath() error = %v, want ErrElementNotFound", err)
	}
}

func TestBuildClasspath_InvalidMinVersion(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Runtime.MinVersion = "not-a-version"

	_, err := BuildClasspath(BuildClasspathOptions{Config: cfg})
	if !errors.Is(err, ErrInvalidVersion) {
		t.Errorf("BuildClasspath() error = %v, want ErrInvalidVersion", err)
	}
}

func TestBuildClasspath_ReportsMissingTypes(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Runtime.Classpath = []string{testElementLegacy}

	result, err := BuildClasspath(BuildClasspathOptions{Config: cfg})
	if err != nil {
		t.Fatalf("BuildClasspath() error: %v", err)
	}

	missing := 0
	for _, d := range result.Diagnostics {
		if d.Code == CodeMissingRuntimeType {
			missing++
		}
	}
	// The legacy test element defines only sh.System.
	if missing != 2 {
		t.Errorf("missing-type diagnostics = %d, want 2: %+v", missing, result.Diagnostics)
	}
}
