// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"testing"
)

func TestIdentifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"basedir", "basedir"},
		{"project.basedir", "project_basedir"},
		{"session.execution-id", "session_execution_id"},
		{"1st", "_1st"},
		{"a1", "a1"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := identifier(tt.in); got != tt.want {
				t.Errorf("identifier(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDeclaration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		key     string
		value   any
		want    string
		wantErr bool
	}{
		{"int", "a", 1, "a=1", false},
		{"bool", "flag", true, "flag=true", false},
		{"nil", "n", nil, "n=", false},
		{"spaced string", "a b", "x y", "a_b='x y'", false},
		{"slice", "list", []string{"a", "b"}, "list=(a b)", false},
		{"map", "m", map[string]int{"k": 1, "j": 2}, "declare -A m=(['j']=2 ['k']=1)", false},
		{"empty name", "", 1, "", true},
		{"non-string map keys", "m", map[int]string{1: "x"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := declaration(tt.key, tt.value)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidBinding) {
					t.Errorf("declaration(%q) error = %v, want ErrInvalidBinding", tt.key, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("declaration(%q) error: %v", tt.key, err)
			}
			if got != tt.want {
				t.Errorf("declaration(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestScalar(t *testing.T) {
	t.Parallel()

	if got := scalar([]string{"a.jar", "b.jar"}); got != "a.jar b.jar" {
		t.Errorf("scalar(slice) = %q, want %q", got, "a.jar b.jar")
	}
	if got := scalar([]byte("raw")); got != "raw" {
		t.Errorf("scalar([]byte) = %q, want %q", got, "raw")
	}
	var p *int
	if got := scalar(p); got != "" {
		t.Errorf("scalar(nil pointer) = %q, want empty", got)
	}
}
