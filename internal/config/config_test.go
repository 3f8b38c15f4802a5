// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/invowk/scriptexec/internal/issue"
	"github.com/invowk/scriptexec/internal/testutil"
)

// isolate runs the test in an empty working directory with an empty config
// directory, returning the config directory.
func isolate(t *testing.T) string {
	t.Helper()

	work := t.TempDir()
	cfgDir := t.TempDir()
	t.Cleanup(testutil.MustChdir(t, work))
	SetConfigDirOverride(cfgDir)
	t.Cleanup(Reset)
	return cfgDir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	testutil.MustMkdirAll(t, filepath.Dir(path), 0o755)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestLoad_DefaultsWhenNoConfigFile(t *testing.T) {
	isolate(t)

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want empty", path)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_LookupOrder(t *testing.T) {
	cfgDir := isolate(t)

	userPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	writeFile(t, userPath, `ui: verbose: true`)

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if path != userPath || !cfg.UI.Verbose {
		t.Errorf("user config not loaded: path=%q verbose=%v", path, cfg.UI.Verbose)
	}

	writeFile(t, ProjectConfigFile, `execute: continue_executing: true`)
	cfg, path, err = loadWithOptions(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if path != ProjectConfigFile {
		t.Errorf("path = %q, want project config %q", path, ProjectConfigFile)
	}
	if !cfg.Execute.ContinueExecuting || cfg.UI.Verbose {
		t.Errorf("project config should win exclusively, got %+v", cfg)
	}

	explicit := filepath.Join(t.TempDir(), "custom.cue")
	writeFile(t, explicit, `execute: allow_system_exits: true`)
	cfg, path, err = loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: explicit})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if path != explicit || !cfg.Execute.AllowSystemExits || cfg.Execute.ContinueExecuting {
		t.Errorf("explicit config should win exclusively: path=%q cfg=%+v", path, cfg.Execute)
	}
}

func TestLoad_FullFile(t *testing.T) {
	isolate(t)

	writeFile(t, ProjectConfigFile, `
runtime: {
	classpath: ["sh", "extra"]
	min_version: "3.5.0"
}
execute: {
	scripts: ["echo one", "file:///tmp/two.sh"]
	source_encoding: "iso-8859-1"
	bind_properties_to_separate_variables: true
	fetch_timeout: "45s"
}
properties: {
	artifactId: "demo"
	"build.number": 7
}
object_store: {
	endpoint: "minio.local:9000"
	use_ssl: true
}
stubs: output_dir: "out/stubs"
`)

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}

	if diff := cmp.Diff([]string{"sh", "extra"}, cfg.Runtime.Classpath); diff != "" {
		t.Errorf("classpath mismatch (-want +got):\n%s", diff)
	}
	if cfg.Runtime.MinVersion != "3.5.0" {
		t.Errorf("min version = %q", cfg.Runtime.MinVersion)
	}
	if diff := cmp.Diff([]string{"echo one", "file:///tmp/two.sh"}, cfg.Execute.Scripts); diff != "" {
		t.Errorf("scripts mismatch (-want +got):\n%s", diff)
	}
	if cfg.Execute.FetchTimeout != 45*time.Second {
		t.Errorf("fetch timeout = %v, want 45s", cfg.Execute.FetchTimeout)
	}
	if cfg.Execute.SourceEncoding != "iso-8859-1" || !cfg.Execute.BindPropertiesToSeparateVariables {
		t.Errorf("execute section not applied: %+v", cfg.Execute)
	}
	if got := cfg.Properties["artifactId"]; got != "demo" {
		t.Errorf("properties keep key case: artifactId = %v", got)
	}
	if _, ok := cfg.Properties["build.number"]; !ok {
		t.Errorf("dotted property missing: %v", cfg.Properties)
	}
	if !cfg.ObjectStore.Configured() || !cfg.ObjectStore.UseSSL {
		t.Errorf("object store not applied: %+v", cfg.ObjectStore)
	}
	if cfg.Stubs.OutputDir != "out/stubs" {
		t.Errorf("output dir = %q", cfg.Stubs.OutputDir)
	}
	if len(cfg.Stubs.Includes) != 1 || cfg.Stubs.Includes[0] != DefaultStubPattern {
		t.Errorf("unset includes should keep default, got %v", cfg.Stubs.Includes)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	isolate(t)

	writeFile(t, ProjectConfigFile, `execute: continue_executing: false`)
	t.Cleanup(testutil.MustSetenv(t, "SCRIPTEXEC_EXECUTE_CONTINUE_EXECUTING", "true"))
	t.Cleanup(testutil.MustSetenv(t, "SCRIPTEXEC_EXECUTE_FETCH_TIMEOUT", "2s"))
	t.Cleanup(testutil.MustSetenv(t, "SCRIPTEXEC_OBJECT_STORE_SECRET_KEY", "from-env"))

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if !cfg.Execute.ContinueExecuting {
		t.Error("environment should override file value")
	}
	if cfg.Execute.FetchTimeout != 2*time.Second {
		t.Errorf("fetch timeout = %v, want 2s", cfg.Execute.FetchTimeout)
	}
	if cfg.ObjectStore.SecretKey != "from-env" {
		t.Errorf("secret key = %q, want from-env", cfg.ObjectStore.SecretKey)
	}
}

func TestLoad_ExplicitPathNotFound(t *testing.T) {
	isolate(t)

	missing := filepath.Join(t.TempDir(), "missing.cue")
	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: missing})
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("error should wrap ErrConfigNotFound, got %v", err)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *issue.ActionableError, got %T", err)
	}
	if ae.Operation != "load configuration" || !ae.HasSuggestions() {
		t.Errorf("unexpected actionable error: %+v", ae)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantText string
	}{
		{"syntax error", `execute: {`, ProjectConfigFile},
		{"schema violation", `ui: color_scheme: "neon"`, "ui.color_scheme"},
		{"type mismatch", `execute: scripts: "echo"`, "execute.scripts"},
		{"indexed path", `runtime: classpath: ["sh", ""]`, "runtime.classpath[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			writeFile(t, ProjectConfigFile, tt.content)

			_, _, err := loadWithOptions(context.Background(), LoadOptions{})
			if err == nil {
				t.Fatal("expected error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("expected *issue.ActionableError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.wantText) {
				t.Errorf("error %q should mention %q", err, tt.wantText)
			}
		})
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := loadWithOptions(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestProvider_Load(t *testing.T) {
	isolate(t)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("color scheme = %q, want auto", cfg.UI.ColorScheme)
	}
}

func TestCreateDefaultConfig_RoundTrip(t *testing.T) {
	cfgDir := isolate(t)

	path, err := CreateDefaultConfig()
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	if want := filepath.Join(cfgDir, "config.cue"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("generated default config does not load: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	// A second call leaves the existing file alone.
	writeFile(t, path, `ui: verbose: true`)
	if _, err := CreateDefaultConfig(); err != nil {
		t.Fatalf("second CreateDefaultConfig() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `ui: verbose: true` {
		t.Errorf("existing config was overwritten: %q", data)
	}
}

func TestSave(t *testing.T) {
	isolate(t)

	cfg := DefaultConfig()
	cfg.Execute.Scripts = []string{"echo saved"}
	cfg.Properties = map[string]any{"Mixed_Case": "kept"}
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, _, err := loadWithOptions(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if diff := cmp.Diff(cfg, loaded, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("saved config mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigDir_Override(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if got != dir {
		t.Errorf("ConfigDir() = %q, want %q", got, dir)
	}
}

func TestFieldPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{"ui"}, "ui"},
		{[]string{"execute", "scripts", "2"}, "execute.scripts[2]"},
		{[]string{"0"}, "0"},
	}
	for _, tt := range tests {
		if got := fieldPath(tt.in); got != tt.want {
			t.Errorf("fieldPath(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
