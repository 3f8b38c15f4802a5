// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/invowk/scriptexec/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "scriptexec"
	// ConfigFileName is the name of the user-level config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// ProjectConfigFile is the config file looked up in the working directory.
	ProjectConfigFile = AppName + "." + ConfigFileExt
	// EnvPrefix prefixes environment variables that override config keys,
	// e.g. SCRIPTEXEC_EXECUTE_CONTINUE_EXECUTING.
	EnvPrefix = "SCRIPTEXEC"

	propertiesKey = "properties"
)

// ErrConfigNotFound is returned when an explicitly requested config file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the scriptexec directory under the platform's user
// configuration directory.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// Locate returns the config file that would be loaded for opts, or "" when
// none exists and defaults apply. Lookup order: the explicit file, then
// ./scriptexec.cue, then config.cue in the config directory.
func Locate(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", fmt.Errorf("%w: %s", ErrConfigNotFound, opts.ConfigFilePath)
		}
		return opts.ConfigFilePath, nil
	}

	if fileExists(ProjectConfigFile) {
		return ProjectConfigFile, nil
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	userPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if fileExists(userPath) {
		return userPath, nil
	}
	return "", nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()

	path, err := Locate(opts)
	if err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(opts.ConfigFilePath).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Use 'scriptexec config show' to see the default configuration").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	var properties map[string]any
	if path != "" {
		properties, err = loadCUEIntoViper(v, path)
		if err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("See 'scriptexec config --help' for configuration options").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Properties = properties
	if cfg.Properties == nil {
		cfg.Properties = map[string]any{}
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Fix the fields listed above or remove them to use defaults").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, path, nil
}

// newViper returns a viper instance carrying every default and bound to
// SCRIPTEXEC_* environment overrides. Keys need a default to be visible to
// AutomaticEnv during Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("runtime.classpath", defaults.Runtime.Classpath)
	v.SetDefault("runtime.min_version", defaults.Runtime.MinVersion)
	v.SetDefault("execute.scripts", defaults.Execute.Scripts)
	v.SetDefault("execute.continue_executing", defaults.Execute.ContinueExecuting)
	v.SetDefault("execute.source_encoding", defaults.Execute.SourceEncoding)
	v.SetDefault("execute.bind_properties_to_separate_variables", defaults.Execute.BindPropertiesToSeparateVariables)
	v.SetDefault("execute.allow_system_exits", defaults.Execute.AllowSystemExits)
	v.SetDefault("execute.fetch_timeout", defaults.Execute.FetchTimeout)
	v.SetDefault("execute.property_files", defaults.Execute.PropertyFiles)
	v.SetDefault("object_store.endpoint", defaults.ObjectStore.Endpoint)
	v.SetDefault("object_store.access_key", defaults.ObjectStore.AccessKey)
	v.SetDefault("object_store.secret_key", defaults.ObjectStore.SecretKey)
	v.SetDefault("object_store.region", defaults.ObjectStore.Region)
	v.SetDefault("object_store.use_ssl", defaults.ObjectStore.UseSSL)
	v.SetDefault("stubs.skip", defaults.Stubs.Skip)
	v.SetDefault("stubs.test_sources", defaults.Stubs.TestSources)
	v.SetDefault("stubs.includes", defaults.Stubs.Includes)
	v.SetDefault("stubs.output_dir", string(defaults.Stubs.OutputDir))
	v.SetDefault("ui.color_scheme", string(defaults.UI.ColorScheme))
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// loadCUEIntoViper validates the file at path against #Config and merges it
// into v. The properties section is returned separately because viper folds
// key case.
func loadCUEIntoViper(v *viper.Viper, path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := checkFileSize(data, path); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return nil, formatCUEError(userValue.Err(), path)
	}

	unified := schemaValue.LookupPath(cue.ParsePath("#Config")).Unify(userValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return nil, formatCUEError(err, path)
	}

	properties, _ := configMap[propertiesKey].(map[string]any)
	delete(configMap, propertiesKey)

	if err := v.MergeConfigMap(configMap); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	return properties, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default config file to the config
// directory unless one already exists. It returns the file's path.
func CreateDefaultConfig() (string, error) {
	cfgPath, err := userConfigPath()
	if err != nil {
		return "", err
	}
	if fileExists(cfgPath) {
		return cfgPath, nil
	}
	return cfgPath, writeConfig(cfgPath, DefaultConfig())
}

// Save writes cfg to the config file in the config directory.
func Save(cfg *Config) error {
	cfgPath, err := userConfigPath()
	if err != nil {
		return err
	}
	return writeConfig(cfgPath, cfg)
}

func userConfigPath() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

func writeConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE renders cfg as a config file that validates against #Config.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// scriptexec configuration\n")
	sb.WriteString("// Environment variables named SCRIPTEXEC_<SECTION>_<KEY> override these values.\n\n")

	sb.WriteString("runtime: {\n")
	fmt.Fprintf(&sb, "\tclasspath: %s\n", cueList(cfg.Runtime.Classpath))
	if cfg.Runtime.MinVersion != "" {
		fmt.Fprintf(&sb, "\tmin_version: %q\n", cfg.Runtime.MinVersion)
	}
	sb.WriteString("}\n")

	sb.WriteString("\nexecute: {\n")
	fmt.Fprintf(&sb, "\tscripts: %s\n", cueList(cfg.Execute.Scripts))
	fmt.Fprintf(&sb, "\tcontinue_executing: %v\n", cfg.Execute.ContinueExecuting)
	if cfg.Execute.SourceEncoding != "" {
		fmt.Fprintf(&sb, "\tsource_encoding: %q\n", cfg.Execute.SourceEncoding)
	}
	fmt.Fprintf(&sb, "\tbind_properties_to_separate_variables: %v\n", cfg.Execute.BindPropertiesToSeparateVariables)
	fmt.Fprintf(&sb, "\tallow_system_exits: %v\n", cfg.Execute.AllowSystemExits)
	fmt.Fprintf(&sb, "\tfetch_timeout: %q\n", cfg.Execute.FetchTimeout.String())
	if len(cfg.Execute.PropertyFiles) > 0 {
		fmt.Fprintf(&sb, "\tproperty_files: %s\n", cueList(cfg.Execute.PropertyFiles))
	}
	sb.WriteString("}\n")

	if len(cfg.Properties) > 0 {
		sb.WriteString("\nproperties: {\n")
		keys := make([]string, 0, len(cfg.Properties))
		for k := range cfg.Properties {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "\t%q: %s\n", k, cueValue(cfg.Properties[k]))
		}
		sb.WriteString("}\n")
	}

	// Credentials are never written; supply them through the environment.
	if cfg.ObjectStore.Configured() {
		sb.WriteString("\nobject_store: {\n")
		fmt.Fprintf(&sb, "\tendpoint: %q\n", cfg.ObjectStore.Endpoint)
		if cfg.ObjectStore.Region != "" {
			fmt.Fprintf(&sb, "\tregion: %q\n", cfg.ObjectStore.Region)
		}
		fmt.Fprintf(&sb, "\tuse_ssl: %v\n", cfg.ObjectStore.UseSSL)
		sb.WriteString("}\n")
	}

	sb.WriteString("\nstubs: {\n")
	fmt.Fprintf(&sb, "\tskip: %v\n", cfg.Stubs.Skip)
	fmt.Fprintf(&sb, "\ttest_sources: %s\n", cueList(cfg.Stubs.TestSources))
	fmt.Fprintf(&sb, "\tincludes: %s\n", cueList(cfg.Stubs.Includes))
	fmt.Fprintf(&sb, "\toutput_dir: %q\n", cfg.Stubs.OutputDir)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

func cueList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// cueValue renders v as a CUE literal. JSON is valid CUE.
func cueValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%q", fmt.Sprint(v))
	}
	return string(data)
}
