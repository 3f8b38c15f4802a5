// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/invowk/scriptexec/pkg/types"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultStubPattern selects the test scripts stubs are generated from.
	DefaultStubPattern = "**/*.sh"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidUIConfig is the sentinel error wrapped by InvalidUIConfigError.
	ErrInvalidUIConfig = errors.New("invalid UI config")
	// ErrInvalidRuntimeConfig is the sentinel error wrapped by InvalidRuntimeConfigError.
	ErrInvalidRuntimeConfig = errors.New("invalid runtime config")
	// ErrInvalidExecuteConfig is the sentinel error wrapped by InvalidExecuteConfigError.
	ErrInvalidExecuteConfig = errors.New("invalid execute config")
	// ErrInvalidStubsConfig is the sentinel error wrapped by InvalidStubsConfigError.
	ErrInvalidStubsConfig = errors.New("invalid stubs config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// FieldError reports a single invalid configuration field.
	FieldError struct {
		Field  string
		Reason string
	}

	// InvalidRuntimeConfigError is returned when a RuntimeConfig has invalid fields.
	InvalidRuntimeConfigError struct {
		FieldErrors []error
	}

	// InvalidExecuteConfigError is returned when an ExecuteConfig has invalid fields.
	InvalidExecuteConfigError struct {
		FieldErrors []error
	}

	// InvalidStubsConfigError is returned when a StubsConfig has invalid fields.
	InvalidStubsConfigError struct {
		FieldErrors []error
	}

	// InvalidUIConfigError is returned when a UIConfig has invalid fields.
	// It wraps ErrInvalidUIConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidUIConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the complete scriptexec configuration.
	Config struct {
		// Runtime selects the classpath scripts run against.
		Runtime RuntimeConfig `json:"runtime" mapstructure:"runtime"`
		// Execute controls script execution.
		Execute ExecuteConfig `json:"execute" mapstructure:"execute"`
		// Properties are bound into the script environment. They are decoded
		// outside viper so keys keep their case.
		Properties map[string]any `json:"properties" mapstructure:"-"`
		// ObjectStore enables s3:// script references when Endpoint is set.
		ObjectStore ObjectStoreConfig `json:"object_store" mapstructure:"object_store"`
		// Stubs controls test stub generation.
		Stubs StubsConfig `json:"stubs" mapstructure:"stubs"`
		// UI contains user interface settings.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// RuntimeConfig configures runtime discovery.
	RuntimeConfig struct {
		// Classpath lists provider elements in lookup order.
		Classpath []string `json:"classpath" mapstructure:"classpath"`
		// MinVersion raises the minimum runtime version every action requires.
		MinVersion string `json:"min_version" mapstructure:"min_version"`
	}

	// ExecuteConfig configures the execute command.
	ExecuteConfig struct {
		// Scripts are inline bodies or fetchable references, run in order.
		Scripts []string `json:"scripts" mapstructure:"scripts"`
		// ContinueExecuting keeps going after a script fails.
		ContinueExecuting bool `json:"continue_executing" mapstructure:"continue_executing"`
		// SourceEncoding is the text encoding of fetched scripts. Empty means UTF-8.
		SourceEncoding string `json:"source_encoding" mapstructure:"source_encoding"`
		// BindPropertiesToSeparateVariables binds every property as its own
		// variable instead of one "properties" associative array.
		BindPropertiesToSeparateVariables bool `json:"bind_properties_to_separate_variables" mapstructure:"bind_properties_to_separate_variables"`
		// AllowSystemExits lets scripts terminate the process.
		AllowSystemExits bool `json:"allow_system_exits" mapstructure:"allow_system_exits"`
		// FetchTimeout bounds each remote fetch. Zero means no timeout.
		FetchTimeout time.Duration `json:"fetch_timeout" mapstructure:"fetch_timeout"`
		// PropertyFiles are dotenv files merged into the bound properties.
		PropertyFiles []string `json:"property_files" mapstructure:"property_files"`
	}

	// ObjectStoreConfig configures the S3-compatible store behind s3:// references.
	ObjectStoreConfig struct {
		Endpoint  string `json:"endpoint" mapstructure:"endpoint"`
		AccessKey string `json:"access_key" mapstructure:"access_key"`
		SecretKey string `json:"secret_key" mapstructure:"secret_key"`
		Region    string `json:"region" mapstructure:"region"`
		UseSSL    bool   `json:"use_ssl" mapstructure:"use_ssl"`
	}

	// StubsConfig configures test stub generation.
	StubsConfig struct {
		// Skip disables stub generation.
		Skip bool `json:"skip" mapstructure:"skip"`
		// TestSources are the directories scanned for test scripts.
		TestSources []string `json:"test_sources" mapstructure:"test_sources"`
		// Includes are doublestar patterns, relative to each source directory.
		Includes []string `json:"includes" mapstructure:"includes"`
		// OutputDir receives the generated stubs.
		OutputDir types.FilesystemPath `json:"output_dir" mapstructure:"output_dir"`
	}

	// UIConfig contains UI-related configuration.
	UIConfig struct {
		// ColorScheme sets the color scheme ("auto", "dark", "light")
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables debug logging by default
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// IsValid returns whether the RuntimeConfig has valid fields. Version
// syntax is checked by the runtime locator, which owns semver handling.
func (c RuntimeConfig) IsValid() (bool, []error) {
	var errs []error
	for i, element := range c.Classpath {
		if strings.TrimSpace(element) == "" {
			errs = append(errs, &FieldError{Field: fmt.Sprintf("runtime.classpath[%d]", i), Reason: "must not be empty"})
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidRuntimeConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidRuntimeConfigError.
func (e *InvalidRuntimeConfigError) Error() string {
	return fmt.Sprintf("invalid runtime config: %s", joinFieldErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidRuntimeConfig for errors.Is() compatibility.
func (e *InvalidRuntimeConfigError) Unwrap() error { return ErrInvalidRuntimeConfig }

// IsValid returns whether the ExecuteConfig has valid fields.
func (c ExecuteConfig) IsValid() (bool, []error) {
	var errs []error
	if c.FetchTimeout < 0 {
		errs = append(errs, &FieldError{Field: "execute.fetch_timeout", Reason: "must not be negative"})
	}
	for i, path := range c.PropertyFiles {
		if err := types.FilesystemPath(path).Validate(); err != nil {
			errs = append(errs, &FieldError{Field: fmt.Sprintf("execute.property_files[%d]", i), Reason: err.Error()})
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidExecuteConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidExecuteConfigError.
func (e *InvalidExecuteConfigError) Error() string {
	return fmt.Sprintf("invalid execute config: %s", joinFieldErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidExecuteConfig for errors.Is() compatibility.
func (e *InvalidExecuteConfigError) Unwrap() error { return ErrInvalidExecuteConfig }

// Configured reports whether an object store endpoint is set.
func (c ObjectStoreConfig) Configured() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// IsValid returns whether the StubsConfig has valid fields.
func (c StubsConfig) IsValid() (bool, []error) {
	var errs []error
	if err := c.OutputDir.Validate(); err != nil {
		errs = append(errs, &FieldError{Field: "stubs.output_dir", Reason: err.Error()})
	}
	for i, pattern := range c.Includes {
		if strings.TrimSpace(pattern) == "" {
			errs = append(errs, &FieldError{Field: fmt.Sprintf("stubs.includes[%d]", i), Reason: "must not be empty"})
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidStubsConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidStubsConfigError.
func (e *InvalidStubsConfigError) Error() string {
	return fmt.Sprintf("invalid stubs config: %s", joinFieldErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidStubsConfig for errors.Is() compatibility.
func (e *InvalidStubsConfigError) Unwrap() error { return ErrInvalidStubsConfig }

// IsValid returns whether the UIConfig has valid fields.
// It delegates to ColorScheme.IsValid(); Verbose is a bool and needs no validation.
func (c UIConfig) IsValid() (bool, []error) {
	if valid, errs := c.ColorScheme.IsValid(); !valid {
		return false, []error{&InvalidUIConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidUIConfigError.
func (e *InvalidUIConfigError) Error() string {
	return fmt.Sprintf("invalid UI config: %s", joinFieldErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidUIConfig for errors.Is() compatibility.
func (e *InvalidUIConfigError) Unwrap() error { return ErrInvalidUIConfig }

// IsValid returns whether the Config has valid fields, delegating to each section.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Runtime.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Execute.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Stubs.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s", joinFieldErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			Classpath: []string{"sh"},
		},
		Execute: ExecuteConfig{
			Scripts:       []string{},
			PropertyFiles: []string{},
		},
		Properties: map[string]any{},
		Stubs: StubsConfig{
			TestSources: []string{"test"},
			Includes:    []string{DefaultStubPattern},
			OutputDir:   "build/test-stubs",
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}

func joinFieldErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
