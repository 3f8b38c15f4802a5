// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/invowk/scriptexec/internal/config"
)

// newConfigCommand creates the `scriptexec config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage scriptexec configuration",
		Long: `Manage scriptexec configuration.

The first file found is used:
  1. the file given with --config
  2. ./scriptexec.cue
  3. config.cue in the user config directory
     (Linux ~/.config/scriptexec, macOS ~/Library/Application Support/scriptexec,
     Windows %AppData%\scriptexec)

Every key can also be set through SCRIPTEXEC_<SECTION>_<KEY>, for example
SCRIPTEXEC_EXECUTE_CONTINUE_EXECUTING=true.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.fail(err, nil)
			}
			path, _ := config.Locate(config.LoadOptions{ConfigFilePath: app.configPath})
			showConfig(cmd.OutOrStdout(), cfg, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.fail(err, nil)
			}
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return app.fail(fmt.Errorf("failed to create config: %w", err), nil)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(cmd.OutOrStdout(), app.configPath)
		},
	})

	return cfgCmd
}

func showConfig(w io.Writer, cfg *config.Config, path string) {
	key := KeyStyle.Render
	val := SuccessStyle.Render
	none := SubtitleStyle.Render

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if path != "" {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), none("(using defaults)"))
	}

	section := func(name string) { fmt.Fprintf(w, "\n%s:\n", key(name)) }
	field := func(name string, v any) { fmt.Fprintf(w, "  %s: %s\n", name, val(fmt.Sprint(v))) }
	list := func(name string, items []string) {
		if len(items) == 0 {
			fmt.Fprintf(w, "  %s: %s\n", name, none("(none)"))
			return
		}
		fmt.Fprintf(w, "  %s:\n", name)
		for _, item := range items {
			fmt.Fprintf(w, "    - %s\n", val(item))
		}
	}

	section("runtime")
	list("classpath", cfg.Runtime.Classpath)
	if cfg.Runtime.MinVersion != "" {
		field("min_version", cfg.Runtime.MinVersion)
	}

	section("execute")
	list("scripts", cfg.Execute.Scripts)
	field("continue_executing", cfg.Execute.ContinueExecuting)
	field("bind_properties_to_separate_variables", cfg.Execute.BindPropertiesToSeparateVariables)
	field("allow_system_exits", cfg.Execute.AllowSystemExits)
	if cfg.Execute.SourceEncoding != "" {
		field("source_encoding", cfg.Execute.SourceEncoding)
	}
	if cfg.Execute.FetchTimeout > 0 {
		field("fetch_timeout", cfg.Execute.FetchTimeout)
	}
	list("property_files", cfg.Execute.PropertyFiles)

	section("properties")
	if len(cfg.Properties) == 0 {
		fmt.Fprintf(w, "  %s\n", none("(none)"))
	}
	for _, k := range slices.Sorted(maps.Keys(cfg.Properties)) {
		field(k, cfg.Properties[k])
	}

	section("object_store")
	if cfg.ObjectStore.Configured() {
		field("endpoint", cfg.ObjectStore.Endpoint)
		field("access_key", mask(cfg.ObjectStore.AccessKey))
		field("use_ssl", cfg.ObjectStore.UseSSL)
	} else {
		fmt.Fprintf(w, "  %s\n", none("(not configured)"))
	}

	section("stubs")
	field("skip", cfg.Stubs.Skip)
	list("test_sources", cfg.Stubs.TestSources)
	list("includes", cfg.Stubs.Includes)
	field("output_dir", cfg.Stubs.OutputDir)

	section("ui")
	field("color_scheme", cfg.UI.ColorScheme)
	field("verbose", cfg.UI.Verbose)
}

// mask keeps the first four characters of a credential.
func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}

func showConfigPath(w io.Writer, explicit string) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(w, "Project file: %s\n", config.ProjectConfigFile)

	active, err := config.Locate(config.LoadOptions{ConfigFilePath: explicit})
	switch {
	case err != nil:
		fmt.Fprintf(w, "Active file: %s\n", WarningStyle.Render(err.Error()))
	case active == "":
		fmt.Fprintf(w, "Active file: %s\n", SubtitleStyle.Render("(none, using defaults)"))
	default:
		fmt.Fprintf(w, "Active file: %s\n", active)
	}
	return nil
}
