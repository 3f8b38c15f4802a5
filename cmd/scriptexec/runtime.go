// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/invowk/scriptexec/internal/classpath"
	"github.com/invowk/scriptexec/internal/config"
	"github.com/invowk/scriptexec/internal/issue"
	"github.com/invowk/scriptexec/internal/runtime"
)

//nolint:gochecknoglobals // Actions listed by `runtime capabilities`.
var knownActions = []runtime.Action{runtime.ActionExecute, runtime.ActionGenerateStubs}

// locateRuntime assembles the configured classpath and logs its diagnostics.
func locateRuntime(cfg *config.Config, logger *log.Logger) (*runtime.Locator, error) {
	result, err := runtime.BuildClasspath(runtime.BuildClasspathOptions{Config: cfg})
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("assemble runtime classpath").
			WithResource(strings.Join(cfg.Runtime.Classpath, ", ")).
			WithSuggestion("Known elements: " + strings.Join(classpath.Providers(), ", ")).
			WithIssue(issue.RuntimeNotFoundId).
			Wrap(err).
			BuildError()
	}
	for _, d := range result.Diagnostics {
		logger.Debug(d.Message, "code", d.Code)
	}
	return result.Locator, nil
}

func newRuntimeCommand(app *App) *cobra.Command {
	rtCmd := &cobra.Command{
		Use:   "runtime",
		Short: "Inspect the script runtime on the classpath",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rtCmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show the classpath, its types and the runtime version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, locator, err := app.runtimeFor(cmd)
			if err != nil {
				return err
			}
			if err := showRuntimeInfo(cmd.OutOrStdout(), locator); err != nil {
				return app.fail(err, cfg)
			}
			return nil
		},
	})

	rtCmd.AddCommand(&cobra.Command{
		Use:   "capabilities",
		Short: "Show which actions the runtime supports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, locator, err := app.runtimeFor(cmd)
			if err != nil {
				return err
			}
			if err := showCapabilities(cmd.OutOrStdout(), locator); err != nil {
				return app.fail(err, cfg)
			}
			return nil
		},
	})

	return rtCmd
}

func (a *App) runtimeFor(cmd *cobra.Command) (*config.Config, *runtime.Locator, error) {
	cfg, err := a.loadConfig(cmd.Context())
	if err != nil {
		return nil, nil, a.fail(err, nil)
	}
	locator, err := locateRuntime(cfg, a.logger())
	if err != nil {
		return nil, nil, a.fail(err, cfg)
	}
	return cfg, locator, nil
}

func showRuntimeInfo(w io.Writer, locator *runtime.Locator) error {
	cp := locator.Classpath()

	fmt.Fprintln(w, TitleStyle.Render("Script runtime"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("classpath"), strings.Join(cp.Elements(), " → "))

	version, err := locator.DetectedVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("version"), SuccessStyle.Render(version))

	fmt.Fprintf(w, "%s:\n", KeyStyle.Render("types"))
	for _, name := range cp.Names() {
		class, err := cp.ResolveType(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  - %s %s\n", name, SubtitleStyle.Render("("+class.Element()+")"))
	}
	return nil
}

func showCapabilities(w io.Writer, locator *runtime.Locator) error {
	rows := make([]string, 0, len(knownActions)+1)
	rows = append(rows, capabilityRow(TitleStyle, "ACTION", "DETECTED", "MINIMUM", "STATUS"))
	for _, action := range knownActions {
		c, err := locator.Supports(action)
		if err != nil {
			return err
		}
		status := SuccessStyle.Render("✓ supported")
		if !c.Supported {
			status = ErrorStyle.Render("✗ unsupported")
		}
		rows = append(rows, capabilityRow(lipgloss.NewStyle(), string(c.Action), c.Detected, c.Minimum, status))
	}
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, rows...))
	return nil
}

func capabilityRow(style lipgloss.Style, cells ...string) string {
	widths := []int{16, 12, 10, 0}
	rendered := make([]string, len(cells))
	for i, cell := range cells {
		rendered[i] = capabilityCellStyle.Width(widths[i]).Render(style.Render(cell))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}
