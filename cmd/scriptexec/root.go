// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

func newRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "scriptexec",
		Short: "Run shell scripts against an embedded interpreter",
		Long: TitleStyle.Render("scriptexec") + SubtitleStyle.Render(" - run shell scripts against an embedded interpreter") + `

Scripts are listed in scriptexec.cue (or given as arguments) and evaluated in
order in one interpreter session. Entries that are http(s)://, file:// or
s3:// URLs are fetched first. Configuration properties are visible to every
script as ${properties[key]}.

` + SubtitleStyle.Render("Examples:") + `
  scriptexec execute                         Run the configured scripts
  scriptexec execute 'echo "$project_basedir"' --bind-separately
  scriptexec execute -D env=prod --continue  Override a property, keep going on failure
  scriptexec generate-test-stubs --watch     Regenerate stubs as tests change
  scriptexec runtime capabilities            Show what the runtime supports`,
		SilenceUsage: true,
	}
	root.SetIn(app.stdin)
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable debug logging and full error chains")
	root.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default ./scriptexec.cue, then the user config directory)")

	root.AddCommand(
		newExecuteCommand(app),
		newStubsCommand(app),
		newRuntimeCommand(app),
		newConfigCommand(app),
	)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the code of the failure, if any.
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// handleError leaves ExitErrors alone, since commands render those
// themselves, and defers to fang for flag and usage errors.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}
