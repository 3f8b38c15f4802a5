// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/invowk/scriptexec/internal/app/execute"
	"github.com/invowk/scriptexec/internal/config"
	"github.com/invowk/scriptexec/internal/exittrap"
	"github.com/invowk/scriptexec/internal/issue"
	"github.com/invowk/scriptexec/internal/runtime"
	"github.com/invowk/scriptexec/internal/scriptsource"
)

// classifyError picks the catalog entry explaining err. An issue named by an
// ActionableError wins over one derived from sentinels.
func classifyError(err error) issue.Id {
	if iss := issue.IssueOf(err); iss != nil {
		return iss.Id()
	}
	switch {
	case errors.Is(err, runtime.ErrRuntimeNotFound):
		return issue.RuntimeNotFoundId
	case errors.Is(err, exittrap.ErrExitBlocked):
		return issue.ExitBlockedId
	case errors.Is(err, scriptsource.ErrFetch):
		return issue.ScriptFetchFailedId
	case errors.Is(err, execute.ErrBuildFailure):
		return issue.ScriptExecutionFailedId
	}
	return 0
}

// formatErrorForDisplay uses ActionableError.Format when err carries one.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// renderError writes the styled error line followed, when one applies, by
// the catalog entry rendered in the configured color scheme.
func renderError(w io.Writer, err error, verbose bool, scheme config.ColorScheme) {
	fmt.Fprintf(w, "\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))

	id := classifyError(err)
	if id == 0 {
		return
	}
	rendered, renderErr := issue.Get(id).Render(glamourStyle(scheme))
	if renderErr != nil {
		fmt.Fprintln(w, WarningStyle.Render("failed to render help: "+renderErr.Error()))
		return
	}
	fmt.Fprint(w, rendered)
}

func glamourStyle(scheme config.ColorScheme) string {
	switch scheme {
	case config.ColorSchemeDark, config.ColorSchemeLight:
		return string(scheme)
	default:
		return "auto"
	}
}
