// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
)

// Id identifies a catalogued issue.
type Id int

const (
	RuntimeNotFoundId Id = iota + 1
	RuntimeUnsupportedId
	ScriptExecutionFailedId
	ScriptFetchFailedId
	ExitBlockedId
	ConfigLoadFailedId
	StubGenerationFailedId
)

type MarkdownMsg string

type HttpLink string

// Renderer renders Markdown for the terminal.
type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

// Issue is a Markdown help page shown alongside a failure.
type Issue struct {
	id       Id
	mdMsg    MarkdownMsg
	docLinks []HttpLink
	extLinks []HttpLink
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Markdown returns the message followed by a "See also" list of its links.
func (i *Issue) Markdown() string {
	var b strings.Builder
	b.WriteString(string(i.mdMsg))
	if len(i.docLinks) == 0 && len(i.extLinks) == 0 {
		return b.String()
	}
	b.WriteString("\n\n## See also\n")
	for _, link := range slices.Concat(i.docLinks, i.extLinks) {
		b.WriteString("- <" + string(link) + ">\n")
	}
	return b.String()
}

// Render renders the issue with the glamour style at stylePath, which may
// also be a standard style name such as "dark" or "light".
func (i *Issue) Render(stylePath string) (string, error) {
	return render(i.Markdown(), stylePath)
}

var (
	render = glamour.Render

	runtimeNotFoundIssue = &Issue{
		id: RuntimeNotFoundId,
		mdMsg: `
# No script runtime on the classpath!

None of the configured classpath elements defines ` + "`sh.System`" + `, so there is
no interpreter to run scripts with.

## Things you can try
- List the elements this build knows about:
~~~
$ scriptexec runtime info
~~~
- Put the built-in element first in your configuration:
~~~cue
runtime: classpath: ["sh"]
~~~`,
		extLinks: []HttpLink{"https://pkg.go.dev/mvdan.cc/sh/v3/interp"},
	}

	runtimeUnsupportedIssue = &Issue{
		id: RuntimeUnsupportedId,
		mdMsg: `
# Script runtime too old!

The runtime found on the classpath is older than the version this action
requires, so the action was skipped.

## Things you can try
- Compare the detected and required versions:
~~~
$ scriptexec runtime capabilities
~~~
- Lower ` + "`runtime.min_version`" + ` if you raised it above the built-in minimum
- Move a newer runtime element ahead of the old one on the classpath`,
	}

	scriptExecutionFailedIssue = &Issue{
		id: ScriptExecutionFailedId,
		mdMsg: `
# A script failed!

The interpreter reported an error while evaluating one of the configured
scripts. The ordinal in the message above is 1-based.

## Things you can try
- Rerun with verbose output to see the whole error chain:
~~~
$ scriptexec execute --verbose
~~~
- Keep going past failing scripts:
~~~
$ scriptexec execute --continue
~~~`,
		extLinks: []HttpLink{"https://github.com/mvdan/sh#shfmt"},
	}

	scriptFetchFailedIssue = &Issue{
		id: ScriptFetchFailedId,
		mdMsg: `
# Could not fetch a script!

A script entry looked like a URL and its content could not be read.

## Things you can try
- Check the URL is reachable from this machine
- For ` + "`s3://`" + ` references, check the ` + "`object_store`" + ` settings or the
  ` + "`SCRIPTEXEC_OBJECT_STORE_*`" + ` environment variables
- Raise ` + "`execute.fetch_timeout`" + ` for slow servers
- Set ` + "`execute.source_encoding`" + ` when the script is not UTF-8`,
	}

	exitBlockedIssue = &Issue{
		id: ExitBlockedId,
		mdMsg: `
# A script tried to end the process!

Scripts run with process exits blocked, so an ` + "`exit`" + ` statement fails
the script instead of terminating scriptexec.

## Things you can try
- Remove the ` + "`exit`" + ` statement, or use ` + "`return`" + ` inside functions
- Allow exits if the script really must end the process:
~~~cue
execute: allow_system_exits: true
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load the configuration!

The configuration file could not be read or does not match the schema.

## Things you can try
- Show which file is in use:
~~~
$ scriptexec config path
~~~
- Write a fresh default file to compare against:
~~~
$ scriptexec config init
~~~
- Validate the file with the CUE command-line tool`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	stubGenerationFailedIssue = &Issue{
		id: StubGenerationFailedId,
		mdMsg: `
# Failed to generate test stubs!

A test source could not be turned into a stub. Usually the script does not
parse.

## Things you can try
- Check the script named above parses:
~~~
$ sh -n path/to/test.sh
~~~
- Narrow ` + "`stubs.includes`" + ` to the files that are real test scripts
- Skip generation entirely:
~~~cue
stubs: skip: true
~~~`,
	}

	issues = map[Id]*Issue{
		runtimeNotFoundIssue.Id():       runtimeNotFoundIssue,
		runtimeUnsupportedIssue.Id():    runtimeUnsupportedIssue,
		scriptExecutionFailedIssue.Id(): scriptExecutionFailedIssue,
		scriptFetchFailedIssue.Id():     scriptFetchFailedIssue,
		exitBlockedIssue.Id():           exitBlockedIssue,
		configLoadFailedIssue.Id():      configLoadFailedIssue,
		stubGenerationFailedIssue.Id():  stubGenerationFailedIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	v := maps.Values(issues)
	slices.SortFunc(v, func(a, b *Issue) int { return int(a.id - b.id) })
	return v
}

func Get(id Id) *Issue {
	return issues[id]
}
