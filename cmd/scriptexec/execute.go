// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"maps"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/invowk/scriptexec/internal/app/execute"
	"github.com/invowk/scriptexec/internal/config"
	"github.com/invowk/scriptexec/internal/issue"
	"github.com/invowk/scriptexec/internal/scriptsource"
)

type executeOptions struct {
	defines         []string
	propertyFiles   []string
	continueOnError bool
	allowExits      bool
	bindSeparately  bool
	encoding        string
	fetchTimeout    time.Duration
}

func newExecuteCommand(app *App) *cobra.Command {
	var opts executeOptions
	c := &cobra.Command{
		Use:   "execute [script...]",
		Short: "Evaluate the configured scripts in order",
		Long: `Evaluate scripts in order in one interpreter session.

Scripts given as arguments replace execute.scripts from the configuration.
Each entry is either literal script text or an http(s)://, file:// or s3://
URL whose content is fetched and evaluated.

Properties come from the configuration, then --property-file files, then
-D overrides, later sources winning. They are bound as the associative array
"properties" unless --bind-separately is set.`,
		Example: `  scriptexec execute
  scriptexec execute 'echo "${properties[env]}"' -D env=prod
  scriptexec execute https://example.com/setup.sh --fetch-timeout 10s
  scriptexec execute --property-file .env --property-file .env.local?`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd, app, &opts, args)
		},
	}

	f := c.Flags()
	f.StringArrayVarP(&opts.defines, "define", "D", nil, "set a property as key=value (repeatable)")
	f.StringArrayVar(&opts.propertyFiles, "property-file", nil, "load properties from a dotenv file; a trailing ? makes it optional (repeatable)")
	f.BoolVar(&opts.continueOnError, "continue", false, "log failing scripts and keep going")
	f.BoolVar(&opts.allowExits, "allow-exits", false, "let scripts terminate the process with exit")
	f.BoolVar(&opts.bindSeparately, "bind-separately", false, "bind each property as its own variable")
	f.StringVar(&opts.encoding, "encoding", "", "text encoding of fetched scripts (default UTF-8)")
	f.DurationVar(&opts.fetchTimeout, "fetch-timeout", 0, "bound each fetch; 0 waits indefinitely")
	return c
}

func runExecute(cmd *cobra.Command, app *App, opts *executeOptions, args []string) error {
	ctx := cmd.Context()

	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return app.fail(err, nil)
	}
	applyExecuteFlags(cmd.Flags(), opts, &cfg.Execute)
	if len(args) > 0 {
		cfg.Execute.Scripts = args
	}

	logger := app.logger()
	locator, err := locateRuntime(cfg, logger)
	if err != nil {
		return app.fail(err, cfg)
	}

	resolver, err := newResolver(cfg, logger)
	if err != nil {
		return app.fail(err, cfg)
	}

	bindings, err := buildBindings(cfg, opts.defines)
	if err != nil {
		return app.fail(err, cfg)
	}
	logger.Debug("Session started.", "executionId", bindings.ExecutionID())

	orch := execute.New(locator, resolver,
		execute.WithLogger(logger),
		execute.WithIO(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()),
	)
	summary, err := orch.Execute(ctx, execute.Request{
		Scripts:           cfg.Execute.Scripts,
		ContinueExecuting: cfg.Execute.ContinueExecuting,
		BindSeparately:    cfg.Execute.BindPropertiesToSeparateVariables,
		AllowSystemExits:  cfg.Execute.AllowSystemExits,
		Bindings:          bindings,
	})
	if err != nil {
		return app.fail(err, cfg)
	}

	if summary.Failed > 0 {
		logger.Warnf("%d of %d scripts failed.", summary.Failed, summary.Attempted)
	}
	logger.Debug("Run finished.",
		"attempted", summary.Attempted, "succeeded", summary.Succeeded,
		"failed", summary.Failed, "empty", summary.Empty, "skipped", summary.Skipped)
	return nil
}

// applyExecuteFlags overrides configuration with the flags the user set.
func applyExecuteFlags(flags *pflag.FlagSet, opts *executeOptions, cfg *config.ExecuteConfig) {
	if flags.Changed("continue") {
		cfg.ContinueExecuting = opts.continueOnError
	}
	if flags.Changed("allow-exits") {
		cfg.AllowSystemExits = opts.allowExits
	}
	if flags.Changed("bind-separately") {
		cfg.BindPropertiesToSeparateVariables = opts.bindSeparately
	}
	if flags.Changed("encoding") {
		cfg.SourceEncoding = opts.encoding
	}
	if flags.Changed("fetch-timeout") {
		cfg.FetchTimeout = opts.fetchTimeout
	}
	cfg.PropertyFiles = append(cfg.PropertyFiles, opts.propertyFiles...)
}

// newResolver builds the script resolver. The s3 scheme is only served when
// an object store is configured.
func newResolver(cfg *config.Config, logger *log.Logger) (*scriptsource.Resolver, error) {
	opts := []scriptsource.Option{
		scriptsource.WithEncoding(cfg.Execute.SourceEncoding),
		scriptsource.WithTimeout(cfg.Execute.FetchTimeout),
		scriptsource.WithLogger(logger),
	}
	if cfg.ObjectStore.Configured() {
		fetcher, err := scriptsource.NewObjectStoreFetcher(cfg.ObjectStore)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("configure object store").
				WithResource(cfg.ObjectStore.Endpoint).
				WithSuggestion("Check object_store.endpoint and the access key pair").
				WithIssue(issue.ScriptFetchFailedId).
				Wrap(err).
				BuildError()
		}
		opts = append(opts, scriptsource.WithFetcher("s3", fetcher))
	}
	return scriptsource.NewResolver(opts...), nil
}

// buildBindings layers configuration properties, property files and -D
// defines on top of the project context.
func buildBindings(cfg *config.Config, defines []string) (execute.BindingSet, error) {
	baseDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to determine working directory: %w", err)
	}

	props := maps.Clone(cfg.Properties)
	fileProps, err := execute.LoadPropertyFiles(baseDir, cfg.Execute.PropertyFiles)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load property files").
			WithSuggestion("Append ? to a path to make the file optional").
			Wrap(err).
			BuildError()
	}
	if props == nil {
		props = map[string]any{}
	}
	maps.Copy(props, fileProps)

	overrides, err := parseDefines(defines)
	if err != nil {
		return nil, err
	}

	project := execute.ProjectContext{BaseDir: baseDir, Classpath: cfg.Runtime.Classpath}
	return execute.NewBindingSet(project, props).With(overrides), nil
}

// parseDefines turns key=value pairs into properties. A bare key binds the
// empty string.
func parseDefines(defines []string) (map[string]any, error) {
	out := make(map[string]any, len(defines))
	for _, d := range defines {
		key, value, _ := strings.Cut(d, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, issue.NewErrorContext().
				WithOperation("parse -D " + d).
				WithSuggestion("Use -D key=value").
				BuildError()
		}
		out[key] = value
	}
	return out, nil
}
