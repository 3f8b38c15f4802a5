// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/invowk/scriptexec/internal/app/stubs"
	"github.com/invowk/scriptexec/internal/issue"
	"github.com/invowk/scriptexec/pkg/types"
)

type stubsOptions struct {
	watch     bool
	skip      bool
	outputDir string
}

func newStubsCommand(app *App) *cobra.Command {
	var opts stubsOptions
	c := &cobra.Command{
		Use:   "generate-test-stubs",
		Short: "Generate no-op stubs from shell test sources",
		Long: `Generate one stub per test script found under stubs.test_sources.

A stub keeps every function the test script declares, as a no-op, and drops
everything else. Stubs are written under stubs.output_dir with the source's
relative path and a modification time of the Unix epoch.`,
		Example: `  scriptexec generate-test-stubs
  scriptexec generate-test-stubs --watch
  scriptexec generate-test-stubs --output-dir build/stubs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStubs(cmd, app, &opts)
		},
	}
	c.Flags().BoolVarP(&opts.watch, "watch", "w", false, "regenerate whenever a test source changes")
	c.Flags().BoolVar(&opts.skip, "skip", false, "skip generation")
	c.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "directory receiving the stubs")
	return c
}

func runStubs(cmd *cobra.Command, app *App, opts *stubsOptions) error {
	ctx := cmd.Context()

	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return app.fail(err, nil)
	}
	if cmd.Flags().Changed("skip") {
		cfg.Stubs.Skip = opts.skip
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.Stubs.OutputDir = types.FilesystemPath(opts.outputDir)
	}

	logger := app.logger()
	locator, err := locateRuntime(cfg, logger)
	if err != nil {
		return app.fail(err, cfg)
	}

	baseDir, err := os.Getwd()
	if err != nil {
		return app.fail(err, cfg)
	}
	req := stubs.Request{
		Skip:        cfg.Stubs.Skip,
		BaseDir:     baseDir,
		TestSources: cfg.Stubs.TestSources,
		Includes:    cfg.Stubs.Includes,
		OutputDir:   string(cfg.Stubs.OutputDir),
	}

	gen := stubs.New(locator, stubs.WithLogger(logger))
	if opts.watch {
		err = gen.Watch(ctx, req)
	} else {
		_, err = gen.GenerateTestStubs(ctx, req)
	}
	if err == nil {
		return nil
	}
	if classifyError(err) == 0 {
		err = issue.NewErrorContext().
			WithOperation("generate test stubs").
			WithIssue(issue.StubGenerationFailedId).
			Wrap(err).
			BuildError()
	}
	return app.fail(err, cfg)
}
