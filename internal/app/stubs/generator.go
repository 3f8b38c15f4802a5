// SPDX-License-Identifier: MPL-2.0

package stubs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"github.com/invowk/scriptexec/internal/app/execute"
	"github.com/invowk/scriptexec/internal/classpath"
	"github.com/invowk/scriptexec/internal/runtime"
	"github.com/invowk/scriptexec/internal/watch"
)

// DefaultInclude selects every shell script below a source directory.
const DefaultInclude = "**/*.sh"

//nolint:gochecknoglobals // Modification time given to every stub.
var epoch = time.Unix(0, 0)

type (
	// Request describes one generation pass.
	Request struct {
		// Skip disables generation.
		Skip bool
		// BaseDir resolves relative source and output directories.
		BaseDir string
		// TestSources are the directories scanned for test scripts.
		TestSources []string
		// Includes are doublestar patterns relative to each source directory.
		Includes []string
		// OutputDir receives the stubs, mirroring each source's relative path.
		OutputDir string
	}

	// Option configures a Generator.
	Option func(*Generator)

	// Generator writes test stubs.
	Generator struct {
		locator execute.RuntimeLocator
		logger  *log.Logger
	}

	// source is one test script to stub.
	source struct {
		path string
		rel  string
	}
)

// WithLogger sets the logger for generation progress.
func WithLogger(l *log.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// New returns a Generator for the runtime found by locator.
func New(locator execute.RuntimeLocator, opts ...Option) *Generator {
	g := &Generator{locator: locator, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateTestStubs writes one stub per collected test source and returns
// how many were written. Skipped or unsupported runs return 0 and a nil
// error. Every classpath failure is returned as a *execute.BuildError.
func (g *Generator) GenerateTestStubs(ctx context.Context, req Request) (int, error) {
	if req.Skip {
		g.logger.Info("Skipping generation of test stubs because skip was set to true.")
		return 0, nil
	}

	capability, err := g.locator.Supports(runtime.ActionGenerateStubs)
	if err != nil {
		return 0, &execute.BuildError{Op: "locate script runtime", Cause: err}
	}
	if !capability.Supported {
		g.logger.Errorf("Your script runtime version (%s) doesn't support stub generation. The minimum version is %s.",
			capability.Detected, capability.Minimum)
		return 0, nil
	}
	g.logger.Infof("Using script runtime %s to perform generateTestStubs.", capability.Detected)

	sources, err := collect(req)
	if err != nil {
		return 0, err
	}
	if len(sources) == 0 {
		g.logger.Info("No test sources found. Skipping.")
		return 0, nil
	}

	generator, generate, err := g.resolve()
	if err != nil {
		return 0, err
	}

	outDir := resolvePath(req.BaseDir, req.OutputDir)
	written := 0
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return written, fmt.Errorf("stub generation canceled: %w", err)
		}
		if err := writeStub(generator, generate, src, outDir); err != nil {
			return written, err
		}
		written++
	}

	g.logger.Infof("Generated %d stubs.", written)
	return written, nil
}

// resolve instantiates sh.StubGenerator and its GenerateStub method.
func (g *Generator) resolve() (any, *classpath.Callable, error) {
	class, err := g.locator.Classpath().ResolveType(runtime.StubGeneratorType)
	if err != nil {
		return nil, nil, &execute.BuildError{Op: "resolve " + runtime.StubGeneratorType, Cause: err}
	}
	ctor, err := class.Constructor()
	if err != nil {
		return nil, nil, &execute.BuildError{Op: "resolve " + runtime.StubGeneratorType + " constructor", Cause: err}
	}
	instance, err := classpath.New(ctor)
	if err != nil {
		return nil, nil, &execute.BuildError{Op: "instantiate " + runtime.StubGeneratorType, Cause: err}
	}
	generate, err := class.Method("GenerateStub", classpath.TypeOf[string]())
	if err != nil {
		return nil, nil, &execute.BuildError{Op: "resolve " + runtime.StubGeneratorType + ".GenerateStub", Cause: err}
	}
	return instance, generate, nil
}

func writeStub(generator any, generate *classpath.Callable, src source, outDir string) error {
	content, err := os.ReadFile(src.path)
	if err != nil {
		return fmt.Errorf("failed to read test source %s: %w", src.path, err)
	}

	results, err := classpath.Invoke(generate, generator, string(content))
	if err != nil {
		return &execute.BuildError{Op: "generate stub for " + src.rel, Cause: err}
	}
	stub, ok := results[0].(string)
	if !ok {
		return &execute.BuildError{
			Op: "generate stub for " + src.rel,
			Cause: &classpath.AccessError{
				Class:  runtime.StubGeneratorType,
				Member: generate.Name(),
				Reason: fmt.Sprintf("result has type %T, want string", results[0]),
			},
		}
	}

	dst := filepath.Join(outDir, filepath.FromSlash(src.rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create stub directory: %w", err)
	}
	if err := os.WriteFile(dst, []byte(stub), 0o644); err != nil {
		return fmt.Errorf("failed to write stub %s: %w", dst, err)
	}
	// Stubs always look stale so downstream tools regenerate from them.
	if err := os.Chtimes(dst, epoch, epoch); err != nil {
		return fmt.Errorf("failed to reset stub modification time: %w", err)
	}
	return nil
}

// collect returns the matching files of every source directory, ordered by
// relative path. Missing directories are skipped; when two directories hold
// the same relative path the first wins. Files under the output directory
// are never sources.
func collect(req Request) ([]source, error) {
	includes := req.Includes
	if len(includes) == 0 {
		includes = []string{DefaultInclude}
	}
	outDir := ""
	if req.OutputDir != "" {
		abs, err := filepath.Abs(resolvePath(req.BaseDir, req.OutputDir))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve stub output directory: %w", err)
		}
		outDir = abs
	}

	seen := make(map[string]bool)
	var sources []source
	for _, dir := range req.TestSources {
		root := resolvePath(req.BaseDir, dir)
		info, err := os.Stat(root)
		if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to inspect test source directory %s: %w", root, err)
		}

		fsys := os.DirFS(root)
		for _, pattern := range includes {
			matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
			}
			for _, rel := range matches {
				path := filepath.Join(root, filepath.FromSlash(rel))
				if seen[rel] || inOutput(outDir, path) {
					continue
				}
				seen[rel] = true
				sources = append(sources, source{path: path, rel: rel})
			}
		}
	}

	slices.SortFunc(sources, func(a, b source) int {
		switch {
		case a.rel < b.rel:
			return -1
		case a.rel > b.rel:
			return 1
		}
		return 0
	})
	return sources, nil
}

func inOutput(outDir, path string) bool {
	if outDir == "" {
		return false
	}
	abs, err := filepath.Abs(path)
	return err == nil && watch.Within(outDir, abs)
}

func resolvePath(base, path string) string {
	if filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}
