// SPDX-License-Identifier: MPL-2.0

package stubs

import (
	"context"

	"github.com/invowk/scriptexec/internal/watch"
)

// Watch generates stubs once and then again whenever a matching test source
// changes, until ctx is canceled. Rerun failures are logged, not returned.
func (g *Generator) Watch(ctx context.Context, req Request) error {
	if _, err := g.GenerateTestStubs(ctx, req); err != nil {
		return err
	}
	if req.Skip {
		return nil
	}

	roots := make([]string, len(req.TestSources))
	for i, dir := range req.TestSources {
		roots[i] = resolvePath(req.BaseDir, dir)
	}
	includes := req.Includes
	if len(includes) == 0 {
		includes = []string{DefaultInclude}
	}

	// Stubs written into a watched root must not trigger another pass.
	var exclude []string
	if req.OutputDir != "" {
		exclude = append(exclude, resolvePath(req.BaseDir, req.OutputDir))
	}

	w, err := watch.New(watch.Config{
		Roots:    roots,
		Patterns: includes,
		Exclude:  exclude,
		Logger:   g.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			g.logger.Info("Test sources changed, regenerating stubs.", "changed", len(changed))
			_, err := g.GenerateTestStubs(ctx, req)
			return err
		},
	})
	if err != nil {
		return err
	}
	g.logger.Info("Watching test sources for changes.", "roots", roots)
	return w.Run(ctx)
}
