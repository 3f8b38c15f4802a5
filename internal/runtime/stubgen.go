// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"fmt"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// StubGenerator derives a stub from a test script: every function the script
// declares is kept as a no-op with the same name, and nothing else.
type StubGenerator struct {
	parser *syntax.Parser
}

// NewStubGenerator returns a StubGenerator.
func NewStubGenerator() *StubGenerator {
	return &StubGenerator{parser: syntax.NewParser(syntax.KeepComments(false))}
}

// GenerateStub returns the stub for source. Functions are emitted in
// declaration order; a redeclared function appears once.
func (g *StubGenerator) GenerateStub(source string) (string, error) {
	file, err := g.parser.Parse(strings.NewReader(source), "source")
	if err != nil {
		return "", &ScriptError{Phase: "parse", Cause: err}
	}

	var names []string
	syntax.Walk(file, func(node syntax.Node) bool {
		fn, ok := node.(*syntax.FuncDecl)
		if !ok {
			return true
		}
		if name := fn.Name.Value; !slices.Contains(names, name) {
			names = append(names, name)
		}
		// Nested declarations belong to the outer function's body.
		return false
	})

	var b strings.Builder
	b.WriteString("# Code generated by scriptexec. DO NOT EDIT.\n")
	for _, name := range names {
		fmt.Fprintf(&b, "%s() { :; }\n", name)
	}
	return b.String(), nil
}
