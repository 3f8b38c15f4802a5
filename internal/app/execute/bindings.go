// SPDX-License-Identifier: MPL-2.0

package execute

import (
	"maps"

	"github.com/google/uuid"
)

const (
	// PropertiesVariable is the single variable bindings are nested under in
	// namespaced mode.
	PropertiesVariable = "properties"

	keyBaseDir     = "project.basedir"
	keyClasspath   = "project.classpath"
	keyExecutionID = "session.executionId"
)

type (
	// ProjectContext describes the project a run belongs to.
	ProjectContext struct {
		// BaseDir is the project root, usually the working directory.
		BaseDir string
		// Classpath lists the classpath elements in lookup order.
		Classpath []string
	}

	// BindingSet maps variable names to the values exposed to scripts.
	BindingSet map[string]any
)

// NewBindingSet returns the bindings for one run: the project context, a
// fresh session.executionId, then props. Later keys replace earlier ones.
func NewBindingSet(project ProjectContext, props map[string]any) BindingSet {
	b := BindingSet{
		keyBaseDir:     project.BaseDir,
		keyClasspath:   append([]string(nil), project.Classpath...),
		keyExecutionID: uuid.NewString(),
	}
	maps.Copy(b, props)
	return b
}

// With returns a copy of b with overrides applied on top.
func (b BindingSet) With(overrides map[string]any) BindingSet {
	merged := maps.Clone(b)
	if merged == nil {
		merged = BindingSet{}
	}
	maps.Copy(merged, overrides)
	return merged
}

// ExecutionID returns the session identifier bound for this run.
func (b BindingSet) ExecutionID() string {
	id, _ := b[keyExecutionID].(string)
	return id
}
