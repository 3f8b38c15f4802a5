// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"runtime/debug"
	"sync"

	"github.com/invowk/scriptexec/internal/classpath"
)

const (
	// ElementSh is the classpath element name of the built-in runtime.
	ElementSh = "sh"

	interpreterModule = "mvdan.cc/sh/v3"
	// pinnedVersion matches the interpreter version required in go.mod. It is
	// reported when build info is unavailable.
	pinnedVersion = "v3.12.0"
)

var (
	versionOnce sync.Once
	//nolint:gochecknoglobals // Cached interpreter version.
	version string

	//nolint:gochecknoglobals // Test seam for debug.ReadBuildInfo().
	readBuildInfo = debug.ReadBuildInfo
)

// System reports facts about the embedded interpreter.
type System struct{}

func init() {
	classpath.RegisterProvider(ElementSh, defineShTypes)
}

// NewSystem returns a System.
func NewSystem() *System { return &System{} }

// Version returns the module version of the embedded interpreter.
func (*System) Version() string {
	versionOnce.Do(func() {
		version = interpreterVersion()
	})
	return version
}

func interpreterVersion() string {
	info, ok := readBuildInfo()
	if !ok {
		return pinnedVersion
	}
	for _, dep := range info.Deps {
		if dep.Path != interpreterModule {
			continue
		}
		if dep.Replace != nil && dep.Replace.Version != "" {
			return dep.Replace.Version
		}
		if dep.Version != "" && dep.Version != "(devel)" {
			return dep.Version
		}
	}
	return pinnedVersion
}

func defineShTypes(b *classpath.Builder) error {
	if err := b.Define(SystemType, (*System)(nil), NewSystem); err != nil {
		return err
	}
	if err := b.Define(ShellType, (*Shell)(nil), NewShell, NewShellWithIO); err != nil {
		return err
	}
	return b.Define(StubGeneratorType, (*StubGenerator)(nil), NewStubGenerator)
}
