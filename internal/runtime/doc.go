// SPDX-License-Identifier: MPL-2.0

// Package runtime locates script runtimes on a classpath and provides the
// built-in "sh" runtime.
//
// The sh element is backed by mvdan.cc/sh/v3. It registers three types:
//   - sh.System: reports the interpreter version
//   - sh.Shell: a persistent interpreter that variables are bound into and
//     scripts are evaluated against
//   - sh.StubGenerator: derives no-op function stubs from test scripts
//
// Callers never use these Go types directly. They resolve them by name
// through internal/classpath, which is what lets a Locator answer capability
// questions ("can this runtime execute scripts?") before anything runs.
package runtime
