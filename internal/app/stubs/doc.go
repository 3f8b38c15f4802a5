// SPDX-License-Identifier: MPL-2.0

// Package stubs generates test stubs from shell test sources through the
// runtime's sh.StubGenerator, resolved on the classpath the same way the
// execute orchestrator resolves sh.Shell.
package stubs
