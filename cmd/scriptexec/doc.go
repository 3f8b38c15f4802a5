// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the scriptexec CLI.
//
// The root command carries the global --config and --verbose flags. The
// execute and generate-test-stubs commands load configuration, assemble the
// runtime classpath and hand off to internal/app; runtime and config are
// inspection commands. Errors are rendered with the issue catalog and mapped
// to exit codes 1 (build failure) and 2 (build error).
package cmd
