// SPDX-License-Identifier: MPL-2.0

// Package types defines small value types shared by several packages
// (exit codes, filesystem paths). It imports only the standard library.
package types
