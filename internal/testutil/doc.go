// SPDX-License-Identifier: MPL-2.0

// Package testutil holds test helpers that fail the test instead of
// returning errors: working directory and environment changes with restore
// functions, and file fixtures.
package testutil
