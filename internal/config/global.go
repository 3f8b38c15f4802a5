// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride redirects ConfigDir, for tests that must not touch the
// real user configuration.
var configDirOverride string

// Reset clears test overrides. Call from test cleanup to restore defaults.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride sets a custom config directory path.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
