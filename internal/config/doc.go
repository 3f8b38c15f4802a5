// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// A configuration is looked up in order: the file named by --config, then
// scriptexec.cue in the working directory, then config.cue in the user
// configuration directory. Files are validated against the embedded
// config_schema.cue before being merged over the built-in defaults, and
// SCRIPTEXEC_<SECTION>_<KEY> environment variables override both.
package config
