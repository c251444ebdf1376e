// SPDX-License-Identifier: MPL-2.0

// Package config handles fvttdev configuration using Viper with CUE as the file format.
//
// Configuration is merged from the user config file
// ($XDG_CONFIG_HOME/fvttdev/config.cue, ~/Library/Application Support/fvttdev/config.cue
// on macOS, %APPDATA%\fvttdev\config.cue on Windows), then a local fvttdev.cue in the
// working directory, then FVTTDEV_* environment variables. Command-line flags are
// applied on top by the CLI layer.
//
// Every file is validated against the embedded #Config schema (config_schema.cue).
package config
