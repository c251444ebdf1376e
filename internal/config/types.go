// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"github.com/fvttdev/fvttdev/internal/discovery"
	"github.com/fvttdev/fvttdev/pkg/types"
)

const (
	LogLevelOff     LogLevel = "off"
	LogLevelFatal   LogLevel = "fatal"
	LogLevelError   LogLevel = "error"
	LogLevelWarn    LogLevel = "warn"
	LogLevelInfo    LogLevel = "info"
	LogLevelVerbose LogLevel = "verbose"
	LogLevelDebug   LogLevel = "debug"
	LogLevelTrace   LogLevel = "trace"
	LogLevelAll     LogLevel = "all"

	// TargetES2020 is the default esbuild language target.
	TargetES2020 Target = "es2020"
	// TargetESNext disables syntax lowering.
	TargetESNext Target = "esnext"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidTarget is returned when a Target value is not recognized.
	ErrInvalidTarget = errors.New("invalid bundle target")
	// ErrInvalidSkipDir is returned when a skip_dirs element is not a plain directory name.
	ErrInvalidSkipDir = errors.New("invalid skip directory")
	// ErrInvalidDebounce is returned when watch.debounce is negative.
	ErrInvalidDebounce = errors.New("invalid watch debounce")
	// ErrInvalidWatchIgnore is returned when a watch.ignore element is not a valid glob.
	ErrInvalidWatchIgnore = errors.New("invalid watch ignore pattern")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")

	logLevels = []LogLevel{
		LogLevelOff, LogLevelFatal, LogLevelError, LogLevelWarn, LogLevelInfo,
		LogLevelVerbose, LogLevelDebug, LogLevelTrace, LogLevelAll,
	}

	targets = []Target{
		"es2015", "es2016", "es2017", "es2018", "es2019", TargetES2020,
		"es2021", "es2022", "es2023", "es2024", TargetESNext,
	}
)

type (
	// LogLevel is a user-facing verbosity name.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// Target is an esbuild ECMAScript language target.
	Target string

	// InvalidTargetError is returned when a Target value is not recognized.
	InvalidTargetError struct {
		Value Target
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the fvttdev configuration.
	Config struct {
		// Deploy is the output directory, resolved against the working directory.
		Deploy types.FilesystemPath `json:"deploy" mapstructure:"deploy"`
		// External lists import patterns that are never bundled.
		External []string `json:"external" mapstructure:"external"`
		// Sourcemap enables .map output.
		Sourcemap bool `json:"sourcemap" mapstructure:"sourcemap"`
		// LogLevel sets logger verbosity.
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
		// SkipDirs are directory names ignored while scanning.
		SkipDirs []string `json:"skip_dirs" mapstructure:"skip_dirs"`
		// ManifestSelection decides what happens when several manifests are found.
		ManifestSelection discovery.Selection `json:"manifest_selection" mapstructure:"manifest_selection"`
		// Watch configures --watch.
		Watch WatchConfig `json:"watch" mapstructure:"watch"`
		// Bundle configures esbuild.
		Bundle BundleConfig `json:"bundle" mapstructure:"bundle"`
	}

	// WatchConfig configures watch mode.
	WatchConfig struct {
		// Debounce is the quiet period before a rebuild.
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
		// Ignore lists doublestar patterns, relative to the package root,
		// whose changes never trigger a rebuild.
		Ignore []string `json:"ignore" mapstructure:"ignore"`
	}

	// BundleConfig configures esbuild.
	BundleConfig struct {
		Minify bool   `json:"minify" mapstructure:"minify"`
		Target Target `json:"target" mapstructure:"target"`
	}
)

// LogLevels returns every accepted log level name.
func LogLevels() []LogLevel { return slices.Clone(logLevels) }

// IsValid returns whether the LogLevel is a known name.
func (l LogLevel) IsValid() (bool, []error) {
	if slices.Contains(logLevels, l) {
		return true, nil
	}
	return false, []error{&InvalidLogLevelError{Value: l}}
}

// Level maps the name onto a charmbracelet/log level. "off" maps above
// fatal so nothing is printed.
func (l LogLevel) Level() log.Level {
	switch l {
	case LogLevelOff:
		return log.FatalLevel + 1
	case LogLevelFatal:
		return log.FatalLevel
	case LogLevelError:
		return log.ErrorLevel
	case LogLevelWarn:
		return log.WarnLevel
	case LogLevelVerbose, LogLevelDebug, LogLevelTrace, LogLevelAll:
		return log.DebugLevel
	default:
		return log.InfoLevel
	}
}

// ReportCaller reports whether log lines should carry the caller location.
func (l LogLevel) ReportCaller() bool {
	return l == LogLevelTrace || l == LogLevelAll
}

func (l LogLevel) String() string { return string(l) }

// Error implements the error interface.
func (e *InvalidLogLevelError) Error() string {
	names := make([]string, len(logLevels))
	for i, l := range logLevels {
		names[i] = string(l)
	}
	return fmt.Sprintf("invalid log level %q (valid: %s)", e.Value, strings.Join(names, ", "))
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// IsValid returns whether the Target is a known esbuild target.
func (t Target) IsValid() (bool, []error) {
	if slices.Contains(targets, t) {
		return true, nil
	}
	return false, []error{&InvalidTargetError{Value: t}}
}

func (t Target) String() string { return string(t) }

// Error implements the error interface.
func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid bundle target %q", e.Value)
}

// Unwrap returns ErrInvalidTarget for errors.Is() compatibility.
func (e *InvalidTargetError) Unwrap() error { return ErrInvalidTarget }

// IsValid returns whether the Config has valid fields.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if err := c.Deploy.Validate(); err != nil {
		errs = append(errs, err)
	}
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.ManifestSelection.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	for _, dir := range c.SkipDirs {
		if dir == "" || strings.ContainsAny(dir, `/\`) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidSkipDir, dir))
		}
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidDebounce, c.Watch.Debounce))
	}
	for _, pat := range c.Watch.Ignore {
		if pat == "" || !doublestar.ValidatePattern(pat) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidWatchIgnore, pat))
		}
	}
	if valid, fieldErrs := c.Bundle.Target.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig and the field errors for errors.Is()
// compatibility.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Deploy:            "./dist",
		External:          []string{},
		Sourcemap:         true,
		LogLevel:          LogLevelInfo,
		SkipDirs:          discovery.DefaultSkipDirs(),
		ManifestSelection: discovery.SelectFirst,
		Watch:             WatchConfig{Debounce: 500 * time.Millisecond, Ignore: []string{}},
		Bundle:            BundleConfig{Target: TargetES2020},
	}
}
