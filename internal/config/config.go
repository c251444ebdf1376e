// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/fvttdev/fvttdev/internal/issue"
	"github.com/fvttdev/fvttdev/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "fvttdev"
	// ConfigFileName is the user config file name (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// LocalConfigFileName is the per-project config file looked up in the working directory.
	LocalConfigFileName = AppName + "." + ConfigFileExt
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "FVTTDEV"
)

//go:embed config_schema.cue
var configSchema string

// configDirOverride allows tests to bypass os.UserConfigDir.
var configDirOverride string

// SetConfigDirOverride sets a custom config directory path. Intended for tests.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// Reset clears test overrides.
func Reset() {
	configDirOverride = ""
}

// ConfigDir returns the fvttdev configuration directory using platform
// conventions: %APPDATA% on Windows, ~/Library/Application Support on macOS
// and $XDG_CONFIG_HOME (defaulting to ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// LogDir returns the directory receiving --metafile archives.
func LogDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs"), nil
}

// Sources returns the config files Load would read, lowest precedence first.
func Sources(opts LoadOptions) ([]string, error) {
	if opts.ConfigFilePath != "" {
		path := opts.ConfigFilePath.String()
		if !fileExists(path) {
			return nil, issue.NewErrorContext().
				WithIssue(issue.ConfigLoadFailedId).
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'fvttdev config show' to see the default configuration").
				Wrap(fmt.Errorf("config file not found: %s", path)).
				BuildError()
		}
		return []string{path}, nil
	}

	var sources []string

	cfgDir := opts.ConfigDirPath.String()
	if cfgDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		cfgDir = dir
	}
	if userPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt); fileExists(userPath) {
		sources = append(sources, userPath)
	}

	if !opts.IgnoreLocalConfig {
		if localPath := filepath.Join(opts.BaseDir.String(), LocalConfigFileName); fileExists(localPath) {
			sources = append(sources, localPath)
		}
	}
	return sources, nil
}

// loadWithOptions merges defaults, config files and environment overrides.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("deploy", defaults.Deploy.String())
	v.SetDefault("external", defaults.External)
	v.SetDefault("sourcemap", defaults.Sourcemap)
	v.SetDefault("log_level", string(defaults.LogLevel))
	v.SetDefault("skip_dirs", defaults.SkipDirs)
	v.SetDefault("manifest_selection", string(defaults.ManifestSelection))
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
	v.SetDefault("watch.ignore", defaults.Watch.Ignore)
	v.SetDefault("bundle.minify", defaults.Bundle.Minify)
	v.SetDefault("bundle.target", string(defaults.Bundle.Target))

	sources, err := Sources(opts)
	if err != nil {
		return nil, err
	}
	for _, path := range sources {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, issue.NewErrorContext().
				WithIssue(issue.ConfigLoadFailedId).
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("See 'fvttdev config --help' for configuration options").
				Wrap(err).
				BuildError()
		}
	}

	if err := bindEnv(v); err != nil {
		return nil, issue.NewErrorContext().
			WithIssue(issue.ConfigLoadFailedId).
			WithOperation("read environment configuration").
			WithResource(EnvPrefix + "_EXTERNAL").
			WithSuggestion(`Set it to a JSON array such as ["^foundry$"] or a comma separated list`).
			Wrap(err).
			BuildError()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, issue.NewErrorContext().
			WithIssue(issue.ConfigLoadFailedId).
			WithOperation("validate configuration").
			WithSuggestion("Check " + EnvPrefix + "_* environment variables and config files").
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &Result{Config: &cfg, Sources: sources}, nil
}

// bindEnv wires FVTTDEV_* overrides. Nested keys use underscores
// (FVTTDEV_WATCH_DEBOUNCE). FVTTDEV_EXTERNAL accepts a JSON array or a
// comma separated list.
func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("deploy", EnvPrefix+"_DEPLOY_PATH", EnvPrefix+"_DEPLOY"); err != nil {
		return err
	}

	raw, ok := os.LookupEnv(EnvPrefix + "_EXTERNAL")
	if !ok {
		return nil
	}
	external, err := parseList(raw)
	if err != nil {
		return err
	}
	v.Set("external", external)
	return nil
}

func parseList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}, nil
	}
	if strings.HasPrefix(raw, "[") {
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, fmt.Errorf("invalid JSON array: %w", err)
		}
		return list, nil
	}
	var list []string
	for item := range strings.SplitSeq(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list, nil
}

// loadCUEIntoViper parses a CUE file, validates it against #Config and
// merges its contents into Viper. Every field is optional, so the unified
// value need not be concrete.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	res, err := cueutil.ParseAndDecode[map[string]any]([]byte(configSchema), data, "#Config",
		cueutil.WithConcrete(false),
		cueutil.WithFilename(path),
	)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(*res.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// LoadEnvFile loads <dir>/env/<name>.env into the process environment.
// Variables already set are kept. A missing file is a non-fatal error.
func LoadEnvFile(dir, name string) (string, error) {
	path := filepath.Join(dir, "env", name+".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", issue.NewErrorContext().
				WithIssue(issue.EnvFileNotFoundId).
				WithOperation("load environment file").
				WithResource(path).
				WithSuggestion(fmt.Sprintf("Create env/%s.env or check the --env value", name)).
				Wrap(err).
				BuildError()
		}
		return "", fmt.Errorf("failed to stat env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return "", fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return path, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WriteDefault writes the default configuration to path. An existing file
// is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force && fileExists(path) {
		return issue.NewErrorContext().
			WithIssue(issue.ConfigLoadFailedId).
			WithOperation("write default configuration").
			WithResource(path).
			WithSuggestion("Use --force to overwrite it").
			Wrap(fs.ErrExist).
			BuildError()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE generates a CUE representation of the configuration.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// fvttdev configuration file\n\n")

	fmt.Fprintf(&sb, "deploy: %q\n", cfg.Deploy)
	sb.WriteString("external: ")
	writeCUEList(&sb, cfg.External)
	fmt.Fprintf(&sb, "sourcemap: %v\n", cfg.Sourcemap)
	fmt.Fprintf(&sb, "log_level: %q\n", cfg.LogLevel)
	sb.WriteString("skip_dirs: ")
	writeCUEList(&sb, cfg.SkipDirs)
	fmt.Fprintf(&sb, "manifest_selection: %q\n", cfg.ManifestSelection)

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tdebounce: %q\n", cfg.Watch.Debounce.String())
	sb.WriteString("\tignore: ")
	writeCUEList(&sb, cfg.Watch.Ignore)
	sb.WriteString("}\n")

	sb.WriteString("\nbundle: {\n")
	fmt.Fprintf(&sb, "\tminify: %v\n", cfg.Bundle.Minify)
	fmt.Fprintf(&sb, "\ttarget: %q\n", cfg.Bundle.Target)
	sb.WriteString("}\n")

	return sb.String()
}

func writeCUEList(sb *strings.Builder, items []string) {
	if len(items) == 0 {
		sb.WriteString("[]\n")
		return
	}
	sb.WriteString("[")
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%q", item)
	}
	sb.WriteString("]\n")
}
