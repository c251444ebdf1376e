// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/fvttdev/fvttdev/internal/config"
	"github.com/fvttdev/fvttdev/internal/issue"
	"github.com/fvttdev/fvttdev/pkg/types"
)

// cwdEnv names the environment variable consulted when --cwd is not given.
const cwdEnv = config.EnvPrefix + "_CWD"

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type (
	// rootFlagValues holds the persistent flags shared by every subcommand.
	rootFlagValues struct {
		configPath        string
		cwd               string
		env               string
		ignoreLocalConfig bool
		logLevel          string
		strictManifest    bool
	}

	// session is the resolved environment of one command invocation.
	session struct {
		// cwd is the working directory as given; baseDir is its absolute form.
		cwd     string
		baseDir string
		envFile string
		cfg     *config.Config
		sources []string
		// logLevel is the effective level name, after flag and config merge.
		logLevel config.LogLevel
		logger   *log.Logger
	}
)

// NewRootCommand builds the fvttdev command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	root := &cobra.Command{
		Use:   "fvttdev",
		Short: "Bundle and deploy Foundry VTT modules and systems",
		Long: TitleStyle.Render("fvttdev") + SubtitleStyle.Render(" - Foundry VTT package bundler") + `

fvttdev finds the module.json or system.json below the working directory,
bundles every esmodules entry and every file in the package npm directory
with esbuild, copies static assets and writes a rewritten manifest to the
deploy directory.

` + SubtitleStyle.Render("Examples:") + `
  fvttdev bundle                  Bundle the package below the current directory
  fvttdev bundle --noop           Print the discovered package and exit
  fvttdev bundle --watch          Rebuild on every change
  fvttdev validate manifest       Check the manifest against its schema
  fvttdev config show             Show the effective configuration`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default is the user config dir and ./fvttdev.cue)")
	pf.StringVar(&flags.cwd, "cwd", ".", "use an alternative working directory (env: "+cwdEnv+")")
	pf.StringVarP(&flags.env, "env", "e", "", "name of a *.env file to load from <cwd>/env")
	pf.BoolVar(&flags.ignoreLocalConfig, "ignore-local-config", false, "ignore fvttdev.cue in the working directory")
	pf.StringVar(&flags.logLevel, "loglevel", "", "log level: off, fatal, error, warn, info, verbose, debug, trace, all (env: "+config.EnvPrefix+"_LOG_LEVEL)")
	pf.BoolVar(&flags.strictManifest, "strict-manifest", false, "fail when more than one manifest is found")

	root.AddCommand(newBundleCommand(app, flags))
	root.AddCommand(newValidateCommand(app, flags))
	root.AddCommand(newConfigCommand(app, flags))
	root.AddCommand(newCompletionCommand())

	root.SetOut(app.stdout)
	root.SetErr(app.stderr)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the command tree and exits with the resulting code.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	root := NewRootCommand(app)

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			var exitErr *ExitError
			if errors.As(err, &exitErr) && exitErr.Err == nil {
				return
			}
			if ae, ok := issue.AsActionable(err); ok {
				fmt.Fprintln(w, renderActionable(ae, app.verbose))
				return
			}
			fang.DefaultErrorHandler(w, styles, err)
		}),
	); err != nil {
		os.Exit(int(exitCode(err)))
	}
}

// exitCode maps a command error onto a process exit status.
func exitCode(err error) types.ExitCode {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code.Validate() == nil {
		return exitErr.Code
	}
	return types.ExitFailure
}

// newSession resolves the working directory, loads the --env file and the
// configuration, and builds the logger. Flags win over the environment,
// which wins over config files.
func (app *App) newSession(cmd *cobra.Command, flags *rootFlagValues) (*session, error) {
	s := &session{cwd: flags.cwd}

	if flags.env != "" {
		path, err := config.LoadEnvFile(s.cwd, flags.env)
		if err != nil {
			return nil, err
		}
		s.envFile = path
	}
	if v := lookupCwdEnv(cmd); v != "" {
		s.cwd = v
	}

	baseDir, err := resolveWorkingDir(s.cwd)
	if err != nil {
		return nil, err
	}
	s.baseDir = baseDir

	res, err := app.Config.Load(cmd.Context(), config.LoadOptions{
		ConfigFilePath:    types.FilesystemPath(flags.configPath),
		BaseDir:           types.FilesystemPath(baseDir),
		IgnoreLocalConfig: flags.ignoreLocalConfig,
	})
	if err != nil {
		return nil, err
	}
	s.cfg = res.Config
	s.sources = res.Sources

	s.logLevel = s.cfg.LogLevel
	var unknownLevel bool
	if cmd.Flags().Changed("loglevel") {
		if ok, _ := config.LogLevel(flags.logLevel).IsValid(); ok {
			s.logLevel = config.LogLevel(flags.logLevel)
		} else {
			unknownLevel = true
		}
	}
	s.logger = newLogger(app.stderr, s.logLevel)
	if unknownLevel {
		s.logger.Warn("unknown log level, keeping "+s.logLevel.String(), "loglevel", flags.logLevel)
	}
	app.verbose = s.logger.GetLevel() <= log.DebugLevel
	slog.SetDefault(slog.New(s.logger))

	for _, src := range s.sources {
		s.logger.Debug("loaded config", "path", src)
	}
	if s.envFile != "" {
		s.logger.Debug("loaded env file", "path", s.envFile)
	}
	return s, nil
}

// lookupCwdEnv returns FVTTDEV_CWD when --cwd was not given on the
// command line.
func lookupCwdEnv(cmd *cobra.Command) string {
	if cmd.Flags().Changed("cwd") {
		return ""
	}
	return os.Getenv(cwdEnv)
}

// newLogger returns a stderr logger for level.
func newLogger(w io.Writer, level config.LogLevel) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:        level.Level(),
		ReportCaller: level.ReportCaller(),
		Prefix:       config.AppName,
	})
}

// resolveWorkingDir returns dir as an absolute path. A missing directory is
// a non-fatal error.
func resolveWorkingDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err == nil && !info.IsDir() {
		err = fmt.Errorf("%s is not a directory: %w", abs, fs.ErrNotExist)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return "", issue.NewErrorContext().
			WithIssue(issue.WorkingDirNotFoundId).
			WithOperation("use working directory").
			WithResource(dir).
			WithSuggestion("Check the --cwd flag or the " + cwdEnv + " variable").
			Wrap(err).
			BuildError()
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat working directory %s: %w", abs, err)
	}
	return abs, nil
}
