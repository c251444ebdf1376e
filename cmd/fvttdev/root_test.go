// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fvttdev/fvttdev/internal/config"
	"github.com/fvttdev/fvttdev/internal/issue"
	"github.com/fvttdev/fvttdev/internal/testutil"
	"github.com/fvttdev/fvttdev/pkg/types"
)

// envKeys are the overrides cleared around every in-process run.
var envKeys = []string{
	cwdEnv,
	config.EnvPrefix + "_DEPLOY_PATH",
	config.EnvPrefix + "_DEPLOY",
	config.EnvPrefix + "_EXTERNAL",
	config.EnvPrefix + "_SOURCEMAP",
	config.EnvPrefix + "_LOG_LEVEL",
	config.EnvPrefix + "_MANIFEST_SELECTION",
	config.EnvPrefix + "_SKIP_DIRS",
	config.EnvPrefix + "_WATCH_DEBOUNCE",
	config.EnvPrefix + "_BUNDLE_MINIFY",
	config.EnvPrefix + "_BUNDLE_TARGET",
}

type cliResult struct {
	stdout string
	stderr string
	err    error
}

// isolate points the user config dir at a temp dir and clears FVTTDEV_*
// overrides. Callers must not run in parallel.
func isolate(t *testing.T) string {
	t.Helper()
	cfgDir := t.TempDir()
	config.SetConfigDirOverride(cfgDir)
	t.Cleanup(config.Reset)
	for _, key := range envKeys {
		// t.Setenv restores the original state, including "unset".
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
	return cfgDir
}

// runCLI executes the command tree in-process.
func runCLI(t *testing.T, deps Dependencies, args ...string) cliResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	deps.Stdout = &stdout
	deps.Stderr = &stderr
	root := NewRootCommand(NewApp(deps))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func wantIssue(t *testing.T, err error, id issue.Id) {
	t.Helper()
	ae, ok := issue.AsActionable(err)
	if !ok {
		t.Fatalf("error = %v (%T), want *issue.ActionableError", err, err)
	}
	if ae.IssueID != id {
		t.Errorf("IssueID = %d, want %d (%v)", ae.IssueID, id, err)
	}
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2025-06-15T10:00:00Z"

		got := getVersionString()
		want := "v1.2.3 (commit: abc1234, built: 2025-06-15T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want types.ExitCode
	}{
		{name: "plain error", err: errors.New("boom"), want: types.ExitFailure},
		{name: "exit error", err: &ExitError{Code: types.ExitUsage}, want: types.ExitUsage},
		{name: "wrapped exit error", err: fmt.Errorf("run: %w", &ExitError{Code: 1}), want: types.ExitFailure},
		{name: "out of range code", err: &ExitError{Code: 300}, want: types.ExitFailure},
		{name: "actionable", err: issue.NewErrorContext().WithOperation("x").BuildError(), want: types.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResolveWorkingDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	got, err := resolveWorkingDir(dir)
	if err != nil {
		t.Fatalf("resolveWorkingDir() error: %v", err)
	}
	if got != dir {
		t.Errorf("resolveWorkingDir() = %s, want %s", got, dir)
	}

	_, err = resolveWorkingDir(filepath.Join(dir, "missing"))
	wantIssue(t, err, issue.WorkingDirNotFoundId)
	if !issue.IsNonFatal(err) {
		t.Error("a missing working directory should be non-fatal")
	}

	file := filepath.Join(dir, "file.txt")
	testutil.MustWriteFile(t, file, "x")
	_, err = resolveWorkingDir(file)
	wantIssue(t, err, issue.WorkingDirNotFoundId)
}

func TestRoot_UnknownLogLevel(t *testing.T) {
	isolate(t)
	base := t.TempDir()
	testutil.WriteTree(t, base, moduleFiles())

	res := runCLI(t, Dependencies{}, "bundle", "--noop", "--cwd", base, "--loglevel", "chatty")
	if res.err != nil {
		t.Fatalf("bundle error: %v", res.err)
	}
	if !strings.Contains(res.stderr, "unknown log level") {
		t.Errorf("stderr should warn about the log level:\n%s", res.stderr)
	}
}

func TestRoot_InvalidEnvLogLevel(t *testing.T) {
	isolate(t)
	t.Setenv(config.EnvPrefix+"_LOG_LEVEL", "chatty")

	res := runCLI(t, Dependencies{}, "config", "show", "--cwd", t.TempDir())
	wantIssue(t, res.err, issue.ConfigLoadFailedId)
}

func TestRenderActionable(t *testing.T) {
	t.Parallel()

	err := issue.NewErrorContext().
		WithIssue(issue.ManifestNotFoundId).
		WithOperation("find a Foundry VTT module or system in file path").
		WithResource("/work").
		WithSuggestion("Use --cwd").
		Wrap(errors.New("root cause")).
		BuildError()
	ae, _ := issue.AsActionable(err)

	out := renderActionable(ae, false)
	for _, want := range []string{"Error: ", "/work", "Use --cwd"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Error chain") {
		t.Errorf("non-verbose output should not show the chain:\n%s", out)
	}
	if !strings.Contains(renderActionable(ae, true), "Error chain") {
		t.Error("verbose output should show the chain")
	}
}
