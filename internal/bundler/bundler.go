// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/fvttdev/fvttdev/internal/fvtt"
	"github.com/fvttdev/fvttdev/internal/issue"
	"github.com/fvttdev/fvttdev/pkg/bundle"
)

type (
	// BuildError carries the esbuild errors reported for one entry.
	BuildError struct {
		// Entry is the input path relative to the base directory.
		Entry    string
		Messages []api.Message
	}

	// Result describes one bundling run.
	Result struct {
		// Outputs lists every file esbuild wrote, in entry order.
		Outputs []string
		// Warnings are esbuild warnings, formatted as "file:line:col: text".
		Warnings []string
	}

	entryResult struct {
		outputs  []string
		warnings []string
	}
)

// Error implements the error interface.
func (e *BuildError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "esbuild failed for %s", e.Entry)
	for _, m := range e.Messages {
		sb.WriteString("\n  ")
		sb.WriteString(formatMessage(m))
	}
	return sb.String()
}

// Bundle builds every entry of pkg. The caller owns the pass: Bundle
// expects pkg.BeginPass to have been called. Watch files are recorded for
// main entries only. Errors reported by esbuild are returned as a single
// *issue.ActionableError wrapping the *BuildError of the first failing entry.
func Bundle(ctx context.Context, pkg *fvtt.Package, opts Options) (*Result, error) {
	target, err := opts.target()
	if err != nil {
		return nil, err
	}
	external := pkg.External()
	if err := compilePatterns(external); err != nil {
		return nil, issue.NewErrorContext().
			WithIssue(issue.BundleFailedId).
			WithOperation("configure external imports").
			WithSuggestion("External patterns are regular expressions; escape special characters").
			Wrap(err).
			BuildError()
	}

	logger := opts.logger()
	entries := pkg.Entries()
	results := make([]entryResult, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, e := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			logger.Debug("bundling", "type", e.Kind, "input", e.InputPathRelative, "output", e.OutputPath)
			r, err := buildEntry(pkg, e, opts, target, external)
			if err != nil {
				return err
			}
			results[i] = *r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var buildErr *BuildError
		if errors.As(err, &buildErr) {
			return nil, issue.NewErrorContext().
				WithIssue(issue.BundleFailedId).
				WithOperation("bundle entry").
				WithResource(buildErr.Entry).
				Wrap(err).
				BuildError()
		}
		return nil, err
	}

	res := &Result{}
	for _, r := range results {
		res.Outputs = append(res.Outputs, r.outputs...)
		res.Warnings = append(res.Warnings, r.warnings...)
	}
	for _, w := range res.Warnings {
		logger.Warn(w)
	}
	return res, nil
}

func buildEntry(pkg *fvtt.Package, e *bundle.Entry, opts Options, target api.Target, external []string) (*entryResult, error) {
	workDir := pkg.BaseDirPath()

	result := api.Build(api.BuildOptions{
		EntryPoints:       []string{e.InputPath},
		Outfile:           e.OutputPath,
		AbsWorkingDir:     workDir,
		Bundle:            true,
		Format:            api.FormatESModule,
		Platform:          api.PlatformBrowser,
		Target:            target,
		Sourcemap:         opts.sourcemap(),
		MinifyWhitespace:  opts.Minify,
		MinifyIdentifiers: opts.Minify,
		MinifySyntax:      opts.Minify,
		Metafile:          true,
		Write:             true,
		LogLevel:          api.LogLevelSilent,
		Plugins:           []api.Plugin{externalPlugin(external)},
	})
	if len(result.Errors) > 0 {
		return nil, &BuildError{Entry: e.InputPathRelative, Messages: result.Errors}
	}

	r := &entryResult{}
	for _, f := range result.OutputFiles {
		r.outputs = append(r.outputs, f.Path)
	}
	for _, w := range result.Warnings {
		r.warnings = append(r.warnings, formatMessage(w))
	}

	meta, err := ParseMetafile(result.Metafile)
	if err != nil {
		return nil, err
	}

	if e.IsMain() {
		pkg.AddWatchFiles(e, meta.InputPaths(workDir)...)
	}

	if opts.Sourcemap {
		if err := RewriteSources(e.OutputPath+".map", sourcePrefix(pkg.DeployDir(), e)); err != nil {
			return nil, err
		}
	}

	if planned := e.PlannedCSSPath(); planned != "" {
		for _, css := range meta.CSSBundles(workDir) {
			if err := moveCSS(css, planned); err != nil {
				return nil, err
			}
			e.SetOutputCSSPath(planned)
			r.outputs = replaceItem(r.outputs, css, planned)
		}
	}
	return r, nil
}

// sourcePrefix returns the entry's reverse relative path as seen from the
// directory of its source map. For entries written directly below the
// deploy directory this is ReverseRelativePath itself.
func sourcePrefix(deployDir string, e *bundle.Entry) string {
	dir := deployDir
	if !e.IsMain() {
		dir = filepath.Join(deployDir, bundle.NpmOutputDir)
	}
	anchor := filepath.Join(dir, e.ReverseRelativePath)
	prefix, err := filepath.Rel(filepath.Dir(e.OutputPath), anchor)
	if err != nil {
		return e.ReverseRelativePath
	}
	return prefix
}

// moveCSS renames an emitted stylesheet, and its source map when present,
// to the planned path.
func moveCSS(from, to string) error {
	if from == to {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return fmt.Errorf("failed to create stylesheet directory: %w", err)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("failed to move stylesheet %s: %w", from, err)
	}
	if err := os.Rename(from+".map", to+".map"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to move stylesheet source map %s: %w", from, err)
	}
	return nil
}

func replaceItem(list []string, old, repl string) []string {
	for i, s := range list {
		if s == old {
			list[i] = repl
		}
	}
	return list
}

func formatMessage(m api.Message) string {
	if m.Location == nil {
		return m.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text)
}
