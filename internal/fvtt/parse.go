// SPDX-License-Identifier: MPL-2.0

package fvtt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/fvttdev/fvttdev/internal/discovery"
	"github.com/fvttdev/fvttdev/internal/issue"
	"github.com/fvttdev/fvttdev/pkg/bundle"
	"github.com/fvttdev/fvttdev/pkg/manifest"
	"github.com/fvttdev/fvttdev/pkg/types"
)

// DefaultDeployDir is used when Options.DeployDir is empty.
const DefaultDeployDir = "dist"

// Parse scans opts.BaseDir for a Foundry VTT package and builds its bundle
// plan. Errors caused by the input tree are *issue.ActionableError; any
// other error is environmental. No partial Package is ever returned.
func Parse(ctx context.Context, opts Options) (*Package, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	baseDir, baseDirPath, err := resolveBaseDir(opts.BaseDir)
	if err != nil {
		return nil, err
	}

	deploy := types.FilesystemPath(opts.DeployDir)
	if deploy == "" {
		deploy = DefaultDeployDir
	}
	if err := deploy.Validate(); err != nil {
		return nil, err
	}
	deployDir := deploy.Resolve(baseDirPath).String()

	skipDirs := opts.SkipDirs
	if len(skipDirs) == 0 {
		skipDirs = discovery.DefaultSkipDirs()
	}
	selection := opts.Selection
	if selection == "" {
		selection = discovery.SelectFirst
	}

	logger.Debug("scanning for Foundry VTT package", "dir", baseDirPath, "skip", strings.Join(skipDirs, ","))
	// Output from an earlier pass must never be located as the package.
	inv, err := discovery.Scan(ctx, baseDirPath, skipDirs, deployDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", baseDirPath, err)
	}

	located, err := discovery.Locate(inv, selection)
	if err != nil {
		return nil, err
	}
	for _, d := range located.Diagnostics {
		logger.Warn(d.Message, "path", d.Path, "code", d.Code)
	}
	loc := located.Location
	logger.Debug("located package", "kind", loc.Kind, "manifest", loc.ManifestPath)

	data, declared, err := loc.LoadManifest()
	if err != nil {
		return nil, err
	}
	keyOrder, err := manifest.ReadFileKeyOrder(loc.ManifestPath)
	if err != nil {
		return nil, err
	}
	override := len(opts.Entries) > 0
	if override {
		logger.Debug("overriding manifest entry points", "entries", strings.Join(opts.Entries, ","))
		declared = opts.Entries
	}

	resolved, err := resolveEntries(ctx, loc, declared, override)
	if err != nil {
		return nil, err
	}
	if opts.Hooks.OnEntriesResolved != nil {
		if resolved, err = opts.Hooks.OnEntriesResolved(ctx, resolved); err != nil {
			return nil, fmt.Errorf("entries resolved hook: %w", err)
		}
	}

	part := loc.Partition(inv)
	plan, err := bundle.BuildPlan(bundle.PlanInput{
		BaseDir:   baseDirPath,
		RootPath:  loc.RootPath,
		DeployDir: deployDir,
		Entries:   resolved,
		NpmFiles:  part.NpmFiles,
	})
	if err != nil {
		var npmErr *bundle.NpmFileError
		if errors.As(err, &npmErr) {
			return nil, issue.NewErrorContext().
				WithIssue(issue.NpmFileNotFoundId).
				WithOperation("find npm source file").
				WithResource(npmErr.Path).
				Wrap(err).
				BuildError()
		}
		return nil, err
	}
	if opts.Hooks.OnPlanBuilt != nil {
		if err := opts.Hooks.OnPlanBuilt(ctx, plan); err != nil {
			return nil, fmt.Errorf("plan built hook: %w", err)
		}
	}

	external := append(append([]string(nil), opts.External...), plan.NpmExternal()...)

	pkg := &Package{
		baseDir:     baseDir,
		baseDirPath: baseDirPath,
		location:    loc,
		manifest:    data,
		keyOrder:    keyOrder,
		inventory:   inv,
		partition:   part,
		plan:        plan,
		deployDir:   deployDir,
		external:    external,
		flags:       opts.Flags,
		hooks:       opts.Hooks,
		diagnostics: located.Diagnostics,
	}
	pkg.Reset()

	logger.Debug("bundle plan built", "main", len(plan.MainEntries()), "npm", len(plan.NpmEntries()))
	return pkg, nil
}

// resolveBaseDir returns the base directory as supplied (defaulting to ".")
// and its absolute form. A missing directory is a non-fatal error.
func resolveBaseDir(dir string) (string, string, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve working directory %s: %w", dir, err)
	}

	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist), err == nil && !info.IsDir():
		cause := err
		if cause == nil {
			cause = errors.New("not a directory")
		}
		return "", "", issue.NewErrorContext().
			WithIssue(issue.WorkingDirNotFoundId).
			WithOperation("use working directory").
			WithResource(dir).
			WithSuggestion("Check the --cwd value").
			Wrap(cause).
			BuildError()
	case err != nil:
		return "", "", fmt.Errorf("failed to stat working directory %s: %w", abs, err)
	}
	return dir, abs, nil
}

// resolveEntries resolves every declared entry concurrently. Results keep
// the declared order. Overrides come from --entry and may name TypeScript
// sources directly.
func resolveEntries(ctx context.Context, loc *discovery.Location, declared []string, override bool) ([]*bundle.ResolvedEntry, error) {
	resolve := bundle.ResolveEntry
	if override {
		resolve = bundle.ResolveOverride
	}
	resolved := make([]*bundle.ResolvedEntry, len(declared))

	g, ctx := errgroup.WithContext(ctx)
	for i, d := range declared {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := resolve(loc.RootPath, d, loc.ManifestPath)
			if err != nil {
				return entryError(err, d, loc, override)
			}
			resolved[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resolved, nil
}

func entryError(err error, declared string, loc *discovery.Location, override bool) error {
	var entryErr *bundle.EntryError
	if !errors.As(err, &entryErr) {
		return err
	}

	op := "resolve esmodules entry"
	if override {
		op = "resolve --entry override"
	}
	ctx := issue.NewErrorContext().
		WithOperation(op).
		WithResource(declared).
		Wrap(err)

	switch {
	case errors.Is(err, bundle.ErrEntryNotFound):
		ctx.WithIssue(issue.EntryNotFoundId).
			WithSuggestion(fmt.Sprintf("Create %s or a .ts/.tsx file at the same path under %s", declared, loc.RootPath))
	case override:
		ctx.WithIssue(issue.EntryExtensionUnsupportedId).
			WithSuggestion("Pass --entry as a .js, .ts or .tsx path relative to " + loc.Kind.Filename())
	default:
		ctx.WithIssue(issue.EntryExtensionUnsupportedId).
			WithSuggestion("Declare entry points as .js paths relative to " + loc.Kind.Filename())
	}
	return ctx.BuildError()
}
