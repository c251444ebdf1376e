// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/fvttdev/fvttdev/internal/bundler"
	"github.com/fvttdev/fvttdev/internal/deploy"
	"github.com/fvttdev/fvttdev/internal/discovery"
	"github.com/fvttdev/fvttdev/internal/fvtt"
	"github.com/fvttdev/fvttdev/internal/metafile"
)

type (
	// bundleFlagValues holds the bundle command flags.
	bundleFlagValues struct {
		deploy      string
		entries     []string
		external    []string
		metafile    bool
		noop        bool
		sourcemap   bool
		noSourcemap bool
		minify      bool
		watch       bool
	}

	// passResult summarizes one bundling pass for display.
	passResult struct {
		bundle *bundler.Result
		deploy *deploy.Result
	}
)

func newBundleCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &bundleFlagValues{}

	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Bundle a Foundry VTT module or system into the deploy directory",
		Long: `Bundle a Foundry VTT module or system.

Every esmodules entry of the manifest is bundled with esbuild into the deploy
directory. Files in the package npm directory are bundled separately and kept
external to the main bundles. Top-level directories that no bundle read from
are copied as static assets, together with LICENSE, README.md and
template.json, and the manifest is rewritten with any generated stylesheets.

Examples:
  fvttdev bundle
  fvttdev bundle --cwd ./my-module --deploy ./build
  fvttdev bundle -i src/index.ts --external '^/systems/'
  fvttdev bundle --noop --metafile`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBundle(cmd, app, rootFlags, flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.deploy, "deploy", "d", "", "directory to deploy build files into (default ./dist, env: FVTTDEV_DEPLOY_PATH)")
	f.StringSliceVarP(&flags.entries, "entry", "i", nil, "explicit entry module(s) (.js, .ts or .tsx), replacing the manifest esmodules")
	f.StringSliceVar(&flags.external, "external", nil, "import patterns (regular expressions) that are never bundled (env: FVTTDEV_EXTERNAL)")
	f.BoolVar(&flags.metafile, "metafile", false, "archive CLI runtime metafiles in the fvttdev log directory")
	f.BoolVar(&flags.noop, "noop", false, "print the detected package and exit without writing")
	f.BoolVar(&flags.sourcemap, "sourcemap", true, "generate source maps (env: FVTTDEV_SOURCEMAP)")
	f.BoolVar(&flags.noSourcemap, "no-sourcemap", false, "disable source maps")
	f.BoolVar(&flags.minify, "minify", false, "minify bundles")
	f.BoolVar(&flags.watch, "watch", false, "rebuild whenever a package file changes")
	cmd.MarkFlagsMutuallyExclusive("noop", "watch")
	cmd.MarkFlagsMutuallyExclusive("sourcemap", "no-sourcemap")

	return cmd
}

func runBundle(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, flags *bundleFlagValues) error {
	s, err := app.newSession(cmd, rootFlags)
	if err != nil {
		return err
	}
	cfg := s.cfg
	changed := cmd.Flags().Changed

	deployDir := cfg.Deploy.String()
	if changed("deploy") {
		deployDir = flags.deploy
	}
	external := cfg.External
	if changed("external") {
		external = flags.external
	}
	sourcemap := cfg.Sourcemap
	if changed("sourcemap") {
		sourcemap = flags.sourcemap
	}
	if flags.noSourcemap {
		sourcemap = false
	}
	minify := cfg.Bundle.Minify || flags.minify
	selection := cfg.ManifestSelection
	if rootFlags.strictManifest {
		selection = discovery.SelectUnique
	}

	runFlags := fvtt.Flags{
		Cwd:               s.cwd,
		Deploy:            deployDir,
		Entry:             flags.entries,
		Env:               rootFlags.env,
		External:          external,
		IgnoreLocalConfig: rootFlags.ignoreLocalConfig,
		LogLevel:          s.logLevel.String(),
		Metafile:          flags.metafile,
		Noop:              flags.noop,
		Sourcemap:         sourcemap,
		StrictManifest:    selection == discovery.SelectUnique,
		Watch:             flags.watch,
	}

	ctx := cmd.Context()
	pkg, parseErr := fvtt.Parse(ctx, fvtt.Options{
		BaseDir:   s.baseDir,
		DeployDir: deployDir,
		External:  external,
		Entries:   flags.entries,
		SkipDirs:  cfg.SkipDirs,
		Selection: selection,
		Logger:    s.logger,
		Hooks:     app.Hooks,
		Flags:     runFlags,
	})

	if flags.metafile {
		run := metafile.Run{Flags: runFlags, Config: cfg}
		if pkg != nil {
			summary := pkg.Summary()
			run.Summary = &summary
		}
		if _, err := metafile.Write(run, metafile.Options{Logger: s.logger}); err != nil {
			s.logger.Error("failed to write metafile archive", "err", err)
		}
	}
	if parseErr != nil {
		return parseErr
	}

	if flags.noop {
		printSummary(cmd.OutOrStdout(), pkg.Summary())
		return nil
	}

	opts := bundler.Options{
		Sourcemap: sourcemap,
		Minify:    minify,
		Target:    cfg.Bundle.Target.String(),
		Logger:    s.logger,
	}
	if flags.watch {
		return runWatch(cmd, pkg, opts, cfg.Watch, cfg.SkipDirs, s.logger)
	}

	res, err := runPass(ctx, pkg, opts, s.logger)
	if err != nil {
		return err
	}
	printPassResult(cmd.OutOrStdout(), pkg, res)
	return nil
}

// runPass bundles and deploys pkg inside one pass. Per-pass state is reset
// on entry, so a failed pass leaves nothing behind for the next one.
func runPass(ctx context.Context, pkg *fvtt.Package, opts bundler.Options, logger *log.Logger) (*passResult, error) {
	pkg.BeginPass()
	defer pkg.EndPass()

	bres, err := bundler.Bundle(ctx, pkg, opts)
	if err != nil {
		return nil, err
	}
	dres, err := deploy.Deploy(ctx, pkg, deploy.Options{Logger: logger})
	if err != nil {
		return nil, err
	}
	return &passResult{bundle: bres, deploy: dres}, nil
}

// printSummary renders the noop output.
func printSummary(w io.Writer, s fvtt.Summary) {
	fmt.Fprintln(w, TitleStyle.Render("Foundry VTT "+s.Kind.String()))
	fmt.Fprintf(w, "%s %s %s\n", infoIcon, KeyStyle.Render("manifest:"), PathStyle.Render(s.ManifestPath))
	fmt.Fprintf(w, "%s %s %s\n", infoIcon, KeyStyle.Render("deploy:"), PathStyle.Render(s.DeployDir))
	if len(s.External) > 0 {
		fmt.Fprintf(w, "%s %s %v\n", infoIcon, KeyStyle.Render("external:"), s.External)
	}
	for _, e := range s.Entries {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %s (%s)\n", KeyStyle.Render("bundle type:"), e.Kind, e.InputType)
		fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("input:"), e.InputPathRelative)
		fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("output:"), PathStyle.Render(e.OutputPath))
	}
}

func printPassResult(w io.Writer, pkg *fvtt.Package, res *passResult) {
	fmt.Fprintf(w, "%s Bundled %d entr%s into %s\n",
		successIcon, len(pkg.Entries()), plural(len(pkg.Entries()), "y", "ies"), PathStyle.Render(pkg.DeployDir()))
	if n := len(res.deploy.Copied); n > 0 {
		fmt.Fprintf(w, "%s Copied %d asset%s\n", successIcon, n, plural(n, "", "s"))
	}
	fmt.Fprintf(w, "%s Wrote %s\n", successIcon, PathStyle.Render(res.deploy.ManifestPath))
	if n := len(res.bundle.Warnings); n > 0 {
		fmt.Fprintf(w, "%s %d esbuild warning%s\n", WarningStyle.Render("!"), n, plural(n, "", "s"))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
