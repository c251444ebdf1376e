// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/fvttdev/fvttdev/internal/bundler"
	"github.com/fvttdev/fvttdev/internal/config"
	"github.com/fvttdev/fvttdev/internal/fvtt"
	"github.com/fvttdev/fvttdev/internal/watch"
)

// runWatch runs one pass immediately, then a new pass after every debounced
// change below the package root or in a directory outside it that a bundle
// read from. Failed passes are reported and the watcher keeps running until
// the command context is cancelled (e.g., Ctrl+C).
func runWatch(cmd *cobra.Command, pkg *fvtt.Package, opts bundler.Options, wcfg config.WatchConfig, skipDirs []string, logger *log.Logger) error {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	pass := func(ctx context.Context) {
		res, err := runPass(ctx, pkg, opts, logger)
		if err != nil {
			fmt.Fprintf(stderr, "%s Pass failed: %v\n", WarningStyle.Render("!"), err)
			return
		}
		printPassResult(stdout, pkg, res)
	}

	fmt.Fprintf(stdout, "%s Watch mode: initial pass for %s\n", watchIcon, PathStyle.Render(pkg.ManifestPath()))
	pass(cmd.Context())

	var w *watch.Watcher
	w, err := watch.New(watch.Config{
		Root:     pkg.RootPath(),
		Ignore:   wcfg.Ignore,
		SkipDirs: skipDirs,
		Exclude:  []string{pkg.DeployDir()},
		Outside:  pkg.OutsideWatchDirs(),
		Debounce: wcfg.Debounce,
		Logger:   logger,
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintf(stdout, "%s Detected %d change%s, rebuilding...\n", watchIcon, len(changed), plural(len(changed), "", "s"))
			logger.Debug("changed files", "paths", changed)
			pass(ctx)
			// A rebuild may have picked up new imports from outside the root.
			w.AddOutside(pkg.OutsideWatchDirs()...)
			fmt.Fprintf(stdout, "\n%s Watching for changes...\n\n", watchIcon)
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	fmt.Fprintf(stdout, "\n%s Watching for changes (Ctrl+C to stop)...\n\n", watchIcon)
	return w.Run(cmd.Context())
}
