// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fvttdev/fvttdev/internal/discovery"
	"github.com/fvttdev/fvttdev/internal/issue"
	"github.com/fvttdev/fvttdev/pkg/manifest"
)

// newValidateCommand creates the `fvttdev validate` command tree.
func newValidateCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate Foundry VTT package files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var strict bool
	manifestCmd := &cobra.Command{
		Use:   "manifest [path]",
		Short: "Validate a module.json or system.json against its schema",
		Long: `Validate a module.json or system.json against its schema.

Without arguments, the manifest is located below the working directory the
same way the bundle command finds it. A path may name a manifest file or a
directory to search.

Examples:
  fvttdev validate manifest
  fvttdev validate manifest ./my-system/system.json
  fvttdev validate manifest --strict ./my-module`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateManifest(cmd, app, rootFlags, args, strict)
		},
	}
	manifestCmd.Flags().BoolVar(&strict, "strict", false, "report top-level fields unknown to the manifest kind")

	validateCmd.AddCommand(manifestCmd)
	return validateCmd
}

func runValidateManifest(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, args []string, strict bool) error {
	s, err := app.newSession(cmd, rootFlags)
	if err != nil {
		return err
	}

	target := s.baseDir
	if len(args) > 0 {
		target = args[0]
		if !filepath.IsAbs(target) {
			target = filepath.Join(s.baseDir, target)
		}
	}

	selection := s.cfg.ManifestSelection
	if rootFlags.strictManifest {
		selection = discovery.SelectUnique
	}
	deployDir := s.cfg.Deploy.Resolve(s.baseDir).String()
	path, kind, err := resolveManifest(cmd, target, s.cfg.SkipDirs, selection, deployDir)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	result, err := manifest.Validate(kind, raw, path, strict)
	if err != nil {
		return issue.NewErrorContext().
			WithIssue(issue.ManifestInvalidId).
			WithOperation("validate manifest").
			WithResource(path).
			Wrap(err).
			BuildError()
	}

	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	fmt.Fprintln(stdout, TitleStyle.Render("Manifest Validation"))
	fmt.Fprintf(stdout, "%s %s %s\n", infoIcon, KeyStyle.Render("path:"), PathStyle.Render(result.Path))
	fmt.Fprintf(stdout, "%s %s %s\n", infoIcon, KeyStyle.Render("kind:"), result.Kind)
	fmt.Fprintln(stdout)

	if !result.Valid {
		fmt.Fprintf(stderr, "%s %d issue%s found:\n\n", errorIcon, len(result.Issues), plural(len(result.Issues), "", "s"))
		for i, iss := range result.Issues {
			tag := WarningStyle.Render(fmt.Sprintf("[%s]", iss.Type))
			if iss.Field != "" {
				fmt.Fprintf(stderr, "  %d. %s %s\n", i+1, tag, KeyStyle.Render(iss.Field))
				fmt.Fprintf(stderr, "     %s\n", iss.Message)
			} else {
				fmt.Fprintf(stderr, "  %d. %s %s\n", i+1, tag, iss.Message)
			}
		}
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return &ExitError{Code: 1}
	}

	fmt.Fprintf(stdout, "%s Manifest is valid\n", successIcon)
	return nil
}

// resolveManifest maps target onto a manifest file. A manifest file is used
// as is; a directory is walked, skipping deployDir, and the manifest located
// in it.
func resolveManifest(cmd *cobra.Command, target string, skipDirs []string, sel discovery.Selection, deployDir string) (string, manifest.Kind, error) {
	info, err := os.Stat(target)
	if err != nil {
		return "", "", issue.NewErrorContext().
			WithIssue(issue.ManifestNotFoundId).
			WithOperation("validate manifest").
			WithResource(target).
			Wrap(err).
			BuildError()
	}

	if !info.IsDir() {
		kind, ok := manifest.KindFromFilename(filepath.Base(target))
		if !ok {
			return "", "", issue.NewErrorContext().
				WithIssue(issue.ManifestNotFoundId).
				WithOperation("validate manifest").
				WithResource(target).
				WithSuggestion("Pass a module.json, a system.json or a directory containing one").
				Wrap(fmt.Errorf("%s is not a Foundry VTT manifest", filepath.Base(target))).
				BuildError()
		}
		return target, kind, nil
	}

	inv, err := discovery.Scan(cmd.Context(), target, skipDirs, deployDir)
	if err != nil {
		return "", "", err
	}
	res, err := discovery.Locate(inv, sel)
	if err != nil {
		return "", "", err
	}
	for _, d := range res.Diagnostics {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", WarningStyle.Render("!"), d)
	}
	return res.Location.ManifestPath, res.Location.Kind, nil
}
