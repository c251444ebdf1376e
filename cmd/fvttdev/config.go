// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fvttdev/fvttdev/internal/config"
)

// newConfigCommand creates the `fvttdev config` command tree.
func newConfigCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage fvttdev configuration",
		Long: `Manage fvttdev configuration.

Configuration is merged from, lowest precedence first:
  - the user config file (see 'fvttdev config path')
  - ./fvttdev.cue in the working directory
  - FVTTDEV_* environment variables
  - command line flags`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.newSession(cmd, rootFlags)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(s.sources) == 0 {
				fmt.Fprintf(w, "%s\n\n", SubtitleStyle.Render("// no config files found, using defaults"))
			}
			for _, src := range s.sources {
				fmt.Fprintf(w, "%s %s\n", SubtitleStyle.Render("// source:"), src)
			}
			if len(s.sources) > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprint(w, config.GenerateCUE(s.cfg))
			return nil
		},
	})

	var force, user bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default fvttdev.cue into the working directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := initConfigPath(cmd, rootFlags, user)
			if err != nil {
				return err
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Created default configuration at %s\n", successIcon, PathStyle.Render(path))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	initCmd.Flags().BoolVar(&user, "user", false, "write the user config file instead")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			logDir, err := config.LogDir()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("Config directory:"), cfgDir)
			fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("Config file:"), filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
			fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("Local config:"), config.LocalConfigFileName)
			fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("Metafile logs:"), logDir)
			return nil
		},
	})

	return cfgCmd
}

// initConfigPath returns where `config init` writes: the user config file
// or fvttdev.cue in the working directory.
func initConfigPath(cmd *cobra.Command, rootFlags *rootFlagValues, user bool) (string, error) {
	if user {
		cfgDir, err := config.ConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt), nil
	}
	cwd := rootFlags.cwd
	if v := lookupCwdEnv(cmd); v != "" {
		cwd = v
	}
	dir, err := resolveWorkingDir(cwd)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, config.LocalConfigFileName), nil
}
