// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"os"

	"github.com/fvttdev/fvttdev/internal/config"
	"github.com/fvttdev/fvttdev/internal/fvtt"
)

type (
	// App wires CLI services and shared dependencies. All command handlers
	// receive an App and read configuration through its provider.
	App struct {
		Config config.Provider
		// Hooks are passed to every package parse and pass.
		Hooks  fvtt.Hooks
		stdout io.Writer
		stderr io.Writer
		// verbose is set once the log level is known and widens error output.
		verbose bool
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Hooks  fvtt.Hooks
		Stdout io.Writer
		Stderr io.Writer
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{
		Config: deps.Config,
		Hooks:  deps.Hooks,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
}
