// SPDX-License-Identifier: MPL-2.0

package uroot

import (
	"context"
	"fmt"

	"github.com/u-root/u-root/pkg/core"
)

type (
	// Command is an in-process utility.
	Command interface {
		Name() string
		// Run executes the command. args[0] is the command name.
		Run(ctx context.Context, args []string) error
	}

	// baseWrapper provides common functionality for pkg/core wrappers.
	baseWrapper struct {
		name string
	}
)

// Name returns the command name.
func (w *baseWrapper) Name() string {
	return w.name
}

// configureCommand wires a u-root core.Command to the handler context.
func configureCommand(ctx context.Context, cmd core.Command) {
	hc := GetHandlerContext(ctx)
	cmd.SetIO(hc.Stdin, hc.Stdout, hc.Stderr)
	cmd.SetWorkingDir(hc.Dir)
	cmd.SetLookupEnv(hc.LookupEnv)
}

// wrapError wraps an error with the [uroot] prefix format. Returns nil if
// err is nil.
func wrapError(cmdName string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[uroot] %s: %w", cmdName, err)
}
