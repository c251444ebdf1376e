// SPDX-License-Identifier: MPL-2.0

package uroot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/u-root/u-root/pkg/core/cp"
)

// cpCommand wraps the u-root cp implementation.
type cpCommand struct {
	baseWrapper
}

// NewCp returns the u-root cp command.
func NewCp() Command {
	return &cpCommand{baseWrapper: baseWrapper{name: "cp"}}
}

// Run executes the cp command.
func (c *cpCommand) Run(ctx context.Context, args []string) error {
	cmd := cp.New()
	configureCommand(ctx, cmd)

	var cmdArgs []string
	if len(args) > 1 {
		cmdArgs = args[1:]
	}

	if err := cmd.RunContext(ctx, cmdArgs...); err != nil {
		return wrapError(c.name, err)
	}
	return nil
}

// Replace copies src to dst, replacing whatever dst held before. Directories
// are copied recursively. Parent directories of dst are created.
func Replace(ctx context.Context, src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat copy source: %w", err)
	}
	if err := os.RemoveAll(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear copy destination %s: %w", dst, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create copy destination parent: %w", err)
	}

	args := []string{"cp", src, dst}
	if info.IsDir() {
		args = []string{"cp", "-r", src, dst}
	}
	return NewCp().Run(ctx, args)
}
