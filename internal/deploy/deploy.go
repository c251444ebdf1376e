// SPDX-License-Identifier: MPL-2.0

package deploy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/fvttdev/fvttdev/internal/fvtt"
	"github.com/fvttdev/fvttdev/internal/uroot"
)

type (
	// Options configures Deploy.
	Options struct {
		// Logger receives copy progress. Nil discards it.
		Logger *log.Logger
	}

	// Result describes what Deploy wrote.
	Result struct {
		// Copied lists the copy map that was applied.
		Copied []fvtt.CopyPair
		// ManifestPath is the rewritten manifest.
		ManifestPath string
	}
)

// Deploy classifies and copies assets, then writes the rewritten manifest.
// It must run after bundling inside the same pass, since asset selection
// depends on the watch files bundling recorded.
func Deploy(ctx context.Context, pkg *fvtt.Package, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	var stderr bytes.Buffer
	cpCtx := uroot.WithHandlerContext(ctx, &uroot.HandlerContext{
		Stdin:     strings.NewReader(""),
		Stdout:    io.Discard,
		Stderr:    &stderr,
		Dir:       pkg.RootPath(),
		LookupEnv: os.LookupEnv,
	})

	cm := ClassifyAssets(pkg)
	for _, pair := range cm.Pairs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Debug("copying asset", "src", pair.Src, "dst", pair.Dst)
		stderr.Reset()
		if err := uroot.Replace(cpCtx, pair.Src, pair.Dst); err != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return nil, fmt.Errorf("failed to copy %s: %w (%s)", pair.Src, err, msg)
			}
			return nil, fmt.Errorf("failed to copy %s: %w", pair.Src, err)
		}
	}

	path, err := RewriteManifest(ctx, pkg)
	if err != nil {
		return nil, err
	}
	logger.Debug("wrote manifest", "path", path)

	return &Result{Copied: cm.Pairs(), ManifestPath: path}, nil
}
