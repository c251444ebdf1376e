// SPDX-License-Identifier: MPL-2.0

package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fvttdev/fvttdev/internal/fvtt"
)

// RewriteManifest appends the stylesheet of every main entry that emitted
// one to the pass manifest, runs the BeforeManifestWrite hook and writes
// the result to pkg.NewManifestPath(). Style paths are relative to the
// deploy directory and slash separated. Keys keep their order on disk.
func RewriteManifest(ctx context.Context, pkg *fvtt.Package) (string, error) {
	data := pkg.NewManifest()
	for _, e := range pkg.Plan().MainEntries() {
		css := e.OutputCSSPath()
		if css == "" {
			continue
		}
		rel, err := filepath.Rel(pkg.DeployDir(), css)
		if err != nil {
			return "", fmt.Errorf("failed to relate stylesheet %s to deploy dir: %w", css, err)
		}
		if _, err := data.AppendStyle(filepath.ToSlash(rel)); err != nil {
			return "", fmt.Errorf("failed to add stylesheet to %s: %w", pkg.ManifestFilename(), err)
		}
	}

	if hook := pkg.Hooks().BeforeManifestWrite; hook != nil {
		edited, err := hook(ctx, data)
		if err != nil {
			return "", fmt.Errorf("before manifest write hook: %w", err)
		}
		data = edited
		pkg.SetNewManifest(data)
	}

	raw, err := data.MarshalOrdered(pkg.ManifestKeyOrder())
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", pkg.ManifestFilename(), err)
	}

	path := pkg.NewManifestPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create deploy directory: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
