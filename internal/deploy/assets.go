// SPDX-License-Identifier: MPL-2.0

package deploy

import (
	"path/filepath"
	"slices"

	"github.com/fvttdev/fvttdev/internal/discovery"
	"github.com/fvttdev/fvttdev/internal/fvtt"
)

// rootFiles are copied from the package root when present.
var rootFiles = []string{"LICENSE", "README.md", "template.json"}

// RootFiles returns the top-level file names copied when present.
func RootFiles() []string { return slices.Clone(rootFiles) }

// ClassifyAssets fills the pass copy map of pkg. Root files are mapped
// first, then every top-level directory below the package root that holds
// no watch file, is not the npm directory and does not contain the deploy
// directory. Destinations mirror the names inside the deploy directory.
func ClassifyAssets(pkg *fvtt.Package) *fvtt.CopyMap {
	cm := pkg.CopyMap()
	root := pkg.RootPath()
	deployDir := pkg.DeployDir()

	files := pkg.Files()
	for _, name := range rootFiles {
		src := filepath.Join(root, name)
		if slices.Contains(files, src) {
			cm.Add(src, filepath.Join(deployDir, name))
		}
	}

	watch := pkg.AllWatchFiles()
	for _, dir := range pkg.Dirs() {
		if filepath.Dir(dir) != root {
			continue
		}
		if discovery.IsWithin(deployDir, dir) || discovery.IsWithin(dir, deployDir) {
			continue
		}
		if slices.ContainsFunc(watch, func(f string) bool { return discovery.IsWithin(f, dir) }) {
			continue
		}
		cm.Add(dir, filepath.Join(deployDir, filepath.Base(dir)))
	}
	return cm
}
