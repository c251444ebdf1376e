// SPDX-License-Identifier: MPL-2.0

package fvtt

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fvttdev/fvttdev/internal/discovery"
	"github.com/fvttdev/fvttdev/pkg/bundle"
	"github.com/fvttdev/fvttdev/pkg/manifest"
)

type (
	// Package is a located Foundry VTT module or system with its bundle plan.
	Package struct {
		baseDir     string
		baseDirPath string
		location    *discovery.Location
		manifest    manifest.Data
		keyOrder    *manifest.KeyOrder
		inventory   *discovery.Inventory
		partition   discovery.Partition
		plan        *bundle.Plan
		deployDir   string
		external    []string
		flags       Flags
		hooks       Hooks
		diagnostics []discovery.Diagnostic

		pass        sync.Mutex
		newManifest manifest.Data
		copyMap     CopyMap
	}

	// CopyMap is an ordered source to destination mapping for the asset copy step.
	CopyMap struct {
		pairs []CopyPair
	}

	// CopyPair is one CopyMap entry.
	CopyPair struct {
		Src string
		Dst string
	}

	// Summary describes a package for the no-op output and the metafile archive.
	Summary struct {
		Kind         manifest.Kind  `json:"kind"`
		BaseDir      string         `json:"baseDir"`
		RootPath     string         `json:"rootPath"`
		ManifestPath string         `json:"manifestPath"`
		DeployDir    string         `json:"deployDir"`
		External     []string       `json:"external"`
		Entries      []SummaryEntry `json:"entries"`
	}

	// SummaryEntry describes one bundle entry in a Summary.
	SummaryEntry struct {
		Kind              bundle.Kind      `json:"type"`
		InputType         bundle.InputType `json:"inputType"`
		InputPathRelative string           `json:"inputPathRelative"`
		OutputPath        string           `json:"outputPath"`
	}
)

// Add appends src -> dst, replacing the destination of an existing src.
func (m *CopyMap) Add(src, dst string) {
	for i := range m.pairs {
		if m.pairs[i].Src == src {
			m.pairs[i].Dst = dst
			return
		}
	}
	m.pairs = append(m.pairs, CopyPair{Src: src, Dst: dst})
}

// Pairs returns the entries in insertion order.
func (m *CopyMap) Pairs() []CopyPair { return slices.Clone(m.pairs) }

// Len returns the number of entries.
func (m *CopyMap) Len() int { return len(m.pairs) }

// Clear removes all entries.
func (m *CopyMap) Clear() { m.pairs = nil }

// BaseDir returns the scanned directory as supplied.
func (p *Package) BaseDir() string { return p.baseDir }

// BaseDirPath returns the absolute scanned directory.
func (p *Package) BaseDirPath() string { return p.baseDirPath }

// RootPath returns the directory containing the manifest.
func (p *Package) RootPath() string { return p.location.RootPath }

// Kind returns module or system.
func (p *Package) Kind() manifest.Kind { return p.location.Kind }

// ManifestPath returns the absolute manifest path.
func (p *Package) ManifestPath() string { return p.location.ManifestPath }

// ManifestFilename returns module.json or system.json.
func (p *Package) ManifestFilename() string { return p.location.Kind.Filename() }

// Manifest returns a copy of the manifest as parsed from disk.
func (p *Package) Manifest() manifest.Data { return p.manifest.Clone() }

// ManifestKeyOrder returns the key order of the manifest on disk.
func (p *Package) ManifestKeyOrder() *manifest.KeyOrder { return p.keyOrder }

// NewManifest returns the manifest being rewritten during the current pass.
// Callers mutate it in place; Reset discards those changes.
func (p *Package) NewManifest() manifest.Data { return p.newManifest }

// SetNewManifest replaces the manifest being rewritten.
func (p *Package) SetNewManifest(data manifest.Data) { p.newManifest = data }

// NewManifestPath returns <deploy>/<kind>.json.
func (p *Package) NewManifestPath() string {
	return filepath.Join(p.deployDir, p.ManifestFilename())
}

// AllDirs returns every directory found by the scan.
func (p *Package) AllDirs() []string { return slices.Clone(p.inventory.Dirs) }

// AllFiles returns every file found by the scan.
func (p *Package) AllFiles() []string { return slices.Clone(p.inventory.Files) }

// Dirs returns directories below the package root, excluding npm.
func (p *Package) Dirs() []string { return slices.Clone(p.partition.Dirs) }

// Files returns files below the package root, excluding npm.
func (p *Package) Files() []string { return slices.Clone(p.partition.Files) }

// NpmFiles returns files below <root>/npm.
func (p *Package) NpmFiles() []string { return slices.Clone(p.partition.NpmFiles) }

// NpmPath returns <root>/npm.
func (p *Package) NpmPath() string { return p.location.NpmPath() }

// DeployDir returns the absolute deploy directory.
func (p *Package) DeployDir() string { return p.deployDir }

// Entries returns all bundle entries, main entries first.
func (p *Package) Entries() []*bundle.Entry { return p.plan.Entries() }

// Plan returns the bundle plan.
func (p *Package) Plan() *bundle.Plan { return p.plan }

// External returns user external patterns followed by npm exclusions.
func (p *Package) External() []string { return slices.Clone(p.external) }

// AddWatchFiles records files read while bundling e.
func (p *Package) AddWatchFiles(e *bundle.Entry, files ...string) {
	p.plan.AddWatchFiles(e, files...)
}

// AllWatchFiles returns the union of watch files for the current pass.
func (p *Package) AllWatchFiles() []string { return p.plan.AllWatchFiles() }

// OutsideWatchDirs returns the sorted directories of watch files that lie
// outside the package root, such as shared sources imported with "../".
func (p *Package) OutsideWatchDirs() []string {
	var dirs []string
	for _, f := range p.AllWatchFiles() {
		if discovery.IsWithin(f, p.RootPath()) {
			continue
		}
		if dir := filepath.Dir(f); !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	slices.Sort(dirs)
	return dirs
}

// CopyMap returns the copy map of the current pass.
func (p *Package) CopyMap() *CopyMap { return &p.copyMap }

// Flags returns the CLI flags recorded for this run.
func (p *Package) Flags() Flags { return p.flags }

// Hooks returns the extension hooks.
func (p *Package) Hooks() Hooks { return p.hooks }

// Diagnostics returns non-fatal discovery diagnostics.
func (p *Package) Diagnostics() []discovery.Diagnostic { return slices.Clone(p.diagnostics) }

// Reset discards per-pass state: the new manifest is reseeded from the
// parsed manifest, and the copy map, watch files and emitted stylesheets
// are cleared. Calling it repeatedly has no further effect.
func (p *Package) Reset() {
	p.newManifest = p.manifest.Clone()
	p.copyMap.Clear()
	p.plan.ResetPass()
}

// BeginPass blocks until no other pass is active, then resets per-pass
// state. Every BeginPass must be paired with EndPass.
func (p *Package) BeginPass() {
	p.pass.Lock()
	p.Reset()
}

// EndPass ends the pass started by BeginPass.
func (p *Package) EndPass() {
	p.pass.Unlock()
}

// Summary returns a description of the package and its entries.
func (p *Package) Summary() Summary {
	s := Summary{
		Kind:         p.Kind(),
		BaseDir:      p.baseDirPath,
		RootPath:     p.RootPath(),
		ManifestPath: p.ManifestPath(),
		DeployDir:    p.deployDir,
		External:     p.External(),
	}
	for _, e := range p.plan.Entries() {
		s.Entries = append(s.Entries, SummaryEntry{
			Kind:              e.Kind,
			InputType:         e.InputType,
			InputPathRelative: e.InputPathRelative,
			OutputPath:        e.OutputPath,
		})
	}
	return s
}

// String renders the summary as plain text.
func (s Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Foundry VTT %s: %s\n", s.Kind, s.ManifestPath)
	fmt.Fprintf(&sb, "deploy: %s\n", s.DeployDir)
	for _, e := range s.Entries {
		fmt.Fprintf(&sb, "\nbundle type: %s (%s)\n", e.Kind, e.InputType)
		fmt.Fprintf(&sb, "input: %s\n", e.InputPathRelative)
		fmt.Fprintf(&sb, "output: %s\n", e.OutputPath)
	}
	return sb.String()
}
