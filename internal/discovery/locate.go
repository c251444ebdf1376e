// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fvttdev/fvttdev/internal/issue"
	"github.com/fvttdev/fvttdev/pkg/manifest"
)

const (
	// SelectFirst picks the first manifest in walk order and reports the
	// others as warnings.
	SelectFirst Selection = "first"
	// SelectUnique fails when the tree contains more than one manifest.
	SelectUnique Selection = "error"

	// NpmDir is the package subdirectory holding isolated, pre-built dependencies.
	NpmDir = "npm"
)

// ErrInvalidSelection is the sentinel wrapped by InvalidSelectionError.
var ErrInvalidSelection = errors.New("invalid manifest selection")

type (
	// Selection is the policy applied when a tree holds several manifests.
	Selection string

	// InvalidSelectionError is returned for an unknown Selection.
	InvalidSelectionError struct {
		Value Selection
	}

	// Location identifies the package found in an Inventory.
	Location struct {
		// ManifestPath is the absolute path of module.json or system.json.
		ManifestPath string
		// RootPath is the directory containing the manifest.
		RootPath string
		// Kind is derived from the manifest filename.
		Kind manifest.Kind
	}

	// LocateResult bundles the selected Location with diagnostics about
	// manifests that were found but not selected.
	LocateResult struct {
		Location    *Location
		Diagnostics []Diagnostic
	}

	// Partition splits an Inventory relative to a package root.
	Partition struct {
		// Dirs are directories strictly below the root, excluding the npm subtree.
		Dirs []string
		// Files are files below the root, excluding the npm subtree.
		Files []string
		// NpmFiles are files below <root>/npm.
		NpmFiles []string
	}
)

// IsValid returns whether the Selection is a known policy.
func (s Selection) IsValid() (bool, []error) {
	switch s {
	case SelectFirst, SelectUnique:
		return true, nil
	default:
		return false, []error{&InvalidSelectionError{Value: s}}
	}
}

// Error implements the error interface.
func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("invalid manifest selection %q (must be first or error)", e.Value)
}

// Unwrap returns ErrInvalidSelection for errors.Is compatibility.
func (e *InvalidSelectionError) Unwrap() error { return ErrInvalidSelection }

// Locate finds the package manifest among inv.Files. Files are checked in
// inventory order, so with SelectFirst the first manifest of the depth-first
// lexical walk wins. No manifest is a non-fatal error naming inv.BaseDir.
func Locate(inv *Inventory, sel Selection) (*LocateResult, error) {
	if ok, errs := sel.IsValid(); !ok {
		return nil, errs[0]
	}

	var found []*Location
	for _, path := range inv.Files {
		kind, ok := manifest.KindFromFilename(filepath.Base(path))
		if !ok {
			continue
		}
		found = append(found, &Location{
			ManifestPath: path,
			RootPath:     filepath.Dir(path),
			Kind:         kind,
		})
	}

	if len(found) == 0 {
		return nil, issue.NewErrorContext().
			WithIssue(issue.ManifestNotFoundId).
			WithOperation("find a Foundry VTT module or system in file path").
			WithResource(inv.BaseDir).
			WithSuggestions(
				"Run fvttdev from a directory containing module.json or system.json",
				"Use --cwd to point at the package directory",
			).
			BuildError()
	}

	if len(found) > 1 && sel == SelectUnique {
		paths := make([]string, len(found))
		for i, l := range found {
			paths[i] = l.ManifestPath
		}
		return nil, issue.NewErrorContext().
			WithIssue(issue.ManifestAmbiguousId).
			WithOperation("select a unique Foundry VTT manifest in file path").
			WithResource(inv.BaseDir).
			WithSuggestion("Point --cwd at a single package directory").
			Wrap(fmt.Errorf("found %d manifests:\n  %s", len(found), strings.Join(paths, "\n  "))).
			BuildError()
	}

	result := &LocateResult{Location: found[0]}
	for _, l := range found[1:] {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeManifestIgnored,
			Message:  fmt.Sprintf("ignoring additional %s manifest, using %s", l.Kind, found[0].ManifestPath),
			Path:     l.ManifestPath,
		})
	}
	return result, nil
}

// NpmPath returns <root>/npm.
func (l *Location) NpmPath() string {
	return filepath.Join(l.RootPath, NpmDir)
}

// LoadManifest parses the located manifest and extracts its esmodules list.
// Read and JSON errors are fatal and carry the path; a missing or malformed
// esmodules field is a non-fatal error.
func (l *Location) LoadManifest() (manifest.Data, []string, error) {
	data, err := manifest.ParseFile(l.ManifestPath)
	if err != nil {
		return nil, nil, err
	}

	entries, err := data.EntryPoints()
	if err != nil {
		return nil, nil, issue.NewErrorContext().
			WithIssue(issue.ManifestInvalidId).
			WithOperation("locate 'esmodules' entry in").
			WithResource(l.ManifestPath).
			WithSuggestion(`Declare entry points as an array, e.g. "esmodules": ["src/index.js"]`).
			Wrap(err).
			BuildError()
	}
	return data, entries, nil
}

// Partition splits inv into package directories, package files and npm
// files. Npm files lie strictly below the npm directory. Paths outside the
// root are dropped.
func (l *Location) Partition(inv *Inventory) Partition {
	npmPath := l.NpmPath()
	var p Partition
	for _, dir := range inv.Dirs {
		if dir != l.RootPath && IsWithin(dir, l.RootPath) && !IsWithin(dir, npmPath) {
			p.Dirs = append(p.Dirs, dir)
		}
	}
	for _, file := range inv.Files {
		switch {
		case file != npmPath && IsWithin(file, npmPath):
			p.NpmFiles = append(p.NpmFiles, file)
		case IsWithin(file, l.RootPath):
			p.Files = append(p.Files, file)
		}
	}
	return p
}

// IsWithin reports whether path equals dir or lies below it. Both must be
// clean absolute paths.
func IsWithin(path, dir string) bool {
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(dir, string(filepath.Separator))+string(filepath.Separator))
}
