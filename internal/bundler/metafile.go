// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

type (
	// Metafile is the subset of the esbuild metafile fvttdev reads.
	Metafile struct {
		Inputs  map[string]MetafileInput  `json:"inputs"`
		Outputs map[string]MetafileOutput `json:"outputs"`
	}

	// MetafileInput is one source file read by esbuild.
	MetafileInput struct {
		Bytes int `json:"bytes"`
	}

	// MetafileOutput is one file written by esbuild.
	MetafileOutput struct {
		Bytes      int    `json:"bytes"`
		EntryPoint string `json:"entryPoint,omitempty"`
		CSSBundle  string `json:"cssBundle,omitempty"`
	}
)

// ParseMetafile decodes the JSON metafile returned by api.Build.
func ParseMetafile(raw string) (*Metafile, error) {
	var meta Metafile
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}
	return &meta, nil
}

// InputPaths returns the absolute, sorted paths of every file-namespace
// input. Metafile keys are relative to workDir; inputs from other plugin
// namespaces ("ns:path") are skipped.
func (m *Metafile) InputPaths(workDir string) []string {
	paths := make([]string, 0, len(m.Inputs))
	for key := range m.Inputs {
		if isNamespaced(key) {
			continue
		}
		path := filepath.FromSlash(key)
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths
}

// CSSBundles returns the absolute paths of stylesheets emitted alongside
// entry point outputs.
func (m *Metafile) CSSBundles(workDir string) []string {
	var paths []string
	for _, out := range m.Outputs {
		if out.EntryPoint == "" || out.CSSBundle == "" {
			continue
		}
		path := filepath.FromSlash(out.CSSBundle)
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths
}

// isNamespaced reports whether key carries a plugin namespace prefix. A
// single letter before the colon is a Windows drive, not a namespace.
func isNamespaced(key string) bool {
	i := strings.IndexByte(key, ':')
	return i > 1
}
