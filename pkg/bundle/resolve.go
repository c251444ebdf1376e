// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

var (
	// ErrEntryNotFound is returned when no candidate source file exists.
	ErrEntryNotFound = errors.New("entry point not found")
	// ErrUnsupportedExtension is returned when a declared entry is not an
	// ECMAScript source file.
	ErrUnsupportedExtension = errors.New("unsupported entry point extension")
	// ErrEntryOutsideRoot is returned when a declared entry escapes the package root.
	ErrEntryOutsideRoot = errors.New("entry point outside package root")

	jsExtensions = []string{".js", ".jsx", ".es6", ".es", ".mjs"}
	tsExtensions = []string{".ts", ".tsx"}
)

type (
	// ResolvedEntry is a manifest entry point mapped to a source file.
	ResolvedEntry struct {
		// Declared is the esmodules value as written in the manifest, or the
		// --entry value for overrides.
		Declared string
		// Output is the manifest-relative path of the bundle, slash
		// separated. It always carries a JavaScript extension.
		Output string
		// BaseName is the file name without extension.
		BaseName string
		// Ext is the extension of the resolved file.
		Ext string
		// Path is the absolute path of the resolved file.
		Path string
		// RelPath is the manifest-relative path of the resolved file, slash separated.
		RelPath string
		// Type is the inferred source language.
		Type InputType
	}

	// EntryError describes an entry point that could not be resolved.
	EntryError struct {
		// Declared is the esmodules value.
		Declared string
		// ManifestPath is the manifest declaring the entry.
		ManifestPath string
		// Override is set when the entry came from --entry rather than
		// the manifest.
		Override bool
		// Tried lists the extensions attempted, in order.
		Tried []string
		// Err is ErrEntryNotFound, ErrUnsupportedExtension or ErrEntryOutsideRoot.
		Err error
	}
)

// JSExtensions returns the recognized JavaScript source extensions.
func JSExtensions() []string { return slices.Clone(jsExtensions) }

// TSExtensions returns the recognized TypeScript source extensions.
func TSExtensions() []string { return slices.Clone(tsExtensions) }

// IsJS reports whether ext is a JavaScript source extension.
func IsJS(ext string) bool { return slices.Contains(jsExtensions, ext) }

// IsTS reports whether ext is a TypeScript source extension.
func IsTS(ext string) bool { return slices.Contains(tsExtensions, ext) }

// InputTypeOf returns the language for ext, defaulting to JavaScript.
func InputTypeOf(ext string) InputType {
	if IsTS(ext) {
		return InputTypeScript
	}
	return InputJavaScript
}

// Error implements the error interface.
func (e *EntryError) Error() string {
	source := fmt.Sprintf("'esmodules' entry in %s", e.ManifestPath)
	if e.Override {
		source = fmt.Sprintf("--entry value for %s", e.ManifestPath)
	}
	switch {
	case errors.Is(e.Err, ErrUnsupportedExtension):
		return fmt.Sprintf("non JS module filename %q in %s", e.Declared, source)
	case errors.Is(e.Err, ErrEntryOutsideRoot):
		return fmt.Sprintf("%q in %s points outside the package root", e.Declared, source)
	}
	base := strings.TrimSuffix(e.Declared, path.Ext(e.Declared))
	return fmt.Sprintf("could not load %s(%s) in %s", base, strings.Join(e.Tried, "|"), source)
}

// Unwrap returns the sentinel for errors.Is compatibility.
func (e *EntryError) Unwrap() error { return e.Err }

// ResolveEntry maps a declared esmodules path to an existing source file
// under rootPath. The declared path is tried first, then the same base path
// with .ts, then .tsx; the first existing regular file wins.
func ResolveEntry(rootPath, declared, manifestPath string) (*ResolvedEntry, error) {
	return resolveEntry(rootPath, declared, manifestPath, false)
}

// ResolveOverride maps an entry given with --entry. Besides the paths
// ResolveEntry accepts, it may name a .ts or .tsx file directly, which is
// then the only candidate. The bundle keeps the .js extension.
func ResolveOverride(rootPath, entry, manifestPath string) (*ResolvedEntry, error) {
	return resolveEntry(rootPath, entry, manifestPath, true)
}

func resolveEntry(rootPath, declared, manifestPath string, override bool) (*ResolvedEntry, error) {
	fail := func(err error, tried []string) error {
		return &EntryError{Declared: declared, ManifestPath: manifestPath, Override: override, Tried: tried, Err: err}
	}

	clean := path.Clean(filepath.ToSlash(declared))
	ext := path.Ext(clean)
	if !IsJS(ext) && !(override && IsTS(ext)) {
		return nil, fail(ErrUnsupportedExtension, nil)
	}
	if !filepath.IsLocal(filepath.FromSlash(clean)) {
		return nil, fail(ErrEntryOutsideRoot, nil)
	}

	relBase := strings.TrimSuffix(clean, ext)
	candidates := append([]string{ext}, tsExtensions...)
	output := clean
	if IsTS(ext) {
		candidates = []string{ext}
		output = relBase + ".js"
	}

	for _, candidate := range candidates {
		rel := relBase + candidate
		abs := filepath.Join(rootPath, filepath.FromSlash(rel))

		info, err := os.Stat(abs)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to stat entry point %s: %w", abs, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}

		return &ResolvedEntry{
			Declared: declared,
			Output:   output,
			BaseName: path.Base(relBase),
			Ext:      candidate,
			Path:     abs,
			RelPath:  rel,
			Type:     InputTypeOf(candidate),
		}, nil
	}

	return nil, fail(ErrEntryNotFound, candidates)
}
