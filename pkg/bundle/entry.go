// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"slices"
)

const (
	// KindMain is a manifest-declared entry point.
	KindMain Kind = "main"
	// KindNpm is an isolated dependency copied through as its own bundle.
	KindNpm Kind = "npm"

	// InputJavaScript marks .js-family sources.
	InputJavaScript InputType = "javascript"
	// InputTypeScript marks .ts and .tsx sources.
	InputTypeScript InputType = "typescript"
)

type (
	// Kind distinguishes main entries from isolated npm entries.
	Kind string

	// InputType is the source language inferred from the input extension.
	InputType string

	// Entry is one compilable output artifact.
	Entry struct {
		// Kind is main or npm.
		Kind Kind
		// InputPath is the absolute source path.
		InputPath string
		// InputPathRelative is InputPath relative to the invocation directory.
		InputPathRelative string
		// InputExt is the resolved source extension (e.g. ".ts").
		InputExt string
		// InputBaseName is the source file name without extension.
		InputBaseName string
		// InputType is the inferred source language.
		InputType InputType
		// OutputPath is where the bundle is written in the deploy directory.
		OutputPath string
		// OutputCSSFilename is the deploy-relative, slash separated stylesheet
		// path used if the bundle emits CSS. Empty for npm entries.
		OutputCSSFilename string
		// ReverseRelativePath is the prefix replaced by "." in source map
		// sources so they stay portable wherever the deploy directory lives.
		ReverseRelativePath string

		outputCSSPath string
		plannedCSS    string
		watchFiles    []string
	}
)

// IsMain reports whether the entry is manifest-declared.
func (e *Entry) IsMain() bool { return e.Kind == KindMain }

// PlannedCSSPath is the deploy path a generated stylesheet is moved to.
// Empty for npm entries.
func (e *Entry) PlannedCSSPath() string { return e.plannedCSS }

// OutputCSSPath returns the stylesheet path once the bundler has emitted
// one, or "" when no stylesheet exists for this pass.
func (e *Entry) OutputCSSPath() string { return e.outputCSSPath }

// SetOutputCSSPath records the stylesheet emitted for this pass.
func (e *Entry) SetOutputCSSPath(path string) { e.outputCSSPath = path }

// WatchFiles returns a copy of the files read while bundling this entry.
func (e *Entry) WatchFiles() []string { return slices.Clone(e.watchFiles) }

// addWatchFiles appends files not already tracked and returns the ones added.
func (e *Entry) addWatchFiles(files []string) []string {
	var added []string
	for _, f := range files {
		if f == "" || slices.Contains(e.watchFiles, f) {
			continue
		}
		e.watchFiles = append(e.watchFiles, f)
		added = append(added, f)
	}
	return added
}

// resetPass clears state accumulated by a bundling pass.
func (e *Entry) resetPass() {
	e.watchFiles = nil
	e.outputCSSPath = ""
}
