// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	_ "embed"
	"fmt"
	"slices"
	"sort"

	"github.com/fvttdev/fvttdev/pkg/cueutil"
)

const (
	// IssueTypeSchema marks a CUE schema violation.
	IssueTypeSchema = "schema"
	// IssueTypeUnknownField marks a top-level field not known for the kind (strict mode).
	IssueTypeUnknownField = "unknown-field"
	// IssueTypeEntries marks an esmodules problem.
	IssueTypeEntries = "esmodules"
)

//go:embed manifest_schema.cue
var schemaBytes []byte

var (
	commonFields = []string{
		"id", "name", "title", "description", "version", "authors", "author",
		"compatibility", "minimumCoreVersion", "compatibleCoreVersion",
		"esmodules", "scripts", "styles", "packs", "packFolders", "languages",
		"relationships", "dependencies", "media", "url", "manifest", "download",
		"license", "readme", "bugs", "changelog", "flags", "protected", "exclusive",
		"persistentStorage",
	}
	moduleFields = []string{"library", "socket", "coreTranslation", "system"}
	systemFields = []string{
		"background", "grid", "gridDistance", "gridUnits", "primaryTokenAttribute",
		"secondaryTokenAttribute", "initiative", "documentTypes", "socket", "templateVersion",
	}
)

type (
	// ValidationIssue is a single manifest problem.
	ValidationIssue struct {
		// Type categorizes the issue (schema, unknown-field, esmodules).
		Type string
		// Message describes the problem.
		Message string
		// Field is the offending field, when known.
		Field string
	}

	// ValidationResult is the outcome of Validate.
	ValidationResult struct {
		Valid  bool
		Path   string
		Kind   Kind
		Issues []ValidationIssue
	}
)

// Error implements the error interface.
func (v ValidationIssue) Error() string {
	if v.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", v.Type, v.Field, v.Message)
	}
	return fmt.Sprintf("[%s] %s", v.Type, v.Message)
}

// AddIssue records an issue and marks the result invalid.
func (r *ValidationResult) AddIssue(issueType, message, field string) {
	r.Issues = append(r.Issues, ValidationIssue{Type: issueType, Message: message, Field: field})
	r.Valid = false
}

// KnownFields returns the sorted top-level fields recognized for kind.
func KnownFields(kind Kind) []string {
	fields := slices.Clone(commonFields)
	switch kind {
	case KindModule:
		fields = append(fields, moduleFields...)
	case KindSystem:
		fields = append(fields, systemFields...)
	}
	sort.Strings(fields)
	return slices.Compact(fields)
}

// Validate checks raw manifest bytes against the schema for kind. With
// strict set, top-level fields outside KnownFields are reported too.
// The returned error is only non-nil when raw cannot be decoded at all.
func Validate(kind Kind, raw []byte, path string, strict bool) (*ValidationResult, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	result := &ValidationResult{Valid: true, Path: path, Kind: kind}

	data, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	if _, err := data.EntryPoints(); err != nil {
		result.AddIssue(IssueTypeEntries, err.Error(), FieldEsmodules)
	}

	if _, err := cueutil.Unify(schemaBytes, raw, schemaDefinition(kind),
		cueutil.WithFilename(path),
		cueutil.WithMaxFileSize(MaxFileSize),
	); err != nil {
		result.AddIssue(IssueTypeSchema, err.Error(), "")
	}

	if strict {
		known := KnownFields(kind)
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, found := slices.BinarySearch(known, k); !found {
				result.AddIssue(IssueTypeUnknownField, fmt.Sprintf("field is not recognized for a %s manifest", kind), k)
			}
		}
	}

	return result, nil
}

func schemaDefinition(kind Kind) string {
	if kind == KindSystem {
		return "#System"
	}
	return "#Module"
}
