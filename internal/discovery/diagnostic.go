// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"fmt"
)

const (
	// SeverityWarning indicates a recoverable discovery warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal discovery error diagnostic.
	SeverityError Severity = "error"

	// CodeManifestIgnored is reported for every manifest skipped by SelectFirst.
	CodeManifestIgnored = "manifest_ignored"
)

// ErrInvalidSeverity is the sentinel wrapped by InvalidSeverityError.
var ErrInvalidSeverity = errors.New("invalid diagnostic severity")

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// InvalidSeverityError is returned for an unknown Severity.
	InvalidSeverityError struct {
		Value Severity
	}

	// Diagnostic is a structured discovery diagnostic returned to callers
	// (rather than written to stderr) so the CLI layer owns rendering.
	Diagnostic struct {
		// Severity is the diagnostic level (warning or error).
		Severity Severity
		// Code is a machine-readable identifier (e.g., "manifest_ignored").
		Code string
		// Message is the human-readable description.
		Message string
		// Path is the file path associated with this diagnostic (optional).
		Path string
	}
)

// IsValid returns whether the Severity is one of the defined levels.
func (s Severity) IsValid() (bool, []error) {
	switch s {
	case SeverityWarning, SeverityError:
		return true, nil
	default:
		return false, []error{&InvalidSeverityError{Value: s}}
	}
}

// Error implements the error interface.
func (e *InvalidSeverityError) Error() string {
	return fmt.Sprintf("invalid diagnostic severity %q (must be warning or error)", e.Value)
}

// Unwrap returns ErrInvalidSeverity for errors.Is compatibility.
func (e *InvalidSeverityError) Unwrap() error { return ErrInvalidSeverity }

// String renders the diagnostic as "<severity>: <message> (<path>)".
func (d Diagnostic) String() string {
	if d.Path == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", d.Severity, d.Message, d.Path)
}
