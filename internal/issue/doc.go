// SPDX-License-Identifier: MPL-2.0

// Package issue provides the user-facing error category of fvttdev.
//
// An ActionableError is a recoverable failure caused by the input tree
// (missing manifest, unresolved entry, missing env file). The CLI boundary
// detects it with IsNonFatal and prints a clean message with suggestions
// instead of a trace. Each catalog Issue holds Markdown guidance rendered
// with glamour for verbose output.
package issue
