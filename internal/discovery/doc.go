// SPDX-License-Identifier: MPL-2.0

// Package discovery walks a directory tree and locates the Foundry VTT
// package manifest within it.
//
// File organization:
//   - walk.go: lazy depth-first walker (Walk, Dirs, Files) and Scan
//   - locate.go: manifest lookup, manifest loading and root partitioning
//   - diagnostic.go: non-fatal diagnostics returned to the CLI layer
package discovery
