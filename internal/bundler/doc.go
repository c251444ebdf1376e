// SPDX-License-Identifier: MPL-2.0

// Package bundler runs esbuild over the entries of a planned Foundry VTT
// package. Each entry is built on its own; watch files are taken from the
// esbuild metafile, source map paths are made relative to the package root
// and emitted stylesheets are moved to the planned location.
package bundler
