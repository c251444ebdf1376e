// SPDX-License-Identifier: MPL-2.0

// Package fvtt runs the discovery pipeline for a Foundry VTT package and
// exposes the result as a Package.
//
// Parse walks the base directory, locates the manifest, resolves entry
// points and builds the bundle plan. The Package it returns is read-only
// except for the per-pass state (new manifest, copy map, watch files), which
// BeginPass resets and guards so only one bundling pass runs at a time.
package fvtt
