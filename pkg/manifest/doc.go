// SPDX-License-Identifier: MPL-2.0

// Package manifest decodes and validates Foundry VTT package manifests
// (module.json and system.json).
//
// A manifest is kept as an arbitrary JSON object ([Data]) so unknown fields
// survive a rewrite untouched. Typed access is limited to the fields the
// build pipeline needs: the esmodules entry list and the styles list.
//
// Schema validation is done with CUE against the embedded
// manifest_schema.cue, which defines #Module and #System.
package manifest
