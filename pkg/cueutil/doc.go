// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE compilation and validation helpers.
//
// Both the configuration loader and the manifest validator follow the same
// three steps:
//
//  1. Compile the embedded schema
//  2. Compile user data (CUE or JSON, since JSON is valid CUE) and unify it
//     with a schema definition
//  3. Validate and decode the unified value
//
// # Usage
//
//	//go:embed manifest_schema.cue
//	var schemaBytes []byte
//
//	unified, err := cueutil.Unify(schemaBytes, data, "#Module",
//	    cueutil.WithFilename("module.json"),
//	)
//	if err != nil {
//	    return err // error carries the JSON path of the offending field
//	}
package cueutil
