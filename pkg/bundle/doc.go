// SPDX-License-Identifier: MPL-2.0

// Package bundle turns a located Foundry VTT package into a bundle plan.
//
// Each manifest esmodules entry is resolved to a source file (with a .ts and
// .tsx fallback for .js-style declarations) and becomes a main Entry. Every
// file below <root>/npm becomes an isolated npm Entry that is bundled on its
// own and referenced from the main bundles as an external import.
package bundle
