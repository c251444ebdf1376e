// SPDX-License-Identifier: MPL-2.0

// Package deploy finishes a bundling pass: it copies the assets bundling
// did not touch into the deploy directory and writes the rewritten manifest
// with the generated stylesheets appended.
package deploy
