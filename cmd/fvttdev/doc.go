// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the fvttdev command tree.
//
// Commands receive an *App, the composition root holding the configuration
// provider and output writers, so they can run in-process under tests.
//
//   - root.go: root command, persistent flags, Execute and logger setup
//   - bundle.go: the bundle command (noop, metafile, pass)
//   - watch.go: --watch rebuild loop
//   - validate.go: manifest schema validation
//   - config.go: config show / init / path
//   - render.go: user-facing error rendering
package cmd
