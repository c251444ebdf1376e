// SPDX-License-Identifier: MPL-2.0

// Package metafile writes the --metafile archive: a time stamped tar.gz (zip
// on Windows) holding the CLI flags, the effective configuration and the
// command data of a run. Archives land in the fvttdev log directory.
package metafile
