// SPDX-License-Identifier: MPL-2.0

// Package uroot runs u-root core utilities in-process. The deploy step uses
// it to copy untouched asset directories and top-level files into the
// deploy directory without shelling out to the host cp.
package uroot
