// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"path/filepath"
	"slices"
	"strings"
)

// HiddenPrefix marks hidden files and directories, which are never walked.
const HiddenPrefix = "."

// errStopWalk ends filepath.WalkDir when the consumer stops ranging.
var errStopWalk = errors.New("stop walk")

type (
	// Entry is a single path produced by Walk.
	Entry struct {
		// Path is the absolute path of the file or directory.
		Path string
		// Dir is true for directories.
		Dir bool
	}

	// Inventory is the materialized result of a single walk.
	Inventory struct {
		// BaseDir is the absolute directory that was walked.
		BaseDir string
		// Dirs lists every directory below BaseDir in walk order.
		Dirs []string
		// Files lists every regular file below BaseDir in walk order.
		Files []string
	}
)

// DefaultSkipDirs returns the directory names skipped when none are configured.
func DefaultSkipDirs() []string {
	return []string{"deploy", "dist", "node_modules"}
}

// Walk yields every directory and regular file below root, depth-first, with
// each directory yielded before its descendants. Subtrees whose directory
// name is in skipDirs, subtrees rooted at an exclude path, and any entry
// whose name starts with HiddenPrefix are not visited. The root itself is
// not yielded, and exclude paths that are not strictly below it are ignored.
//
// A filesystem error is yielded once with a zero Entry and ends the walk.
func Walk(root string, skipDirs []string, exclude ...string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			yield(Entry{}, fmt.Errorf("failed to resolve walk root %s: %w", root, err))
			return
		}
		excluded, err := excludedBelow(absRoot, exclude)
		if err != nil {
			yield(Entry{}, err)
			return
		}

		walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == absRoot {
				if !d.IsDir() {
					return fmt.Errorf("walk root %s is not a directory", absRoot)
				}
				return nil
			}

			name := d.Name()
			if d.IsDir() {
				if strings.HasPrefix(name, HiddenPrefix) || slices.Contains(skipDirs, name) || slices.Contains(excluded, path) {
					return filepath.SkipDir
				}
				if !yield(Entry{Path: path, Dir: true}, nil) {
					return errStopWalk
				}
				return nil
			}

			if strings.HasPrefix(name, HiddenPrefix) || !d.Type().IsRegular() {
				return nil
			}
			if !yield(Entry{Path: path}, nil) {
				return errStopWalk
			}
			return nil
		})

		if walkErr != nil && !errors.Is(walkErr, errStopWalk) {
			yield(Entry{}, walkErr)
		}
	}
}

// excludedBelow returns the clean absolute exclude paths strictly below root.
func excludedBelow(root string, exclude []string) ([]string, error) {
	var out []string
	for _, p := range exclude {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve excluded path %s: %w", p, err)
		}
		if abs != root && IsWithin(abs, root) {
			out = append(out, abs)
		}
	}
	return out, nil
}

// Dirs yields the directories produced by Walk.
func Dirs(root string, skipDirs []string, exclude ...string) iter.Seq2[string, error] {
	return filterWalk(root, skipDirs, exclude, true)
}

// Files yields the regular files produced by Walk.
func Files(root string, skipDirs []string, exclude ...string) iter.Seq2[string, error] {
	return filterWalk(root, skipDirs, exclude, false)
}

func filterWalk(root string, skipDirs, exclude []string, dirs bool) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for entry, err := range Walk(root, skipDirs, exclude...) {
			if err != nil {
				yield("", err)
				return
			}
			if entry.Dir != dirs {
				continue
			}
			if !yield(entry.Path, nil) {
				return
			}
		}
	}
}

// Scan walks root once and collects directories and files into an Inventory.
// Exclude paths are passed to Walk. The walk stops early when ctx is
// cancelled.
func Scan(ctx context.Context, root string, skipDirs []string, exclude ...string) (*Inventory, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve walk root %s: %w", root, err)
	}

	inv := &Inventory{BaseDir: absRoot}
	for entry, err := range Walk(absRoot, skipDirs, exclude...) {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.Dir {
			inv.Dirs = append(inv.Dirs, entry.Path)
		} else {
			inv.Files = append(inv.Files, entry.Path)
		}
	}
	return inv, nil
}
