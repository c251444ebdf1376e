// SPDX-License-Identifier: MPL-2.0

package fvtt

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/fvttdev/fvttdev/internal/discovery"
	"github.com/fvttdev/fvttdev/pkg/bundle"
	"github.com/fvttdev/fvttdev/pkg/manifest"
)

type (
	// Flags is the CLI surface recorded for a run. It is carried on the
	// Package so downstream steps and the metafile archive can see it.
	Flags struct {
		Cwd               string   `json:"cwd"`
		Deploy            string   `json:"deploy"`
		Entry             []string `json:"entry,omitempty"`
		Env               string   `json:"env,omitempty"`
		External          []string `json:"external,omitempty"`
		IgnoreLocalConfig bool     `json:"ignore-local-config"`
		LogLevel          string   `json:"loglevel"`
		Metafile          bool     `json:"metafile"`
		Noop              bool     `json:"noop"`
		Sourcemap         bool     `json:"sourcemap"`
		StrictManifest    bool     `json:"strict-manifest"`
		Watch             bool     `json:"watch"`
	}

	// Hooks are optional extension points invoked by Parse and by the
	// deploy step. A nil func is skipped.
	Hooks struct {
		// OnEntriesResolved may filter or reorder the resolved main entries.
		OnEntriesResolved func(ctx context.Context, entries []*bundle.ResolvedEntry) ([]*bundle.ResolvedEntry, error)
		// OnPlanBuilt observes the finished plan.
		OnPlanBuilt func(ctx context.Context, plan *bundle.Plan) error
		// BeforeManifestWrite may edit the rewritten manifest before it is saved.
		BeforeManifestWrite func(ctx context.Context, data manifest.Data) (manifest.Data, error)
	}

	// Options configures Parse.
	Options struct {
		// BaseDir is the directory to scan. Defaults to the process working directory.
		BaseDir string
		// DeployDir is the output directory, relative paths resolve against BaseDir.
		DeployDir string
		// External are user import patterns (regular expressions) never bundled.
		External []string
		// Entries replaces the manifest esmodules list when non-empty.
		Entries []string
		// SkipDirs are directory names not walked. Defaults to discovery.DefaultSkipDirs.
		SkipDirs []string
		// Selection is the multiple-manifest policy. Defaults to discovery.SelectFirst.
		Selection discovery.Selection
		// Logger receives progress messages. Defaults to a discarding logger.
		Logger *log.Logger
		Hooks  Hooks
		Flags  Flags
	}
)
