// SPDX-License-Identifier: MPL-2.0

package metafile

import (
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fvttdev/fvttdev/internal/config"
	"github.com/fvttdev/fvttdev/internal/fvtt"
)

type (
	// Options configures Write.
	Options struct {
		// Dir receives the archive. Defaults to config.LogDir().
		Dir string
		// Format defaults to DefaultFormat().
		Format Format
		// Now stamps the archive name. Defaults to time.Now.
		Now func() time.Time
		// Logger receives the archive location at info level.
		Logger *log.Logger
	}

	// Run is what a metafile archive records.
	Run struct {
		Flags   fvtt.Flags
		Config  *config.Config
		Summary *fvtt.Summary
	}
)

// Write archives run and returns the archive path. Config and Summary are
// skipped when nil, so a run that failed before parsing still records its
// flags.
func Write(run Run, opts Options) (string, error) {
	dir := opts.Dir
	if dir == "" {
		logDir, err := config.LogDir()
		if err != nil {
			return "", err
		}
		dir = logDir
	}
	format := opts.Format
	if format == "" {
		format = DefaultFormat()
	}
	if err := format.Validate(); err != nil {
		return "", err
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	t := now()
	a := NewArchive(t)
	if err := a.AddJSON(FlagsFile, run.Flags); err != nil {
		return "", err
	}
	if run.Config != nil {
		if err := a.AddJSON(ConfigFile, run.Config); err != nil {
			return "", err
		}
	}
	if run.Summary != nil {
		if err := a.AddJSON(CommandDataFile, run.Summary); err != nil {
			return "", err
		}
	}

	path := filepath.Join(dir, Filename(t, format))
	logger.Info("writing metafile logs", "path", path)
	if err := a.WriteFile(path, format); err != nil {
		return "", err
	}
	return path, nil
}
