// SPDX-License-Identifier: MPL-2.0

package metafile

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

const (
	// FormatTarGz is the default archive format.
	FormatTarGz Format = "tar.gz"
	// FormatZip is used on Windows.
	FormatZip Format = "zip"

	// FlagsFile holds the CLI flags.
	FlagsFile = "cli-flags.json"
	// ConfigFile holds the effective configuration.
	ConfigFile = "config.json"
	// CommandDataFile holds the package summary.
	CommandDataFile = "command-data.json"

	// timestampLayout is ISO 8601 local time with ':' replaced so the name
	// is valid on every filesystem.
	timestampLayout = "2006-01-02T15_04_05"
)

// ErrInvalidFormat is returned for an unknown archive Format.
var ErrInvalidFormat = errors.New("invalid archive format")

type (
	// Format is an archive container format.
	Format string

	// Archive collects named in-memory files. Entries are written sorted by
	// name so output is deterministic.
	Archive struct {
		files map[string][]byte
		mtime time.Time
	}
)

// DefaultFormat returns zip on Windows and tar.gz elsewhere.
func DefaultFormat() Format {
	if runtime.GOOS == "windows" {
		return FormatZip
	}
	return FormatTarGz
}

// Validate returns an error for an unknown format.
func (f Format) Validate() error {
	if f == FormatTarGz || f == FormatZip {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidFormat, string(f))
}

func (f Format) String() string { return string(f) }

// Filename returns the archive name for a run started at t.
func Filename(t time.Time, f Format) string {
	return "logs_" + t.Format(timestampLayout) + "." + string(f)
}

// NewArchive returns an empty archive whose entries carry mtime.
func NewArchive(mtime time.Time) *Archive {
	return &Archive{files: make(map[string][]byte), mtime: mtime}
}

// Add stores content under name, replacing an existing entry.
func (a *Archive) Add(name string, content []byte) {
	a.files[name] = content
}

// AddJSON stores v as indented JSON.
func (a *Archive) AddJSON(name string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	a.Add(name, append(raw, '\n'))
	return nil
}

// Names returns the entry names in archive order.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.files))
	for name := range a.files {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// WriteTo encodes the archive in format f to w.
func (a *Archive) WriteTo(w io.Writer, f Format) error {
	switch f {
	case FormatTarGz:
		return a.writeTarGz(w)
	case FormatZip:
		return a.writeZip(w)
	default:
		return f.Validate()
	}
}

// WriteFile writes the archive to path, creating parent directories. A
// partially written file is removed on error.
func (a *Archive) WriteFile(path string, f Format) (err error) {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", path, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close archive %s: %w", path, closeErr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	return a.WriteTo(out, f)
}

func (a *Archive) writeTarGz(w io.Writer) error {
	gw := gzip.NewWriter(w)
	tw := tar.NewWriter(gw)
	for _, name := range a.Names() {
		content := a.files[name]
		hdr := &tar.Header{
			Name:     name,
			Size:     int64(len(content)),
			Mode:     0o644,
			ModTime:  a.mtime,
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("failed to write header for %s: %w", name, err)
		}
		if _, err := tw.Write(content); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return nil
}

func (a *Archive) writeZip(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, name := range a.Names() {
		hdr := &zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: a.mtime,
		}
		hdr.SetMode(0o644)
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("failed to write header for %s: %w", name, err)
		}
		if _, err := io.Copy(fw, bytes.NewReader(a.files[name])); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish zip stream: %w", err)
	}
	return nil
}
