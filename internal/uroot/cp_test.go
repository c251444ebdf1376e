// SPDX-License-Identifier: MPL-2.0

package uroot

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fvttdev/fvttdev/internal/testutil"
)

func TestCpCommand_Name(t *testing.T) {
	t.Parallel()

	if got := NewCp().Name(); got != "cp" {
		t.Errorf("Name() = %q, want %q", got, "cp")
	}
}

func TestCpCommand_Run_RelativePaths(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(tmpDir, "LICENSE"), "MIT")

	var stderr bytes.Buffer
	ctx := WithHandlerContext(context.Background(), &HandlerContext{
		Stdin:     strings.NewReader(""),
		Stdout:    &bytes.Buffer{},
		Stderr:    &stderr,
		Dir:       tmpDir,
		LookupEnv: os.LookupEnv,
	})

	if err := NewCp().Run(ctx, []string{"cp", "LICENSE", "LICENSE.copy"}); err != nil {
		t.Fatalf("Run() returned error: %v (stderr: %s)", err, stderr.String())
	}
	if got := testutil.MustReadFile(t, filepath.Join(tmpDir, "LICENSE.copy")); got != "MIT" {
		t.Errorf("copied content = %q, want %q", got, "MIT")
	}
}

func TestCpCommand_Run_SourceNotFound(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	err := NewCp().Run(context.Background(), []string{"cp", filepath.Join(tmpDir, "missing"), filepath.Join(tmpDir, "dst")})
	if err == nil {
		t.Fatal("Run() should fail for a missing source")
	}
	if !strings.HasPrefix(err.Error(), "[uroot] cp:") {
		t.Errorf("error %q should carry the [uroot] prefix", err)
	}
}

func TestReplace_File(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "README.md")
	dst := filepath.Join(tmpDir, "dist", "README.md")
	testutil.MustWriteFile(t, src, "# Demo")
	testutil.MustWriteFile(t, dst, "stale")

	if err := Replace(context.Background(), src, dst); err != nil {
		t.Fatalf("Replace() error: %v", err)
	}
	if got := testutil.MustReadFile(t, dst); got != "# Demo" {
		t.Errorf("dst = %q, want %q", got, "# Demo")
	}
}

func TestReplace_Directory(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "module", "assets")
	dst := filepath.Join(tmpDir, "dist", "assets")
	testutil.WriteTree(t, src, map[string]string{
		"icons/a.svg": "<svg/>",
		"b.webp":      "img",
	})
	// Leftovers from an earlier pass must not survive, and the copy must not
	// nest as dist/assets/assets.
	testutil.WriteTree(t, dst, map[string]string{"old.txt": "old"})

	for range 2 {
		if err := Replace(context.Background(), src, dst); err != nil {
			t.Fatalf("Replace() error: %v", err)
		}
	}

	if got := testutil.MustReadFile(t, filepath.Join(dst, "icons", "a.svg")); got != "<svg/>" {
		t.Errorf("icons/a.svg = %q", got)
	}
	if got := testutil.MustReadFile(t, filepath.Join(dst, "b.webp")); got != "img" {
		t.Errorf("b.webp = %q", got)
	}
	if _, err := os.Stat(filepath.Join(dst, "old.txt")); !os.IsNotExist(err) {
		t.Error("stale file survived Replace()")
	}
	if _, err := os.Stat(filepath.Join(dst, "assets")); !os.IsNotExist(err) {
		t.Error("directory copy nested into itself")
	}
}

func TestReplace_MissingSource(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	err := Replace(context.Background(), filepath.Join(tmpDir, "none"), filepath.Join(tmpDir, "dst"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Replace() error = %v, want fs.ErrNotExist", err)
	}
}
