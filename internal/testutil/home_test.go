// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestSetHomeDir(t *testing.T) {
	key := "HOME"
	if runtime.GOOS == "windows" {
		key = "USERPROFILE"
	}

	tmpDir := t.TempDir()
	original := os.Getenv(key)

	cleanup := SetHomeDir(t, tmpDir)
	if got := os.Getenv(key); got != tmpDir {
		t.Errorf("%s = %q, want %q", key, got, tmpDir)
	}

	cleanup()
	if got := os.Getenv(key); got != original {
		t.Errorf("after cleanup %s = %q, want %q", key, got, original)
	}
}

func TestSetConfigHome(t *testing.T) {
	tmpDir := t.TempDir()
	t.Cleanup(SetConfigHome(t, tmpDir))

	dir, err := os.UserConfigDir()
	if err != nil {
		t.Fatalf("os.UserConfigDir() error: %v", err)
	}
	if !strings.HasPrefix(dir, tmpDir) {
		t.Errorf("os.UserConfigDir() = %q, want it under %q", dir, tmpDir)
	}
}

func TestWriteTree(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	WriteTree(t, root, map[string]string{
		"module/module.json":  `{}`,
		"module/src/index.js": "export {};",
		"module/assets/":      "",
	})

	if got := MustReadFile(t, filepath.Join(root, "module", "module.json")); got != "{}" {
		t.Errorf("module.json = %q", got)
	}
	info, err := os.Stat(filepath.Join(root, "module", "assets"))
	if err != nil || !info.IsDir() {
		t.Errorf("assets should be a directory: %v", err)
	}
}
