// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/fvttdev/fvttdev/internal/issue"
	"github.com/fvttdev/fvttdev/internal/testutil"
	"github.com/fvttdev/fvttdev/pkg/manifest"
)

func scanTree(t *testing.T, files map[string]string) (string, *Inventory) {
	t.Helper()
	root := t.TempDir()
	testutil.WriteTree(t, root, files)
	inv, err := Scan(context.Background(), root, DefaultSkipDirs())
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	return root, inv
}

func TestLocate_EmptyDirectory(t *testing.T) {
	t.Parallel()

	root, inv := scanTree(t, nil)

	_, err := Locate(inv, SelectFirst)
	if err == nil {
		t.Fatal("Locate() on empty tree returned nil error")
	}
	ae, ok := issue.AsActionable(err)
	if !ok {
		t.Fatalf("Locate() error type = %T, want *issue.ActionableError", err)
	}
	if ae.IssueID != issue.ManifestNotFoundId {
		t.Errorf("IssueID = %d, want ManifestNotFoundId", ae.IssueID)
	}
	if !strings.Contains(err.Error(), root) {
		t.Errorf("error %q should name the scanned directory %q", err, root)
	}
}

func TestLocate_SkipsNodeModules(t *testing.T) {
	t.Parallel()

	root, inv := scanTree(t, map[string]string{
		"node_modules/evil/module.json": `{"esmodules": ["evil.js"]}`,
		"pkg/module.json":               `{"esmodules": ["index.js"]}`,
	})

	res, err := Locate(inv, SelectUnique)
	if err != nil {
		t.Fatalf("Locate() error: %v", err)
	}
	want := filepath.Join(root, "pkg", "module.json")
	if res.Location.ManifestPath != want {
		t.Errorf("ManifestPath = %q, want %q", res.Location.ManifestPath, want)
	}
	if res.Location.RootPath != filepath.Join(root, "pkg") {
		t.Errorf("RootPath = %q", res.Location.RootPath)
	}
	if res.Location.Kind != manifest.KindModule {
		t.Errorf("Kind = %q, want module", res.Location.Kind)
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %v", res.Diagnostics)
	}
}

func TestLocate_System(t *testing.T) {
	t.Parallel()

	_, inv := scanTree(t, map[string]string{
		"system.json": `{"esmodules": ["sys.js"]}`,
	})
	res, err := Locate(inv, SelectFirst)
	if err != nil {
		t.Fatal(err)
	}
	if res.Location.Kind != manifest.KindSystem {
		t.Errorf("Kind = %q, want system", res.Location.Kind)
	}
	if res.Location.RootPath != inv.BaseDir {
		t.Errorf("RootPath = %q, want %q", res.Location.RootPath, inv.BaseDir)
	}
}

func TestLocate_MultipleManifests(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"a/module.json": `{}`,
		"b/system.json": `{}`,
	}

	t.Run("first wins with warning", func(t *testing.T) {
		t.Parallel()
		root, inv := scanTree(t, files)
		res, err := Locate(inv, SelectFirst)
		if err != nil {
			t.Fatal(err)
		}
		if res.Location.ManifestPath != filepath.Join(root, "a", "module.json") {
			t.Errorf("ManifestPath = %q", res.Location.ManifestPath)
		}
		if len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != CodeManifestIgnored {
			t.Fatalf("Diagnostics = %v, want one manifest_ignored", res.Diagnostics)
		}
		if res.Diagnostics[0].Path != filepath.Join(root, "b", "system.json") {
			t.Errorf("Diagnostic path = %q", res.Diagnostics[0].Path)
		}
	})

	t.Run("unique fails", func(t *testing.T) {
		t.Parallel()
		_, inv := scanTree(t, files)
		_, err := Locate(inv, SelectUnique)
		ae, ok := issue.AsActionable(err)
		if !ok || ae.IssueID != issue.ManifestAmbiguousId {
			t.Fatalf("Locate() error = %v, want ManifestAmbiguous", err)
		}
	})
}

func TestLocate_InvalidSelection(t *testing.T) {
	t.Parallel()

	_, inv := scanTree(t, map[string]string{"module.json": `{}`})
	if _, err := Locate(inv, Selection("last")); !errors.Is(err, ErrInvalidSelection) {
		t.Errorf("Locate() error = %v, want ErrInvalidSelection", err)
	}
}

func TestLoadManifest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		content     string
		wantEntries []string
		wantNonFat  bool
		wantFatal   bool
	}{
		{name: "valid", content: `{"esmodules": ["src/index.js", "src/extra.js"]}`, wantEntries: []string{"src/index.js", "src/extra.js"}},
		{name: "missing esmodules", content: `{"title": "x"}`, wantNonFat: true},
		{name: "esmodules not array", content: `{"esmodules": "x.js"}`, wantNonFat: true},
		{name: "broken json", content: `{"esmodules": [`, wantFatal: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, inv := scanTree(t, map[string]string{"module.json": tt.content})
			res, err := Locate(inv, SelectFirst)
			if err != nil {
				t.Fatal(err)
			}

			_, entries, err := res.Location.LoadManifest()
			switch {
			case tt.wantFatal:
				if err == nil || issue.IsNonFatal(err) {
					t.Fatalf("LoadManifest() error = %v, want fatal", err)
				}
				if !strings.Contains(err.Error(), res.Location.ManifestPath) {
					t.Errorf("fatal error should carry the manifest path: %v", err)
				}
			case tt.wantNonFat:
				if !issue.IsNonFatal(err) {
					t.Fatalf("LoadManifest() error = %v, want non-fatal", err)
				}
				if !strings.Contains(err.Error(), res.Location.ManifestPath) {
					t.Errorf("error should name the manifest: %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("LoadManifest() error: %v", err)
				}
				if !slices.Equal(entries, tt.wantEntries) {
					t.Errorf("entries = %v, want %v", entries, tt.wantEntries)
				}
			}
		})
	}
}

func TestPartition(t *testing.T) {
	t.Parallel()

	root, inv := scanTree(t, map[string]string{
		"README.md":               "",
		"module/module.json":      `{}`,
		"module/src/index.js":     "",
		"module/npm/vendor.js":    "",
		"module/npm/sub/extra.js": "",
		"module/assets/icon.png":  "",
	})
	res, err := Locate(inv, SelectFirst)
	if err != nil {
		t.Fatal(err)
	}
	pkgRoot := filepath.Join(root, "module")

	p := res.Location.Partition(inv)

	if got := relAll(t, pkgRoot, p.Dirs); !slices.Equal(got, []string{"assets", "src"}) {
		t.Errorf("Dirs = %v, want [assets src]", got)
	}
	if got := relAll(t, pkgRoot, p.Files); !slices.Equal(got, []string{"assets/icon.png", "module.json", "src/index.js"}) {
		t.Errorf("Files = %v", got)
	}
	if got := relAll(t, pkgRoot, p.NpmFiles); !slices.Equal(got, []string{"npm/sub/extra.js", "npm/vendor.js"}) {
		t.Errorf("NpmFiles = %v", got)
	}
}

func TestPartition_NpmFileIsNotAnNpmEntry(t *testing.T) {
	t.Parallel()

	root, inv := scanTree(t, map[string]string{
		"module.json":  `{}`,
		"npm":          "not a directory",
		"src/index.js": "",
	})
	res, err := Locate(inv, SelectFirst)
	if err != nil {
		t.Fatal(err)
	}

	p := res.Location.Partition(inv)
	if len(p.NpmFiles) != 0 {
		t.Errorf("NpmFiles = %v, want none", p.NpmFiles)
	}
	files := relAll(t, root, p.Files)
	slices.Sort(files)
	if !slices.Equal(files, []string{"module.json", "npm", "src/index.js"}) {
		t.Errorf("Files = %v", files)
	}
}

func TestIsWithin(t *testing.T) {
	t.Parallel()

	root := filepath.FromSlash("/work/module")
	tests := []struct {
		path string
		want bool
	}{
		{"/work/module", true},
		{"/work/module/npm/a.js", true},
		{"/work/module-extra/a.js", false},
		{"/work", false},
	}
	for _, tt := range tests {
		if got := IsWithin(filepath.FromSlash(tt.path), root); got != tt.want {
			t.Errorf("IsWithin(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
