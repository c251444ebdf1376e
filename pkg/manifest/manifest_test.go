// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestKindFromFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		want   Kind
		wantOK bool
	}{
		{"module.json", KindModule, true},
		{"system.json", KindSystem, true},
		{"world.json", "", false},
		{"Module.json", "", false},
		{"module.json.bak", "", false},
	}
	for _, tt := range tests {
		got, ok := KindFromFilename(tt.name)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("KindFromFilename(%q) = (%q, %v), want (%q, %v)", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestKindValidate(t *testing.T) {
	t.Parallel()

	if err := KindSystem.Validate(); err != nil {
		t.Errorf("KindSystem.Validate() = %v", err)
	}
	err := Kind("world").Validate()
	if !errors.Is(err, ErrInvalidKind) {
		t.Errorf("Kind(world).Validate() = %v, want ErrInvalidKind", err)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"object", `{"esmodules": ["src/index.js"]}`, false},
		{"array", `["src/index.js"]`, true},
		{"truncated", `{"esmodules": [`, true},
		{"trailing value", `{} {}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseFile_WrapsPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "module.json")
	if err := os.WriteFile(path, []byte(`{`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := ParseFile(path)
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Fatalf("ParseFile() error = %v, want error naming %s", err, path)
	}
}

func TestParseFile_TooLarge(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "module.json")
	raw := `{"description": "` + strings.Repeat("x", int(MaxFileSize)) + `"}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseFile(path); !errors.Is(err, ErrManifestTooLarge) {
		t.Errorf("ParseFile() error = %v, want ErrManifestTooLarge", err)
	}
}

func TestEntryPoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		raw       string
		want      []string
		wantField string
	}{
		{"single", `{"esmodules": ["src/index.js"]}`, []string{"src/index.js"}, ""},
		{"multiple", `{"esmodules": ["a.js", "b/c.mjs"]}`, []string{"a.js", "b/c.mjs"}, ""},
		{"missing", `{"title": "x"}`, nil, "esmodules"},
		{"null", `{"esmodules": null}`, nil, "esmodules"},
		{"string", `{"esmodules": "src/index.js"}`, nil, "esmodules"},
		{"empty", `{"esmodules": []}`, nil, "esmodules"},
		{"non-string element", `{"esmodules": ["a.js", 3]}`, nil, "esmodules[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := Parse([]byte(tt.raw))
			if err != nil {
				t.Fatal(err)
			}
			got, err := data.EntryPoints()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("EntryPoints() error = %v", err)
				}
				if !slices.Equal(got, tt.want) {
					t.Errorf("EntryPoints() = %v, want %v", got, tt.want)
				}
				return
			}
			var fieldErr *FieldError
			if !errors.As(err, &fieldErr) {
				t.Fatalf("EntryPoints() error = %v, want *FieldError", err)
			}
			if fieldErr.Field != tt.wantField {
				t.Errorf("FieldError.Field = %q, want %q", fieldErr.Field, tt.wantField)
			}
			if !errors.Is(err, ErrInvalidManifest) {
				t.Error("FieldError should wrap ErrInvalidManifest")
			}
		})
	}
}

func TestAppendStyle_Dedup(t *testing.T) {
	t.Parallel()

	data, err := Parse([]byte(`{"esmodules": ["index.js"]}`))
	if err != nil {
		t.Fatal(err)
	}

	changed, err := data.AppendStyle("index.css")
	if err != nil || !changed {
		t.Fatalf("first AppendStyle() = (%v, %v), want (true, nil)", changed, err)
	}
	changed, err = data.AppendStyle("index.css")
	if err != nil || changed {
		t.Fatalf("second AppendStyle() = (%v, %v), want (false, nil)", changed, err)
	}

	styles, _ := data.Styles()
	if !slices.Equal(styles, []string{"index.css"}) {
		t.Errorf("Styles() = %v, want [index.css]", styles)
	}
}

func TestAppendStyle_InvalidStyles(t *testing.T) {
	t.Parallel()

	data := Data{"styles": "main.css"}
	if _, err := data.AppendStyle("index.css"); !errors.Is(err, ErrInvalidManifest) {
		t.Errorf("AppendStyle() error = %v, want ErrInvalidManifest", err)
	}
}

func TestClone_IsDeep(t *testing.T) {
	t.Parallel()

	orig, err := Parse([]byte(`{"styles": ["a.css"], "flags": {"nested": {"v": 1}}}`))
	if err != nil {
		t.Fatal(err)
	}
	clone := orig.Clone()

	if _, err := clone.AppendStyle("b.css"); err != nil {
		t.Fatal(err)
	}
	clone["flags"].(map[string]any)["nested"].(map[string]any)["v"] = 2

	styles, _ := orig.Styles()
	if !slices.Equal(styles, []string{"a.css"}) {
		t.Errorf("original styles mutated: %v", styles)
	}
	if v := orig["flags"].(map[string]any)["nested"].(map[string]any)["v"]; v.(interface{ String() string }).String() != "1" {
		t.Errorf("original nested value mutated: %v", v)
	}
}

func TestMarshal_PreservesNumbers(t *testing.T) {
	t.Parallel()

	data, err := Parse([]byte(`{"version": 10.291, "esmodules": ["a.js"]}`))
	if err != nil {
		t.Fatal(err)
	}
	out, err := data.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"version": 10.291`) {
		t.Errorf("Marshal() = %s, want version kept verbatim", out)
	}
}
