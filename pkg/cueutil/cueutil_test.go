// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"
)

const testSchema = `
#Settings: {
	name:   string & !=""
	count?: int & >=0
	...
}
`

func TestUnify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "valid json", data: `{"name": "demo", "count": 2}`},
		{name: "extra fields allowed", data: `{"name": "demo", "other": true}`},
		{name: "empty name", data: `{"name": ""}`, wantErr: "name"},
		{name: "negative count", data: `{"name": "demo", "count": -1}`, wantErr: "count"},
		{name: "syntax error", data: `{"name": `, wantErr: "settings.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Unify([]byte(testSchema), []byte(tt.data), "#Settings", WithFilename("settings.json"))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Unify() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Unify() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Unify() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	type settings struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	result, err := ParseAndDecode[settings]([]byte(testSchema), []byte(`{"name": "demo", "count": 3}`), "#Settings")
	if err != nil {
		t.Fatalf("ParseAndDecode() error: %v", err)
	}
	if result.Value.Name != "demo" || result.Value.Count != 3 {
		t.Errorf("ParseAndDecode() = %+v, want name=demo count=3", *result.Value)
	}
}

func TestUnify_MissingDefinition(t *testing.T) {
	t.Parallel()

	_, err := Unify([]byte(testSchema), []byte(`{}`), "#Missing")
	if err == nil || !strings.Contains(err.Error(), "#Missing") {
		t.Fatalf("Unify() error = %v, want schema definition error", err)
	}
}

func TestCheckFileSize(t *testing.T) {
	t.Parallel()

	if err := CheckFileSize(make([]byte, 10), 10, "a"); err != nil {
		t.Errorf("CheckFileSize() at limit returned %v", err)
	}
	if err := CheckFileSize(make([]byte, 11), 10, "a"); err == nil {
		t.Error("CheckFileSize() over limit returned nil")
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{"esmodules"}, "esmodules"},
		{[]string{"esmodules", "0"}, "esmodules[0]"},
		{[]string{"watch", "debounce"}, "watch.debounce"},
	}
	for _, tt := range tests {
		if got := formatPath(tt.in); got != tt.want {
			t.Errorf("formatPath(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
