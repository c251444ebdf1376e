// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestFilesystemPath_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    FilesystemPath
		wantErr bool
	}{
		{"relative deploy dir", FilesystemPath("./dist"), false},
		{"absolute path", FilesystemPath("/srv/foundry/Data/modules/demo"), false},
		{"dot path", FilesystemPath("."), false},
		{"empty is invalid", FilesystemPath(""), true},
		{"whitespace only is invalid", FilesystemPath("   "), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.path.Validate()
			if !tt.wantErr {
				if err != nil {
					t.Errorf("FilesystemPath(%q).Validate() returned unexpected error: %v", tt.path, err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidFilesystemPath) {
				t.Errorf("error should wrap ErrInvalidFilesystemPath, got: %v", err)
			}
			var fpErr *InvalidFilesystemPathError
			if !errors.As(err, &fpErr) {
				t.Errorf("error should be *InvalidFilesystemPathError, got: %T", err)
			}
		})
	}
}

func TestFilesystemPath_Resolve(t *testing.T) {
	t.Parallel()

	base := filepath.Join(t.TempDir(), "work")
	abs := filepath.Join(t.TempDir(), "deploy")

	if got := FilesystemPath("./out").Resolve(base); got.String() != filepath.Join(base, "out") {
		t.Errorf("Resolve(relative) = %q, want %q", got, filepath.Join(base, "out"))
	}
	if got := FilesystemPath(abs + string(filepath.Separator)).Resolve(base); got.String() != abs {
		t.Errorf("Resolve(absolute) = %q, want %q", got, abs)
	}
}
