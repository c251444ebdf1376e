// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// RewriteSources replaces the reverse relative prefix of every "sources"
// element in the source map at mapPath with ".", so sources read as paths
// relative to the package root. Other fields are kept as written. A missing
// map file is not an error.
func RewriteSources(mapPath, reverse string) error {
	prefix := filepath.ToSlash(reverse)
	if prefix == "" || prefix == "." {
		return nil
	}

	raw, err := os.ReadFile(mapPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read source map: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse source map %s: %w", mapPath, err)
	}
	rawSources, ok := doc["sources"]
	if !ok {
		return nil
	}
	var sources []string
	if err := json.Unmarshal(rawSources, &sources); err != nil {
		return fmt.Errorf("failed to parse sources of %s: %w", mapPath, err)
	}

	for i, s := range sources {
		if strings.HasPrefix(s, prefix) {
			sources[i] = "." + strings.TrimPrefix(s, prefix)
		}
	}

	if doc["sources"], err = json.Marshal(sources); err != nil {
		return fmt.Errorf("failed to encode sources: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode source map: %w", err)
	}
	if err := os.WriteFile(mapPath, out, 0o644); err != nil {
		return fmt.Errorf("failed to write source map: %w", err)
	}
	return nil
}
