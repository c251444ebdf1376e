// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"fmt"
	"regexp"

	"github.com/evanw/esbuild/pkg/api"
)

const externalPluginName = "fvttdev-external"

// compilePatterns checks that every external pattern is a valid regular
// expression before it reaches esbuild.
func compilePatterns(patterns []string) error {
	for _, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid external pattern %q: %w", p, err)
		}
	}
	return nil
}

// externalPlugin marks every import matching one of patterns as external.
// Entry points are never marked, so an isolated npm entry can still be
// built even though its own path matches its exclusion pattern.
func externalPlugin(patterns []string) api.Plugin {
	return api.Plugin{
		Name: externalPluginName,
		Setup: func(build api.PluginBuild) {
			for _, pattern := range patterns {
				build.OnResolve(api.OnResolveOptions{Filter: pattern},
					func(args api.OnResolveArgs) (api.OnResolveResult, error) {
						if args.Kind == api.ResolveEntryPoint {
							return api.OnResolveResult{}, nil
						}
						return api.OnResolveResult{
							Path:     args.Path,
							External: true,
						}, nil
					})
			}
		},
	}
}
