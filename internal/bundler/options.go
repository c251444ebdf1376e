// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/evanw/esbuild/pkg/api"
)

// DefaultTarget is used when Options.Target is empty.
const DefaultTarget = "es2020"

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"es2023": api.ES2023,
	"es2024": api.ES2024,
	"esnext": api.ESNext,
}

// Options configures a bundling run.
type Options struct {
	// Sourcemap writes a linked .map file next to every bundle.
	Sourcemap bool
	// Minify enables whitespace, identifier and syntax minification.
	Minify bool
	// Target is the ECMAScript language target, e.g. "es2020".
	Target string
	// Logger receives per-entry progress. Nil discards it.
	Logger *log.Logger
}

func (o Options) logger() *log.Logger {
	if o.Logger == nil {
		return log.New(io.Discard)
	}
	return o.Logger
}

func (o Options) target() (api.Target, error) {
	name := o.Target
	if name == "" {
		name = DefaultTarget
	}
	t, ok := targets[name]
	if !ok {
		return api.DefaultTarget, fmt.Errorf("unknown bundle target %q", name)
	}
	return t, nil
}

func (o Options) sourcemap() api.SourceMap {
	if o.Sourcemap {
		return api.SourceMapLinked
	}
	return api.SourceMapNone
}
